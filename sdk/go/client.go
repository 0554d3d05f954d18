package ticktocksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Ticktock HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "api",
		Timeout:  10 * time.Second,
	}
}

// Task is one logged unit of work.
type Task struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Hours       float64 `json:"hours"`
	Project     string  `json:"project,omitempty"`
	WorkType    string  `json:"workType,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Day is one calendar day's task list.
type Day struct {
	Date  string `json:"date"`
	Tasks []Task `json:"tasks"`
}

// Timesheet is one week's entry.
type Timesheet struct {
	ID         string `json:"id"`
	WeekNumber int    `json:"weekNumber"`
	WeekStart  string `json:"weekStart"`
	Days       []Day  `json:"days"`
}

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login authenticates with the demo credential and stores the session
// token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	body := map[string]any{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, c.path("auth/login"), body, &resp); err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// ListTimesheets returns all entries, most recently created first.
func (c *Client) ListTimesheets(ctx context.Context) ([]Timesheet, error) {
	var resp []Timesheet
	err := c.do(ctx, http.MethodGet, c.path("timesheets"), nil, &resp)
	return resp, err
}

// GetTimesheet resolves id, a week number like "w3" or a week-start date.
func (c *Client) GetTimesheet(ctx context.Context, id string) (Timesheet, error) {
	var resp Timesheet
	err := c.do(ctx, http.MethodGet, c.path("timesheets/"+url.PathEscape(id)), nil, &resp)
	return resp, err
}

// CreateTimesheet creates a week; the id is server-assigned.
func (c *Client) CreateTimesheet(ctx context.Context, weekNumber int, weekStart string, days []Day) (Timesheet, error) {
	if days == nil {
		days = []Day{}
	}
	body := map[string]any{
		"weekNumber": weekNumber,
		"weekStart":  weekStart,
		"days":       days,
	}
	var resp Timesheet
	err := c.do(ctx, http.MethodPost, c.path("timesheets"), body, &resp)
	return resp, err
}

// UpdateTimesheet rewrites a week. The stored id may differ from the
// requested one when the server reconciles the entry into an existing
// week; callers should use the returned entry's id.
func (c *Client) UpdateTimesheet(ctx context.Context, id string, weekNumber int, weekStart string, days []Day) (Timesheet, error) {
	if days == nil {
		days = []Day{}
	}
	body := map[string]any{
		"weekNumber": weekNumber,
		"weekStart":  weekStart,
		"days":       days,
	}
	var resp Timesheet
	err := c.do(ctx, http.MethodPut, c.path("timesheets/"+url.PathEscape(id)), body, &resp)
	return resp, err
}

// DeleteTimesheet removes a week; deleting an unknown id still succeeds.
func (c *Client) DeleteTimesheet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.path("timesheets/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) path(p string) string {
	base := strings.Trim(c.BasePath, "/")
	if base == "" {
		return strings.TrimLeft(p, "/")
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
