package domain

import (
	"math"
	"strconv"
	"strings"
)

// Status is derived from a week's total hours, never stored.
type Status string

const (
	StatusMissing    Status = "Missing"
	StatusIncomplete Status = "Incomplete"
	StatusComplete   Status = "Complete"
)

// FlagStatus is the user-assigned state of a flagged entry (schema
// variant "flags"). Unlike Status it is persisted verbatim.
type FlagStatus string

const (
	FlagPending   FlagStatus = "Pending"
	FlagSubmitted FlagStatus = "Submitted"
	FlagApproved  FlagStatus = "Approved"
)

// ValidFlagStatus reports whether s is one of the three allowed values.
func ValidFlagStatus(s FlagStatus) bool {
	switch s {
	case FlagPending, FlagSubmitted, FlagApproved:
		return true
	}
	return false
}

// Hours tolerates string-encoded numbers on decode; historical clients
// sent `"hours": "8"`. Unparseable values coerce to zero. Encoding always
// emits a plain number.
type Hours float64

func (h *Hours) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*h = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		s = strings.TrimSpace(strings.Trim(s, `"`))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*h = 0
		return nil
	}
	*h = Hours(v)
	return nil
}

func (h Hours) MarshalJSON() ([]byte, error) {
	v := float64(h)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Hours       Hours  `json:"hours"`
	Project     string `json:"project,omitempty"`
	WorkType    string `json:"workType,omitempty"`
	Description string `json:"description,omitempty"`
}

type Day struct {
	Date  string `json:"date" format:"date"`
	Tasks []Task `json:"tasks"`
}

// Entry is one week's timesheet (schema variant "tasks"). The pair
// (WeekNumber, WeekStart) is the natural key; at most one entry per pair
// survives sanitation.
type Entry struct {
	ID         string `json:"id"`
	WeekNumber int    `json:"weekNumber"`
	WeekStart  string `json:"weekStart" format:"date"`
	Days       []Day  `json:"days"`
}

// NaturalKey identifies an entry independent of its id.
func (e Entry) NaturalKey() string {
	return strconv.Itoa(e.WeekNumber) + "|" + e.WeekStart
}

// TaskCount is the number of tasks across all days.
func (e Entry) TaskCount() int {
	n := 0
	for _, d := range e.Days {
		n += len(d.Tasks)
	}
	return n
}

// FlaggedEntry is the status-flagged single-row schema (variant "flags"),
// an earlier iteration of the product kept as an alternative configuration.
type FlaggedEntry struct {
	ID         string     `json:"id"`
	WeekNumber int        `json:"weekNumber"`
	Date       string     `json:"date" format:"date"`
	Status     FlagStatus `json:"status" enum:"Pending,Submitted,Approved"`
}
