package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"ticktock/internal/config"
	"ticktock/internal/domain"
	"ticktock/internal/store"
	"ticktock/internal/timesheet"
)

// Config for the HTTP API handler. Exactly one of Entries or Flagged is
// served, selected by Schema.
type Config struct {
	Entries  *store.Store
	Flagged  *store.FlaggedStore
	Schema   string
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"Invalid payload"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Ticktock API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Malformed request bodies are 400 bad_request.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Ticktock API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerLogin(group, cfg.Auth)
	registerMe(group)
	switch cfg.Schema {
	case config.SchemaFlags:
		registerFlaggedTimesheets(group, cfg.Flagged)
	default:
		registerTimesheets(group, cfg.Entries)
	}

	return router, nil
}

func bodyBytes(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyBytesKey{}).([]byte)
	return b
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", "Not found", nil)
	}
	if errors.Is(err, store.ErrInvalidStatus) {
		return newAPIError(http.StatusBadRequest, "bad_request", "Invalid payload", nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body User `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		return &struct {
			Body User `json:"body"`
		}{Body: User{ID: p.UserID, Name: demoUserName, Email: p.Email}}, nil
	})
}

func registerTimesheets(api huma.API, s *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-timesheets",
		Method:      http.MethodGet,
		Path:        "/timesheets",
		Summary:     "List timesheets",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
		From   string `query:"from"`
		To     string `query:"to"`
	}) (*struct {
		Body []domain.Entry `json:"body"`
	}, error) {
		entries, err := s.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		entries, apiErr := filterEntries(entries, input.Status, input.From, input.To)
		if apiErr != nil {
			return nil, apiErr
		}
		return &struct {
			Body []domain.Entry `json:"body"`
		}{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-timesheet",
		Method:        http.MethodPost,
		Path:          "/timesheets",
		Summary:       "Create timesheet",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body TimesheetRequest `json:"body"`
	}) (*struct {
		Body domain.Entry `json:"body"`
	}, error) {
		if apiErr := validateTimesheetRequest(ctx, input.Body); apiErr != nil {
			return nil, apiErr
		}
		entry, err := s.Create(ctx, entryFromRequest(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Entry `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-timesheet",
		Method:      http.MethodGet,
		Path:        "/timesheets/{id}",
		Summary:     "Get timesheet",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Entry `json:"body"`
	}, error) {
		entry, err := s.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Entry `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-timesheet",
		Method:      http.MethodPut,
		Path:        "/timesheets/{id}",
		Summary:     "Update timesheet",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body TimesheetRequest `json:"body"`
	}) (*struct {
		Body domain.Entry `json:"body"`
	}, error) {
		if apiErr := validateTimesheetRequest(ctx, input.Body); apiErr != nil {
			return nil, apiErr
		}
		entry, err := s.Update(ctx, input.ID, entryFromRequest(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Entry `json:"body"`
		}{Body: entry}, nil
	})

	registerDelete(api, func(ctx context.Context, id string) error {
		return s.Delete(ctx, id)
	})
}

func registerFlaggedTimesheets(api huma.API, s *store.FlaggedStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-timesheets",
		Method:      http.MethodGet,
		Path:        "/timesheets",
		Summary:     "List timesheets",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.FlaggedEntry `json:"body"`
	}, error) {
		entries, err := s.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.FlaggedEntry `json:"body"`
		}{Body: entries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-timesheet",
		Method:        http.MethodPost,
		Path:          "/timesheets",
		Summary:       "Create timesheet",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body FlaggedTimesheetRequest `json:"body"`
	}) (*struct {
		Body domain.FlaggedEntry `json:"body"`
	}, error) {
		if apiErr := validateFlaggedRequest(ctx, input.Body); apiErr != nil {
			return nil, apiErr
		}
		entry, err := s.Create(ctx, flaggedFromRequest(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FlaggedEntry `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-timesheet",
		Method:      http.MethodGet,
		Path:        "/timesheets/{id}",
		Summary:     "Get timesheet",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.FlaggedEntry `json:"body"`
	}, error) {
		entry, err := s.Get(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FlaggedEntry `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-timesheet",
		Method:      http.MethodPut,
		Path:        "/timesheets/{id}",
		Summary:     "Update timesheet",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body FlaggedTimesheetRequest `json:"body"`
	}) (*struct {
		Body domain.FlaggedEntry `json:"body"`
	}, error) {
		if apiErr := validateFlaggedRequest(ctx, input.Body); apiErr != nil {
			return nil, apiErr
		}
		entry, err := s.Update(ctx, input.ID, flaggedFromRequest(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FlaggedEntry `json:"body"`
		}{Body: entry}, nil
	})

	registerDelete(api, func(ctx context.Context, id string) error {
		return s.Delete(ctx, id)
	})
}

// registerDelete is shared by both schema variants: deletion always
// reports success, including for ids that matched nothing.
func registerDelete(api huma.API, remove func(ctx context.Context, id string) error) {
	huma.Register(api, huma.Operation{
		OperationID: "delete-timesheet",
		Method:      http.MethodDelete,
		Path:        "/timesheets/{id}",
		Summary:     "Delete timesheet",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DeleteResponse `json:"body"`
	}, error) {
		if err := remove(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DeleteResponse `json:"body"`
		}{Body: DeleteResponse{Success: true}}, nil
	})
}

func validateTimesheetRequest(ctx context.Context, req TimesheetRequest) huma.StatusError {
	if len(bodyBytes(ctx)) == 0 {
		return newAPIError(http.StatusBadRequest, "bad_request", "Invalid payload", nil)
	}
	if req.WeekStart == "" || req.Days == nil {
		return newAPIError(http.StatusBadRequest, "bad_request", "Invalid payload", nil)
	}
	return nil
}

func validateFlaggedRequest(ctx context.Context, req FlaggedTimesheetRequest) huma.StatusError {
	if len(bodyBytes(ctx)) == 0 {
		return newAPIError(http.StatusBadRequest, "bad_request", "Invalid payload", nil)
	}
	if req.Date == "" || !domain.ValidFlagStatus(domain.FlagStatus(req.Status)) {
		return newAPIError(http.StatusBadRequest, "bad_request", "Invalid payload", nil)
	}
	return nil
}

// filterEntries applies the dashboard filters: an optional derived-status
// match plus an optional inclusive date range the week must overlap.
func filterEntries(entries []domain.Entry, status, from, to string) ([]domain.Entry, huma.StatusError) {
	if status == "" && from == "" && to == "" {
		return entries, nil
	}
	switch domain.Status(status) {
	case "", domain.StatusMissing, domain.StatusIncomplete, domain.StatusComplete:
	default:
		return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid status filter", nil)
	}
	var fromDay, toDay time.Time
	ranged := from != "" || to != ""
	if ranged {
		if from == "" || to == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "from and to must be provided together", nil)
		}
		var err error
		if fromDay, err = timesheet.ParseDay(from); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid from date", nil)
		}
		if toDay, err = timesheet.ParseDay(to); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid to date", nil)
		}
	}
	filtered := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if status != "" && timesheet.StatusFor(timesheet.TotalHours(e)) != domain.Status(status) {
			continue
		}
		if ranged && !timesheet.WeekOverlaps(e.WeekStart, fromDay, toDay) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}
