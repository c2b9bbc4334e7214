package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	apperrors "lanesched/pkg/errors"
	"lanesched/pkg/logger"
	"lanesched/pkg/model"
)

type mockAllocationService struct {
	allocateFunc    func(ctx context.Context, source string, req *model.AllocationRequest) (*model.Run, error)
	allocateDayFunc func(ctx context.Context, day string) (*model.Run, error)
	getByIDFunc     func(ctx context.Context, id string) (*model.Run, error)
	getAllFunc      func(ctx context.Context, limit int, offset int64) ([]*model.Run, int64, error)
	scheduleFunc    func(ctx context.Context, id string, mode model.ScheduleMode) (*model.Schedule, error)
}

func (m *mockAllocationService) Allocate(ctx context.Context, source string, req *model.AllocationRequest) (*model.Run, error) {
	return m.allocateFunc(ctx, source, req)
}

func (m *mockAllocationService) AllocateDay(ctx context.Context, day string) (*model.Run, error) {
	return m.allocateDayFunc(ctx, day)
}

func (m *mockAllocationService) GetByID(ctx context.Context, id string) (*model.Run, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockAllocationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Run, int64, error) {
	return m.getAllFunc(ctx, limit, offset)
}

func (m *mockAllocationService) Schedule(ctx context.Context, id string, mode model.ScheduleMode) (*model.Schedule, error) {
	return m.scheduleFunc(ctx, id, mode)
}

func newTestRouter(svc *mockAllocationService) *httprouter.Router {
	router := httprouter.New()
	NewAllocationHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestAllocate(t *testing.T) {
	var got *model.AllocationRequest
	var gotSource string
	router := newTestRouter(&mockAllocationService{
		allocateFunc: func(ctx context.Context, source string, req *model.AllocationRequest) (*model.Run, error) {
			got, gotSource = req, source
			return &model.Run{ID: "run-1", Source: source}, nil
		},
	})

	rec := serve(router, http.MethodPost, "/api/v1/allocations",
		`{"reservations":[{"group":"acme","start_time":"2025-05-17T10:00:00Z","party_size":8}]}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotSource != model.RunSourceRequest {
		t.Errorf("expected source %q, got %q", model.RunSourceRequest, gotSource)
	}
	if len(got.Reservations) != 1 || got.Reservations[0].PartySize != 8 {
		t.Errorf("unexpected decoded request %+v", got)
	}

	var body struct {
		Data model.Run `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Data.ID != "run-1" {
		t.Errorf("expected run-1, got %q", body.Data.ID)
	}
}

func TestAllocate_BadBody(t *testing.T) {
	router := newTestRouter(&mockAllocationService{
		allocateFunc: func(ctx context.Context, source string, req *model.AllocationRequest) (*model.Run, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"reservations":`},
		{name: "unknown field", body: `{"bookings":[]}`},
		{name: "wrong type", body: `{"reservations":[{"party_size":"eight"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/api/v1/allocations", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Code != apperrors.CodeInvalidInput {
				t.Errorf("expected %s, got %s", apperrors.CodeInvalidInput, resp.Code)
			}
		})
	}
}

func TestAllocate_ServiceError(t *testing.T) {
	router := newTestRouter(&mockAllocationService{
		allocateFunc: func(ctx context.Context, source string, req *model.AllocationRequest) (*model.Run, error) {
			return nil, apperrors.UnprocessableRun("No valid reservations in batch", nil)
		},
	})

	rec := serve(router, http.MethodPost, "/api/v1/allocations", `{"reservations":[{"group":""}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != apperrors.CodeUnprocessableRun {
		t.Errorf("unexpected code %s", resp.Code)
	}
}

func TestAllocateDay(t *testing.T) {
	var gotDay string
	router := newTestRouter(&mockAllocationService{
		allocateDayFunc: func(ctx context.Context, day string) (*model.Run, error) {
			gotDay = day
			return &model.Run{ID: "run-2", Day: day}, nil
		},
	})

	rec := serve(router, http.MethodPost, "/api/v1/allocations/day?date=2025-05-17", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotDay != "2025-05-17" {
		t.Errorf("expected day to be forwarded, got %q", gotDay)
	}

	rec = serve(router, http.MethodPost, "/api/v1/allocations/day", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without date, got %d", rec.Code)
	}
}

func TestGetByID(t *testing.T) {
	router := newTestRouter(&mockAllocationService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Run, error) {
			if id == "missing" {
				return nil, apperrors.NotFoundWithID("Allocation run", id)
			}
			return &model.Run{ID: id}, nil
		},
	})

	rec := serve(router, http.MethodGet, "/api/v1/allocations/id/run-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = serve(router, http.MethodGet, "/api/v1/allocations/id/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Details["id"] != "missing" {
		t.Errorf("expected id in details, got %v", resp.Details)
	}
}

func TestGetAll(t *testing.T) {
	router := newTestRouter(&mockAllocationService{
		getAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Run, int64, error) {
			if limit != 20 || offset != 40 {
				t.Errorf("expected limit=20 offset=40, got %d %d", limit, offset)
			}
			return []*model.Run{{ID: "a"}, {ID: "b"}}, 42, nil
		},
	})

	rec := serve(router, http.MethodGet, "/api/v1/allocations?limit=20&offset=40", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data       []model.Run `json:"data"`
		TotalCount int64       `json:"total_count"`
		Limit      int         `json:"limit"`
		Offset     int64       `json:"offset"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Data) != 2 || body.TotalCount != 42 || body.Limit != 20 || body.Offset != 40 {
		t.Errorf("unexpected page %+v", body)
	}

	rec = serve(router, http.MethodGet, "/api/v1/allocations?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestSchedule(t *testing.T) {
	var gotMode model.ScheduleMode
	router := newTestRouter(&mockAllocationService{
		scheduleFunc: func(ctx context.Context, id string, mode model.ScheduleMode) (*model.Schedule, error) {
			gotMode = mode
			return &model.Schedule{RunID: id, Mode: model.ScheduleCompact, Lanes: []model.Lane{1, 2}}, nil
		},
	})

	rec := serve(router, http.MethodGet, "/api/v1/allocations/id/run-1/schedule?mode=compact", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotMode != model.ScheduleCompact {
		t.Errorf("expected compact mode, got %q", gotMode)
	}

	var body struct {
		Data model.Schedule `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Data.RunID != "run-1" || len(body.Data.Lanes) != 2 {
		t.Errorf("unexpected schedule %+v", body.Data)
	}
}
