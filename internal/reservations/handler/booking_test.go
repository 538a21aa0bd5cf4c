package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"yoyaku/internal/reservations/service"
	apperrors "yoyaku/pkg/errors"
	"yoyaku/pkg/logger"
	"yoyaku/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockReservationService struct {
	reserveFunc    func(ctx context.Context, req *service.ReserveRequest) (*model.Booking, error)
	getByDateFunc  func(ctx context.Context, date string) ([]*model.Booking, error)
	getByRangeFunc func(ctx context.Context, startDate, endDate string) ([]*model.Booking, error)
	statsFunc      func(ctx context.Context, startDate, endDate string) ([]*model.SlotCount, error)
	deleteFunc     func(ctx context.Context, id, fingerprint, token string) error
	deleteManyFunc func(ctx context.Context, ids []string, token string) (*service.BulkDeleteResult, error)
}

func (m *mockReservationService) Reserve(ctx context.Context, req *service.ReserveRequest) (*model.Booking, error) {
	if m.reserveFunc != nil {
		return m.reserveFunc(ctx, req)
	}
	return &model.Booking{ID: "1", Date: req.Date, Time: req.Time, CustomerName: req.CustomerName, Status: model.StatusConfirmed}, nil
}

func (m *mockReservationService) GetByDate(ctx context.Context, date string) ([]*model.Booking, error) {
	if m.getByDateFunc != nil {
		return m.getByDateFunc(ctx, date)
	}
	return nil, nil
}

func (m *mockReservationService) GetByRange(ctx context.Context, startDate, endDate string) ([]*model.Booking, error) {
	if m.getByRangeFunc != nil {
		return m.getByRangeFunc(ctx, startDate, endDate)
	}
	return nil, nil
}

func (m *mockReservationService) Stats(ctx context.Context, startDate, endDate string) ([]*model.SlotCount, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx, startDate, endDate)
	}
	return nil, nil
}

func (m *mockReservationService) Delete(ctx context.Context, id, fingerprint, token string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, fingerprint, token)
	}
	return nil
}

func (m *mockReservationService) DeleteMany(ctx context.Context, ids []string, token string) (*service.BulkDeleteResult, error) {
	if m.deleteManyFunc != nil {
		return m.deleteManyFunc(ctx, ids, token)
	}
	return &service.BulkDeleteResult{Deleted: len(ids)}, nil
}

func newRouter(svc service.ReservationService) *httprouter.Router {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	router := httprouter.New()
	NewBookingHandler(svc, log).RegisterRoutes(router)
	return router
}

func TestCreatePassesFingerprintHeader(t *testing.T) {
	var captured *service.ReserveRequest
	svc := &mockReservationService{
		reserveFunc: func(ctx context.Context, req *service.ReserveRequest) (*model.Booking, error) {
			captured = req
			return &model.Booking{ID: "1", Date: req.Date, Time: req.Time, CustomerName: req.CustomerName, Status: model.StatusConfirmed}, nil
		},
	}
	router := newRouter(svc)

	body := `{"date":"2025-06-10","time":"11:00","customer_name":"Taro"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderClientFingerprint, "client-a")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured == nil || captured.Fingerprint != "client-a" {
		t.Errorf("fingerprint header not forwarded: %+v", captured)
	}
}

func TestCreateMapsDomainErrorsToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"capacity full", apperrors.CapacityFull("full"), http.StatusConflict},
		{"duplicate", apperrors.DuplicateBooking("dup"), http.StatusConflict},
		{"slot closed", apperrors.SlotUnavailable("closed"), http.StatusConflict},
		{"rate limited", apperrors.QuotaExceeded("slow down"), http.StatusTooManyRequests},
		{"validation", apperrors.Validation("bad", nil), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockReservationService{
				reserveFunc: func(ctx context.Context, req *service.ReserveRequest) (*model.Booking, error) {
					return nil, tc.err
				},
			}
			router := newRouter(svc)

			body := `{"date":"2025-06-10","time":"11:00","customer_name":"Taro"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	router := newRouter(&mockReservationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetByDateRequiresDateParam(t *testing.T) {
	router := newRouter(&mockReservationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetByRangeReturnsEnvelope(t *testing.T) {
	svc := &mockReservationService{
		getByRangeFunc: func(ctx context.Context, startDate, endDate string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "1", Date: startDate, Time: "11:00", CustomerName: "Taro", Status: model.StatusConfirmed},
			}, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/range?start=2025-06-10&end=2025-06-12", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data []*model.Booking `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].CustomerName != "Taro" {
		t.Errorf("unexpected payload: %+v", resp.Data)
	}
}

func TestDeleteForwardsBearerToken(t *testing.T) {
	var gotToken, gotFingerprint string
	svc := &mockReservationService{
		deleteFunc: func(ctx context.Context, id, fingerprint, token string) error {
			gotFingerprint = fingerprint
			gotToken = token
			return nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/abc123", nil)
	req.Header.Set(HeaderAuthorization, "Bearer secret-token")
	req.Header.Set(HeaderClientFingerprint, "client-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotToken != "secret-token" || gotFingerprint != "client-a" {
		t.Errorf("credentials not forwarded: token=%q fingerprint=%q", gotToken, gotFingerprint)
	}
}

func TestBulkDeleteForwardsIDsAndToken(t *testing.T) {
	var gotIDs []string
	var gotToken string
	svc := &mockReservationService{
		deleteManyFunc: func(ctx context.Context, ids []string, token string) (*service.BulkDeleteResult, error) {
			gotIDs = ids
			gotToken = token
			return &service.BulkDeleteResult{Deleted: len(ids)}, nil
		},
	}
	router := newRouter(svc)

	body := `{"ids":["abc123","def456"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/bulk-delete", strings.NewReader(body))
	req.Header.Set(HeaderAuthorization, "Bearer secret-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotToken != "secret-token" || len(gotIDs) != 2 {
		t.Errorf("request not forwarded: token=%q ids=%v", gotToken, gotIDs)
	}

	var resp struct {
		Data service.BulkDeleteResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Data.Deleted != 2 {
		t.Errorf("expected 2 deletions reported, got %d", resp.Data.Deleted)
	}
}

func TestDeleteMapsAuthFailure(t *testing.T) {
	svc := &mockReservationService{
		deleteFunc: func(ctx context.Context, id, fingerprint, token string) error {
			return apperrors.AuthRequired("administrator credentials required")
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/id/abc123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
