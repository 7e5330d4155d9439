package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	companyP = security.Principal{UserID: "u-company", Role: domain.RoleCompany, CompanyID: "c-1"}
	seekerP  = security.Principal{UserID: "u-seeker", Role: domain.RoleSeeker, SeekerID: "s-1"}
	adminP   = security.Principal{UserID: "u-admin", Role: domain.RoleAdmin}
)

func as(r *http.Request, p security.Principal) *http.Request {
	return r.WithContext(security.WithPrincipal(r.Context(), p))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NotFoundf("job %s", "j-1"), http.StatusNotFound},
		{domain.Conflictf("already applied"), http.StatusConflict},
		{domain.Forbiddenf("not yours"), http.StatusForbidden},
		{domain.InvalidStatef("terminal"), http.StatusUnprocessableEntity},
		{&domain.ValidationError{Msg: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", &domain.ValidationError{Msg: "bad"}), http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, quiet, httptest.NewRequest(http.MethodGet, "/api/jobs", nil), errors.New("pq: connection refused"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "internal error" {
		t.Fatalf("internal error leaked: %q", msg)
	}
}

type stubApplications struct {
	ApplicationManager

	gotFilter  domain.ApplicationFilter
	gotInput   service.ApplyInput
	gotID      string
	gotStatus  string
	gotInfo    domain.AdditionalInfo
	transition error
}

func (s *stubApplications) List(_ context.Context, _ security.Principal, f domain.ApplicationFilter) ([]*domain.Application, error) {
	s.gotFilter = f
	return nil, nil
}

func (s *stubApplications) Apply(_ context.Context, p security.Principal, in service.ApplyInput) (*domain.Application, error) {
	s.gotInput = in
	return &domain.Application{ID: "a-1", JobID: in.JobID, SeekerID: in.SeekerID, Status: domain.StatusPending}, nil
}

func (s *stubApplications) Transition(_ context.Context, _ security.Principal, id, status string) (*domain.Application, error) {
	s.gotID, s.gotStatus = id, status
	if s.transition != nil {
		return nil, s.transition
	}
	return &domain.Application{ID: id, Status: domain.ApplicationStatus(status)}, nil
}

func (s *stubApplications) SupplyAdditionalInfo(_ context.Context, _ security.Principal, id string, info domain.AdditionalInfo) (*domain.Application, error) {
	s.gotID, s.gotInfo = id, info
	return &domain.Application{ID: id}, nil
}

func (s *stubApplications) Unsave(_ context.Context, _ security.Principal, id string) error {
	s.gotID = id
	return nil
}

func applicationsMux(stub *stubApplications) *http.ServeMux {
	h := NewApplicationsHandler(stub, quiet)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/applications", h.List)
	mux.HandleFunc("POST /api/applications", h.Create)
	mux.HandleFunc("POST /api/admin/applications", h.HRSave)
	mux.HandleFunc("PUT /api/applications/{id}/status", h.UpdateStatus)
	mux.HandleFunc("PUT /api/applications/{id}/additional-info", h.AdditionalInfo)
	mux.HandleFunc("DELETE /api/company/saved-applications", h.Unsave)
	return mux
}

func TestUpdateStatus(t *testing.T) {
	t.Run("forwards path id and status", func(t *testing.T) {
		stub := &stubApplications{}
		req := httptest.NewRequest(http.MethodPut, "/api/applications/a-9/status", strings.NewReader(`{"status":"OPENED"}`))
		rec := httptest.NewRecorder()
		applicationsMux(stub).ServeHTTP(rec, as(req, companyP))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.gotID != "a-9" || stub.gotStatus != "OPENED" {
			t.Fatalf("unexpected call: id=%q status=%q", stub.gotID, stub.gotStatus)
		}
	})

	t.Run("illegal transition is 422", func(t *testing.T) {
		stub := &stubApplications{transition: domain.InvalidStatef("ACCEPTED -> PENDING")}
		req := httptest.NewRequest(http.MethodPut, "/api/applications/a-9/status", strings.NewReader(`{"status":"PENDING"}`))
		rec := httptest.NewRecorder()
		applicationsMux(stub).ServeHTTP(rec, as(req, companyP))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("missing status is 400", func(t *testing.T) {
		stub := &stubApplications{}
		req := httptest.NewRequest(http.MethodPut, "/api/applications/a-9/status", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		applicationsMux(stub).ServeHTTP(rec, as(req, companyP))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.gotID != "" {
			t.Fatal("service should not be called")
		}
	})

	t.Run("anonymous is 401", func(t *testing.T) {
		stub := &stubApplications{}
		req := httptest.NewRequest(http.MethodPut, "/api/applications/a-9/status", strings.NewReader(`{"status":"OPENED"}`))
		rec := httptest.NewRecorder()
		applicationsMux(stub).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestListApplicationsFilters(t *testing.T) {
	t.Run("company filters", func(t *testing.T) {
		stub := &stubApplications{}
		req := httptest.NewRequest(http.MethodGet, "/api/applications?jobId=j-1&status=REVIEWING&needsMoreInfo=true&seekerId=s-2", nil)
		rec := httptest.NewRecorder()
		applicationsMux(stub).ServeHTTP(rec, as(req, companyP))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Fatalf("empty list should encode as [], got %s", rec.Body.String())
		}
		f := stub.gotFilter
		if f.JobID != "j-1" || f.Status != domain.StatusReviewing || f.NeedsMoreInfo == nil || !*f.NeedsMoreInfo {
			t.Fatalf("unexpected filter: %+v", f)
		}
		if f.SeekerID != "" {
			t.Fatal("only admins may filter by seeker")
		}
	})

	t.Run("admin may filter by seeker", func(t *testing.T) {
		stub := &stubApplications{}
		req := httptest.NewRequest(http.MethodGet, "/api/applications?seekerId=s-2", nil)
		applicationsMux(stub).ServeHTTP(httptest.NewRecorder(), as(req, adminP))
		if stub.gotFilter.SeekerID != "s-2" {
			t.Fatalf("expected seeker filter, got %+v", stub.gotFilter)
		}
	})

	t.Run("unknown status is 400", func(t *testing.T) {
		stub := &stubApplications{}
		req := httptest.NewRequest(http.MethodGet, "/api/applications?status=HIRED", nil)
		rec := httptest.NewRecorder()
		applicationsMux(stub).ServeHTTP(rec, as(req, companyP))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestApplyChannels(t *testing.T) {
	stub := &stubApplications{}
	mux := applicationsMux(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(`{"jobId":"j-1"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, as(req, seekerP))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if stub.gotInput.Channel != domain.ChannelSelfApplied {
		t.Fatalf("expected SELF_APPLIED, got %q", stub.gotInput.Channel)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/applications", strings.NewReader(`{"jobId":"j-1","seekerId":"s-2"}`))
	mux.ServeHTTP(httptest.NewRecorder(), as(req, adminP))
	if stub.gotInput.Channel != domain.ChannelHRSaved || stub.gotInput.SeekerID != "s-2" {
		t.Fatalf("unexpected hr save input: %+v", stub.gotInput)
	}
}

func TestAdditionalInfo(t *testing.T) {
	stub := &stubApplications{}
	body := `{"additionalSkills":"cooking","adminNotes":"called","needsMoreInfo":true}`
	req := httptest.NewRequest(http.MethodPut, "/api/applications/a-3/additional-info", strings.NewReader(body))
	rec := httptest.NewRecorder()
	applicationsMux(stub).ServeHTTP(rec, as(req, adminP))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.gotID != "a-3" || stub.gotInfo.AdditionalSkills != "cooking" || stub.gotInfo.AdminNotes != "called" {
		t.Fatalf("unexpected info: %+v", stub.gotInfo)
	}
	if stub.gotInfo.NeedsMoreInfo == nil || !*stub.gotInfo.NeedsMoreInfo {
		t.Fatal("needsMoreInfo override lost")
	}
}

func TestUnsaveRequiresApplicationID(t *testing.T) {
	stub := &stubApplications{}
	rec := httptest.NewRecorder()
	applicationsMux(stub).ServeHTTP(rec, as(httptest.NewRequest(http.MethodDelete, "/api/company/saved-applications", nil), companyP))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	applicationsMux(stub).ServeHTTP(rec, as(httptest.NewRequest(http.MethodDelete, "/api/company/saved-applications?applicationId=a-1", nil), companyP))
	if rec.Code != http.StatusOK || stub.gotID != "a-1" {
		t.Fatalf("expected unsave of a-1, got %d %q", rec.Code, stub.gotID)
	}
}

type stubMatcher struct {
	Matcher
	gotSeeker string
}

func (s *stubMatcher) MatchJob(_ context.Context, _ security.Principal, jobID, seekerID string) (*service.JobMatch, error) {
	s.gotSeeker = seekerID
	if seekerID == "" {
		return nil, &domain.ValidationError{Msg: "seekerId is required"}
	}
	return &service.JobMatch{JobID: jobID, SeekerID: seekerID, MatchCount: 2}, nil
}

func TestMatchDefaultsToCallingSeeker(t *testing.T) {
	stub := &stubMatcher{}
	h := NewJobsHandler(stub, quiet)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs/{id}/match", h.Match)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/jobs/j-1/match", nil), seekerP))
	if rec.Code != http.StatusOK || stub.gotSeeker != "s-1" {
		t.Fatalf("expected match for s-1, got %d %q", rec.Code, stub.gotSeeker)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/jobs/j-1/match", nil), companyP))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("company without seekerId should get 400, got %d", rec.Code)
	}
}

func TestTransitLines(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJobsHandler(&stubMatcher{}, quiet).TransitLines(rec, httptest.NewRequest(http.MethodGet, "/api/transit-lines", nil))

	var lines []domain.TransitLineInfo
	if err := json.NewDecoder(rec.Body).Decode(&lines); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lines) != len(domain.TransitLines) || lines[0].ID != domain.LineRed {
		t.Fatalf("unexpected catalog: %+v", lines)
	}
}

type stubLedger struct {
	Ledger
	paid string
}

func (s *stubLedger) PayOrder(_ context.Context, _ security.Principal, orderID string) (*service.PaymentResult, error) {
	s.paid = orderID
	return &service.PaymentResult{Order: &domain.Order{ID: orderID, Status: domain.OrderPaid}, CreditsRemaining: 55}, nil
}

func TestPayOrder(t *testing.T) {
	stub := &stubLedger{}
	h := NewLedgerHandler(nil, stub, quiet)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/company/orders/{id}/pay", h.PayOrder)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPost, "/api/company/orders/o-7/pay", nil), companyP))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.paid != "o-7" {
		t.Fatalf("expected o-7 to be paid, got %q", stub.paid)
	}
	var res service.PaymentResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.CreditsRemaining != 55 {
		t.Fatalf("expected 55 credits, got %d", res.CreditsRemaining)
	}
}

func TestReady(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": ok}, quiet).Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": down}, quiet).Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Checks["postgres"] != "ok" || !strings.HasPrefix(body.Checks["redis"], "error:") {
		t.Fatalf("unexpected checks: %+v", body.Checks)
	}
}

type stubAuth struct{}

func (stubAuth) Register(_ context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	return &service.AuthResult{Token: "t", UserID: "u-1", Role: in.Role}, nil
}

func (stubAuth) Login(_ context.Context, email, password string) (*service.AuthResult, error) {
	if password != "correct-horse" {
		return nil, service.ErrInvalidCredentials
	}
	return &service.AuthResult{Token: "t", UserID: "u-1"}, nil
}

func TestLogin(t *testing.T) {
	h := NewAuthHandler(stubAuth{}, quiet)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"email":"a@b.co","password":"correct-horse"}`, http.StatusOK},
		{"bad password", `{"email":"a@b.co","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{"email":"a@b.co"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
