package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loopmind/subscription-service/internal/app"
	"github.com/loopmind/subscription-service/internal/domain"
	"github.com/loopmind/subscription-service/internal/store"
)

const testWebhookSecret = "whsec_test"
const testJWTSecret = "jwt-test-secret"

type handlerRepoStub struct {
	user    *domain.UserSubscription
	repoErr error

	mutationCalls int
}

func (s *handlerRepoStub) FindUserByID(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	if s.repoErr != nil {
		return nil, s.repoErr
	}
	if s.user == nil || s.user.ID != userID {
		return nil, store.ErrUserNotFound
	}
	return s.user, nil
}

func (s *handlerRepoStub) ActivateSubscription(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	s.mutationCalls++
	if s.repoErr != nil {
		return nil, s.repoErr
	}
	if s.user == nil || s.user.ID != userID {
		return nil, store.ErrUserNotFound
	}
	s.user.HasTrial = false
	s.user.IsSubscribed = true
	return s.user, nil
}

func (s *handlerRepoStub) MarkSubscribed(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	s.mutationCalls++
	if s.repoErr != nil {
		return nil, s.repoErr
	}
	if s.user == nil || s.user.ID != userID {
		return nil, store.ErrUserNotFound
	}
	s.user.IsSubscribed = true
	return s.user, nil
}

func (s *handlerRepoStub) MarkUnsubscribed(ctx context.Context, userID int64) (*domain.UserSubscription, error) {
	s.mutationCalls++
	if s.user == nil || s.user.ID != userID {
		return nil, store.ErrUserNotFound
	}
	s.user.IsSubscribed = false
	return s.user, nil
}

func (s *handlerRepoStub) CountSubscriptionTotals(ctx context.Context) (*domain.SubscriptionTotals, error) {
	return &domain.SubscriptionTotals{}, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return nil
}
func (noopPublisher) Close() {}

func newTestRouter(repo *handlerRepoStub) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewService(repo, noopPublisher{}, logger)
	handler := NewHandler(service, testWebhookSecret, logger)
	return NewRouter(handler, testJWTSecret)
}

func postWebhook(t *testing.T, router http.Handler, body, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/revenuecat/webhook", strings.NewReader(body))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_MissingCredentialReturns401(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 12, HasTrial: true}}
	router := newTestRouter(repo)

	rec := postWebhook(t, router, `{"event":"INITIAL_PURCHASE","app_user_id":"app_12"}`, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if repo.mutationCalls != 0 {
		t.Fatal("expected no user record to be modified")
	}
}

func TestWebhook_WrongCredentialReturns401(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 12, HasTrial: true}}
	router := newTestRouter(repo)

	rec := postWebhook(t, router, `{"event":"INITIAL_PURCHASE","app_user_id":"app_12"}`, "Bearer whsec_wrong")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if repo.mutationCalls != 0 {
		t.Fatal("expected no user record to be modified")
	}
}

func TestWebhook_NonBearerCredentialReturns401(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{})

	rec := postWebhook(t, router, `{}`, testWebhookSecret)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer header, got %d", rec.Code)
	}
}

func TestWebhook_MissingEventReturns400(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{user: &domain.UserSubscription{ID: 12}})

	rec := postWebhook(t, router, `{"app_user_id":"app_12"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhook_MissingAppUserIDReturns400(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{user: &domain.UserSubscription{ID: 12}})

	rec := postWebhook(t, router, `{"event":"RENEWAL"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhook_InitialPurchaseEndsTrialAndSubscribes(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 12, HasTrial: true}}
	router := newTestRouter(repo)

	rec := postWebhook(t, router, `{"event":"INITIAL_PURCHASE","app_user_id":"app_12"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.user.HasTrial {
		t.Fatal("expected has_trial to be cleared")
	}
	if !repo.user.IsSubscribed {
		t.Fatal("expected is_subscribed to be set")
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %q", resp["status"])
	}
}

func TestWebhook_ExpirationLeavesTrialUnchanged(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 9, HasTrial: true, IsSubscribed: true}}
	router := newTestRouter(repo)

	rec := postWebhook(t, router, `{"event":"EXPIRATION","app_user_id":"app_9"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.user.IsSubscribed {
		t.Fatal("expected is_subscribed to be cleared")
	}
	if !repo.user.HasTrial {
		t.Fatal("expected has_trial to be unchanged")
	}
}

func TestWebhook_CancellationChangesNothing(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 4, IsSubscribed: true}}
	router := newTestRouter(repo)

	rec := postWebhook(t, router, `{"event":"CANCELLATION","app_user_id":"app_4"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.mutationCalls != 0 {
		t.Fatal("expected no mutation for cancellation")
	}
	if !repo.user.IsSubscribed {
		t.Fatal("expected flags to be unchanged")
	}
}

func TestWebhook_UnknownEventAcknowledgedWithoutMutation(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 4, HasTrial: true}}
	router := newTestRouter(repo)

	rec := postWebhook(t, router, `{"event":"BILLING_ISSUE","app_user_id":"app_4"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown event, got %d", rec.Code)
	}
	if repo.mutationCalls != 0 {
		t.Fatal("expected no mutation for unknown event")
	}
}

func TestWebhook_RepositoryFailureReturns500(t *testing.T) {
	repo := &handlerRepoStub{
		user:    &domain.UserSubscription{ID: 12, HasTrial: true},
		repoErr: errors.New("db down"),
	}
	router := newTestRouter(repo)

	rec := postWebhook(t, router, `{"event":"INITIAL_PURCHASE","app_user_id":"app_12"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestWebhook_UnknownUserReturns404(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{})

	rec := postWebhook(t, router, `{"event":"RENEWAL","app_user_id":"app_999"}`, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWebhook_NestedProviderEnvelope(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 31}}
	router := newTestRouter(repo)

	body := `{"api_version":"1.0","event":{"type":"RENEWAL","app_user_id":"app_31"}}`
	rec := postWebhook(t, router, body, "Bearer "+testWebhookSecret)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !repo.user.IsSubscribed {
		t.Fatal("expected nested envelope to be dispatched")
	}
}

func TestWebhook_AcceptsAnyMethod(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 12}}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/revenuecat/webhook",
		strings.NewReader(`{"event":"RENEWAL","app_user_id":"app_12"}`))
	req.Header.Set("Authorization", "Bearer "+testWebhookSecret)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for PUT delivery, got %d", rec.Code)
	}
}

func TestCheckSubscription_ReturnsFlags(t *testing.T) {
	repo := &handlerRepoStub{user: &domain.UserSubscription{ID: 7, HasTrial: true}}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/subscription/check/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status domain.SubscriptionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if status.UserID != 7 || !status.HasTrial || status.IsSubscribed {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestCheckSubscription_UnknownUserReturns404(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/subscription/check/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckSubscription_RepositoryFailureReturns500(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{repoErr: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/subscription/check/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCheckSubscription_NonNumericIDReturns400(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/subscription/check/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&handlerRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
