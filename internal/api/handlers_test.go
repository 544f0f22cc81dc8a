package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PawanLambole/haji-fitness-point/internal/app"
	"github.com/PawanLambole/haji-fitness-point/internal/domain"
	"github.com/PawanLambole/haji-fitness-point/internal/store"
)

const testSecret = "test-signing-secret"

// stubService implements Service with overridable function fields.
type stubService struct {
	registerFn     func(ctx context.Context, creatorID string, draft domain.MemberDraft) (*app.RegisterResult, error)
	listFn         func(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error)
	profileFn      func(ctx context.Context, id uuid.UUID) (*domain.MemberProfile, error)
	updateFn       func(ctx context.Context, callerID string, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error)
	deleteFn       func(ctx context.Context, callerID string, id uuid.UUID) error
	renewFn        func(ctx context.Context, callerID string, id uuid.UUID, extraMonths int) (*domain.Member, error)
	attachPhotoFn  func(ctx context.Context, callerID string, id uuid.UUID, filename, contentType string, body io.Reader) (*domain.Member, error)
	removePhotoFn  func(ctx context.Context, callerID string, id uuid.UUID) (*domain.Member, error)
	listPaymentsFn func(ctx context.Context, memberID uuid.UUID) ([]domain.Payment, error)
	statsFn        func(ctx context.Context) (*domain.PaymentStats, error)
}

func (s *stubService) RegisterMember(ctx context.Context, creatorID string, draft domain.MemberDraft) (*app.RegisterResult, error) {
	return s.registerFn(ctx, creatorID, draft)
}

func (s *stubService) ListMembers(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error) {
	return s.listFn(ctx, filters)
}

func (s *stubService) GetMemberProfile(ctx context.Context, id uuid.UUID) (*domain.MemberProfile, error) {
	return s.profileFn(ctx, id)
}

func (s *stubService) UpdateMember(ctx context.Context, callerID string, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error) {
	return s.updateFn(ctx, callerID, id, patch)
}

func (s *stubService) DeleteMember(ctx context.Context, callerID string, id uuid.UUID) error {
	return s.deleteFn(ctx, callerID, id)
}

func (s *stubService) RenewMembership(ctx context.Context, callerID string, id uuid.UUID, extraMonths int) (*domain.Member, error) {
	return s.renewFn(ctx, callerID, id, extraMonths)
}

func (s *stubService) AttachPhoto(ctx context.Context, callerID string, id uuid.UUID, filename, contentType string, body io.Reader) (*domain.Member, error) {
	return s.attachPhotoFn(ctx, callerID, id, filename, contentType, body)
}

func (s *stubService) RemovePhoto(ctx context.Context, callerID string, id uuid.UUID) (*domain.Member, error) {
	return s.removePhotoFn(ctx, callerID, id)
}

func (s *stubService) ListPayments(ctx context.Context, memberID uuid.UUID) ([]domain.Payment, error) {
	return s.listPaymentsFn(ctx, memberID)
}

func (s *stubService) PaymentStats(ctx context.Context) (*domain.PaymentStats, error) {
	return s.statsFn(ctx)
}

func testRouter(service Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(service, logger, 20)
	return NewRouter(handler, testSecret, nil, 0)
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func authedRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "admin-1"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestRoutesRequireAuth(t *testing.T) {
	router := testRouter(&stubService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/members", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	router := testRouter(&stubService{})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	router := testRouter(&stubService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListMembersPagination(t *testing.T) {
	var gotFilters domain.MemberFilters
	service := &stubService{
		listFn: func(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error) {
			gotFilters = filters
			members := make([]domain.Member, filters.Limit)
			for i := range members {
				members[i] = domain.Member{ID: uuid.New()}
			}
			return members, nil
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/members?q=asha&active=true&limit=5&offset=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "asha", gotFilters.Search)
	require.NotNil(t, gotFilters.IsActive)
	assert.True(t, *gotFilters.IsActive)
	assert.Equal(t, 5, gotFilters.Limit)
	assert.Equal(t, 10, gotFilters.Offset)

	var body struct {
		Members []domain.Member `json:"members"`
		HasMore bool            `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Members, 5)
	assert.True(t, body.HasMore)
}

func TestListMembersClampsOversizedLimit(t *testing.T) {
	var gotFilters domain.MemberFilters
	service := &stubService{
		listFn: func(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error) {
			gotFilters = filters
			members := make([]domain.Member, filters.Limit)
			for i := range members {
				members[i] = domain.Member{ID: uuid.New()}
			}
			return members, nil
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/members?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, store.MaxListLimit, gotFilters.Limit)

	var body struct {
		Members []domain.Member `json:"members"`
		HasMore bool            `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Members, store.MaxListLimit)
	assert.True(t, body.HasMore, "a full capped page still means more may exist")
}

func TestListMembersRejectsBadParams(t *testing.T) {
	router := testRouter(&stubService{})

	for _, target := range []string{
		"/members?active=maybe",
		"/members?limit=0",
		"/members?limit=abc",
		"/members?offset=-1",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(t, http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestRegisterMemberCreated(t *testing.T) {
	service := &stubService{
		registerFn: func(ctx context.Context, creatorID string, draft domain.MemberDraft) (*app.RegisterResult, error) {
			assert.Equal(t, "admin-1", creatorID)
			assert.Equal(t, "Asha Rao", draft.FullName)
			return &app.RegisterResult{
				Member:       &domain.Member{ID: uuid.New(), FullName: draft.FullName, AssignmentNumber: "2025001"},
				WhatsAppLink: "https://wa.me/919876543210?text=hi",
			}, nil
		},
	}
	router := testRouter(service)

	payload := `{"full_name":"Asha Rao","phone_number":"9876543210","plan_mode":true,"plan_id":"3months"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/members", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var result app.RegisterResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "2025001", result.Member.AssignmentNumber)
}

func TestRegisterMemberValidationError(t *testing.T) {
	service := &stubService{
		registerFn: func(ctx context.Context, creatorID string, draft domain.MemberDraft) (*app.RegisterResult, error) {
			return nil, app.NewValidationError("Full name is required")
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/members", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Full name is required", body["error"])
}

func TestRegisterMemberConflict(t *testing.T) {
	service := &stubService{
		registerFn: func(ctx context.Context, creatorID string, draft domain.MemberDraft) (*app.RegisterResult, error) {
			return nil, app.ErrAllocationConflict
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/members", strings.NewReader(`{"full_name":"X"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetMemberNotFound(t *testing.T) {
	service := &stubService{
		profileFn: func(ctx context.Context, id uuid.UUID) (*domain.MemberProfile, error) {
			return nil, store.ErrMemberNotFound
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/members/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMemberBadID(t *testing.T) {
	router := testRouter(&stubService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/members/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMemberProfile(t *testing.T) {
	id := uuid.New()
	service := &stubService{
		profileFn: func(ctx context.Context, got uuid.UUID) (*domain.MemberProfile, error) {
			assert.Equal(t, id, got)
			return &domain.MemberProfile{
				Member:              domain.Member{ID: got, FullName: "Asha Rao"},
				Status:              domain.StatusActive,
				RecentPaymentMethod: "upi",
			}, nil
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/members/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var profile domain.MemberProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, domain.StatusActive, profile.Status)
	assert.Equal(t, "upi", profile.RecentPaymentMethod)
}

func TestDeleteMemberNoContent(t *testing.T) {
	service := &stubService{
		deleteFn: func(ctx context.Context, callerID string, id uuid.UUID) error {
			assert.Equal(t, "admin-1", callerID)
			return nil
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodDelete, "/members/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRenewMembership(t *testing.T) {
	service := &stubService{
		renewFn: func(ctx context.Context, callerID string, id uuid.UUID, extraMonths int) (*domain.Member, error) {
			assert.Equal(t, 2, extraMonths)
			return &domain.Member{ID: id, MembershipEnd: "2025-08-10"}, nil
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/members/"+uuid.NewString()+"/renew", strings.NewReader(`{"months":2}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var member domain.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &member))
	assert.Equal(t, "2025-08-10", member.MembershipEnd)
}

func TestAttachPhotoRequiresFile(t *testing.T) {
	router := testRouter(&stubService{})

	var buf bytes.Buffer
	req := authedRequest(t, http.MethodPost, "/members/"+uuid.NewString()+"/photo", &buf)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentStats(t *testing.T) {
	service := &stubService{
		statsFn: func(ctx context.Context) (*domain.PaymentStats, error) {
			return &domain.PaymentStats{TotalRevenue: 5400, TotalPayments: 4, CashPayments: 3, UPIPayments: 1}, nil
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/payments/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats domain.PaymentStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 5400.0, stats.TotalRevenue)
	assert.Equal(t, 3, stats.CashPayments)
}

func TestListPayments(t *testing.T) {
	memberID := uuid.New()
	service := &stubService{
		listPaymentsFn: func(ctx context.Context, got uuid.UUID) ([]domain.Payment, error) {
			assert.Equal(t, memberID, got)
			return []domain.Payment{{ID: uuid.New(), Amount: 1500, PaymentMethod: "cash"}}, nil
		},
	}
	router := testRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/members/"+memberID.String()+"/payments", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Payments []domain.Payment `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Payments, 1)
	assert.Equal(t, 1500.0, body.Payments[0].Amount)
}

func TestListPlans(t *testing.T) {
	router := testRouter(&stubService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []domain.MembershipPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	require.Len(t, plans, len(domain.MembershipPlans))
	assert.Equal(t, "1month", plans[0].ID)
}
