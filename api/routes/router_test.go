package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/internal/auth"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/categories"
	"github.com/revibe-app/revibe-backend/internal/conversations"
	"github.com/revibe-app/revibe-backend/internal/disputes"
	"github.com/revibe-app/revibe-backend/internal/listings"
	"github.com/revibe-app/revibe-backend/internal/orders"
	"github.com/revibe-app/revibe-backend/internal/profiles"
	"github.com/revibe-app/revibe-backend/internal/refunds"
	"github.com/revibe-app/revibe-backend/internal/returns"
	"github.com/revibe-app/revibe-backend/internal/setup"
	"github.com/revibe-app/revibe-backend/internal/storage"
	"github.com/revibe-app/revibe-backend/internal/users"
	"github.com/revibe-app/revibe-backend/internal/verification"
	pkgauth "github.com/revibe-app/revibe-backend/pkg/auth"
	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/logger"
	"github.com/revibe-app/revibe-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubAuthService struct{}

func (stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Refresh(context.Context, auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return &auth.RefreshResponse{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (stubAuthService) Logout(context.Context, string) error { return nil }

type stubRegisterService struct{}

func (stubRegisterService) Register(context.Context, auth.RegisterRequest) (*auth.RegisterResponse, error) {
	return &auth.RegisterResponse{}, nil
}

type stubUserService struct{}

func (stubUserService) Get(context.Context, authz.Principal, uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func (stubUserService) Promote(context.Context, users.PromoteInput) (*users.UserDTO, error) {
	return &users.UserDTO{Role: enums.UserRoleModerator}, nil
}

type stubProfileService struct{}

func (stubProfileService) Me(context.Context, authz.Principal) (*profiles.ProfileDetail, error) {
	return &profiles.ProfileDetail{}, nil
}

func (stubProfileService) GetByUsername(context.Context, authz.Principal, string) (*profiles.ProfileDetail, error) {
	return &profiles.ProfileDetail{}, nil
}

func (stubProfileService) Update(context.Context, profiles.UpdateInput) (*profiles.ProfileDTO, error) {
	return &profiles.ProfileDTO{}, nil
}

func (stubProfileService) Delete(context.Context, authz.Principal) error { return nil }

func (stubProfileService) AddSocialAccount(context.Context, profiles.AddSocialAccountInput) (*profiles.SocialAccountDTO, error) {
	return &profiles.SocialAccountDTO{}, nil
}

func (stubProfileService) RemoveSocialAccount(context.Context, authz.Principal, uuid.UUID) error {
	return nil
}

type stubCategoryService struct{}

func (stubCategoryService) List(context.Context, authz.Principal) ([]categories.CategoryDTO, error) {
	return []categories.CategoryDTO{}, nil
}

func (stubCategoryService) Create(context.Context, categories.CreateInput) (*categories.CategoryDTO, error) {
	return &categories.CategoryDTO{}, nil
}

func (stubCategoryService) Update(context.Context, categories.UpdateInput) (*categories.CategoryDTO, error) {
	return &categories.CategoryDTO{}, nil
}

type stubSetupService struct{}

func (stubSetupService) Checklist(context.Context, authz.Principal) (*setup.ChecklistDTO, error) {
	return &setup.ChecklistDTO{}, nil
}

func (stubSetupService) CompleteStep(context.Context, setup.CompleteStepInput) (*setup.ChecklistDTO, error) {
	return &setup.ChecklistDTO{}, nil
}

type stubListingService struct{}

func (stubListingService) Browse(context.Context, authz.Principal, listings.BrowseInput) (*listings.BrowsePage, error) {
	return &listings.BrowsePage{}, nil
}

func (stubListingService) Get(context.Context, authz.Principal, uuid.UUID) (*listings.ListingDTO, error) {
	return &listings.ListingDTO{}, nil
}

func (stubListingService) Create(context.Context, listings.CreateInput) (*listings.ListingDTO, error) {
	return &listings.ListingDTO{}, nil
}

func (stubListingService) Update(context.Context, listings.UpdateInput) (*listings.ListingDTO, error) {
	return &listings.ListingDTO{}, nil
}

func (stubListingService) ChangeStatus(context.Context, listings.StatusInput) (*listings.ListingDTO, error) {
	return &listings.ListingDTO{}, nil
}

func (stubListingService) Delete(context.Context, authz.Principal, uuid.UUID) error { return nil }

type stubOrderService struct{}

func (stubOrderService) Create(context.Context, orders.CreateInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) List(context.Context, authz.Principal, orders.ListInput) (*orders.OrderPage, error) {
	return &orders.OrderPage{}, nil
}

func (stubOrderService) Get(context.Context, authz.Principal, uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) Cancel(context.Context, authz.Principal, uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) Advance(context.Context, orders.AdvanceInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) Ship(context.Context, orders.ShipInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) UpdateTracking(context.Context, orders.TrackingInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) ConfirmDelivery(context.Context, authz.Principal, uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) MarkPayment(context.Context, orders.PaymentInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) AdminCancel(context.Context, orders.AdminActionInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrderService) AdminRefund(context.Context, orders.AdminActionInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

type stubDisputeService struct{}

func (stubDisputeService) Open(context.Context, disputes.OpenInput) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

func (stubDisputeService) List(context.Context, authz.Principal, disputes.ListInput) (*disputes.DisputePage, error) {
	return &disputes.DisputePage{}, nil
}

func (stubDisputeService) Get(context.Context, authz.Principal, uuid.UUID) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

func (stubDisputeService) Respond(context.Context, authz.Principal, uuid.UUID) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

func (stubDisputeService) Withdraw(context.Context, authz.Principal, uuid.UUID) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

func (stubDisputeService) RequestResponse(context.Context, disputes.RequestResponseInput) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

func (stubDisputeService) Escalate(context.Context, disputes.DecisionInput) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

func (stubDisputeService) Resolve(context.Context, disputes.DecisionInput) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

func (stubDisputeService) Close(context.Context, disputes.DecisionInput) (*disputes.DisputeDTO, error) {
	return &disputes.DisputeDTO{}, nil
}

type stubReturnService struct{}

func (stubReturnService) Request(context.Context, returns.RequestInput) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) List(context.Context, authz.Principal, returns.ListInput) (*returns.ReturnPage, error) {
	return &returns.ReturnPage{}, nil
}

func (stubReturnService) Get(context.Context, authz.Principal, uuid.UUID) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) Approve(context.Context, authz.Principal, uuid.UUID) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) Reject(context.Context, returns.RejectInput) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) MarkShippedBack(context.Context, authz.Principal, uuid.UUID) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) MarkReceived(context.Context, authz.Principal, uuid.UUID) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) StartInspection(context.Context, authz.Principal, uuid.UUID) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) CompleteInspection(context.Context, returns.InspectionInput) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

func (stubReturnService) Close(context.Context, authz.Principal, uuid.UUID) (*returns.ReturnDTO, error) {
	return &returns.ReturnDTO{}, nil
}

type stubRefundService struct{}

func (stubRefundService) Request(context.Context, refunds.RequestInput) (*refunds.RefundRequestDTO, error) {
	return &refunds.RefundRequestDTO{}, nil
}

func (stubRefundService) List(context.Context, authz.Principal, refunds.ListInput) (*refunds.RefundRequestPage, error) {
	return &refunds.RefundRequestPage{}, nil
}

func (stubRefundService) Get(context.Context, authz.Principal, uuid.UUID) (*refunds.RefundRequestDTO, error) {
	return &refunds.RefundRequestDTO{}, nil
}

func (stubRefundService) Approve(context.Context, refunds.DecisionInput) (*refunds.RefundRequestDTO, error) {
	return &refunds.RefundRequestDTO{}, nil
}

func (stubRefundService) Reject(context.Context, refunds.DecisionInput) (*refunds.RefundRequestDTO, error) {
	return &refunds.RefundRequestDTO{}, nil
}

func (stubRefundService) Process(context.Context, refunds.DecisionInput) (*refunds.RefundRequestDTO, error) {
	return &refunds.RefundRequestDTO{}, nil
}

type stubConversationService struct{}

func (stubConversationService) Start(context.Context, conversations.StartInput) (*conversations.ConversationDTO, error) {
	return &conversations.ConversationDTO{}, nil
}

func (stubConversationService) List(context.Context, authz.Principal, conversations.ListInput) (*conversations.ConversationPage, error) {
	return &conversations.ConversationPage{}, nil
}

func (stubConversationService) Get(context.Context, authz.Principal, uuid.UUID) (*conversations.ConversationDTO, error) {
	return &conversations.ConversationDTO{}, nil
}

func (stubConversationService) Messages(context.Context, authz.Principal, conversations.MessagesInput) (*conversations.MessagePage, error) {
	return &conversations.MessagePage{}, nil
}

func (stubConversationService) Send(context.Context, conversations.SendInput) (*conversations.MessageDTO, error) {
	return &conversations.MessageDTO{}, nil
}

func (stubConversationService) MarkRead(context.Context, authz.Principal, uuid.UUID) (int, error) {
	return 0, nil
}

type stubVerificationService struct{}

func (stubVerificationService) Submit(context.Context, verification.SubmitInput) (*verification.RequestDTO, error) {
	return &verification.RequestDTO{}, nil
}

func (stubVerificationService) List(context.Context, authz.Principal, verification.ListInput) (*verification.RequestPage, error) {
	return &verification.RequestPage{}, nil
}

func (stubVerificationService) Get(context.Context, authz.Principal, uuid.UUID) (*verification.RequestDTO, error) {
	return &verification.RequestDTO{}, nil
}

func (stubVerificationService) Update(context.Context, verification.UpdateInput) (*verification.RequestDTO, error) {
	return &verification.RequestDTO{}, nil
}

func (stubVerificationService) Approve(context.Context, verification.DecisionInput) (*verification.RequestDTO, error) {
	return &verification.RequestDTO{}, nil
}

func (stubVerificationService) Reject(context.Context, verification.DecisionInput) (*verification.RequestDTO, error) {
	return &verification.RequestDTO{}, nil
}

func (stubVerificationService) RequestInfo(context.Context, verification.DecisionInput) (*verification.RequestDTO, error) {
	return &verification.RequestDTO{}, nil
}

func (stubVerificationService) Revoke(context.Context, verification.RevokeInput) error { return nil }

type stubStorageService struct{}

func (stubStorageService) Buckets(context.Context) ([]storage.BucketDTO, error) {
	return []storage.BucketDTO{}, nil
}

func (stubStorageService) AuthorizeUpload(context.Context, storage.AuthorizeUploadInput) (*storage.UploadAuthorizationDTO, error) {
	return &storage.UploadAuthorizationDTO{}, nil
}

func (stubStorageService) Get(context.Context, authz.Principal, uuid.UUID) (*storage.ObjectDTO, error) {
	return &storage.ObjectDTO{}, nil
}

func (stubStorageService) List(context.Context, authz.Principal, storage.ListInput) (*storage.ObjectPage, error) {
	return &storage.ObjectPage{}, nil
}

func (stubStorageService) Delete(context.Context, storage.DeleteInput) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "router-test-secret",
			Issuer:                 "revibe-test",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginEmailLimit:    5,
			LoginIPLimit:       20,
			RegisterWindow:     5 * time.Minute,
			RegisterEmailLimit: 3,
			RegisterIPLimit:    20,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubPinger{},
		nil,
		stubSessionChecker{},
		stubAuthService{},
		stubRegisterService{},
		stubUserService{},
		stubProfileService{},
		stubCategoryService{},
		stubSetupService{},
		stubListingService{},
		stubOrderService{},
		stubDisputeService{},
		stubReturnService{},
		stubRefundService{},
		stubConversationService{},
		stubVerificationService{},
		stubStorageService{},
		nil,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:    uuid.New(),
		ProfileID: uuid.New(),
		Role:      role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestBrowseAllowsAnonymous(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{
		"/api/v1/categories",
		"/api/v1/listings",
		"/api/v1/storage/buckets",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d: %s", path, resp.Code, resp.Body.String())
		}
	}
}

func TestAuthedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/layout", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAuthedGroupAcceptsJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/layout", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	target := "/api/admin/v1/users/" + uuid.NewString() + "/promote"
	body := []byte(`{"role": "moderator"}`)

	nonAdmin := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	nonAdmin.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	admin.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRefreshDoesNotNeedSession(t *testing.T) {
	router := newTestRouter(testConfig())
	body := []byte(`{"access_token": "stale", "refresh_token": "still-good"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/does-not-exist", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
