package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/revibe-app/revibe-backend/api/controllers"
	"github.com/revibe-app/revibe-backend/api/middleware"
	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/auth"
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
	"github.com/revibe-app/revibe-backend/pkg/auth/session"
	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/db"
	"github.com/revibe-app/revibe-backend/pkg/logger"
	"github.com/revibe-app/revibe-backend/pkg/redis"
	"github.com/revibe-app/revibe-backend/pkg/storage/gcs"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gcsClient gcs.Pinger,
	metricsHandler http.Handler,
	sessions session.AccessSessionChecker,
	authService auth.Service,
	registerService auth.RegisterService,
	userService users.Service,
	profileService profiles.Service,
	categoryService categories.Service,
	setupService setup.Service,
	listingService listings.Service,
	orderService orders.Service,
	disputeService disputes.Service,
	returnService returns.Service,
	refundService refunds.Service,
	conversationService conversations.Service,
	verificationService verification.Service,
	storageService storage.Service,
	auditReader *audit.Reader,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": dbP,
			"redis":    redisClient,
			"gcs":      gcsClient,
		}))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		// Browse surface: anonymous welcome, but a valid token upgrades
		// what the caller can see.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg))
			r.Get("/v1/categories", controllers.CategoriesList(categoryService, logg))
			r.Get("/v1/listings", controllers.ListingsBrowse(listingService, logg))
			r.Get("/v1/listings/{listingId}", controllers.ListingDetail(listingService, logg))
			r.Get("/v1/profiles/{username}", controllers.PublicProfile(profileService, logg))
			r.Get("/v1/storage/buckets", controllers.StorageBuckets(storageService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Get("/v1/layout", controllers.Layout(profileService, categoryService, setupService, logg))

			r.Get("/v1/profiles/me", controllers.ProfileMe(profileService, logg))
			r.Patch("/v1/profiles/me", controllers.ProfileUpdate(profileService, logg))
			r.Delete("/v1/profiles/me", controllers.ProfileDelete(profileService, logg))
			r.Post("/v1/profiles/me/social-accounts", controllers.SocialAccountAdd(profileService, logg))
			r.Delete("/v1/profiles/me/social-accounts/{accountId}", controllers.SocialAccountRemove(profileService, logg))

			r.Route("/v1/setup", func(r chi.Router) {
				r.Get("/", controllers.SetupChecklist(setupService, logg))
				r.Post("/complete", controllers.SetupCompleteStep(setupService, logg))
			})

			r.Post("/v1/listings", controllers.ListingCreate(listingService, logg))
			r.Patch("/v1/listings/{listingId}", controllers.ListingUpdate(listingService, logg))
			r.Delete("/v1/listings/{listingId}", controllers.ListingDelete(listingService, logg))
			r.Post("/v1/listings/{listingId}/status", controllers.ListingChangeStatus(listingService, logg))

			r.Route("/v1/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderCreate(orderService, logg))
				r.Get("/", controllers.OrdersList(orderService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(orderService, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(orderService, logg))
				r.Post("/{orderId}/advance", controllers.OrderAdvance(orderService, logg))
				r.Post("/{orderId}/confirm-delivery", controllers.OrderConfirmDelivery(orderService, logg))
				r.Post("/{orderId}/shipments", controllers.OrderShip(orderService, logg))
				r.Post("/{orderId}/shipments/{shipmentId}/tracking", controllers.OrderTracking(orderService, logg))
			})

			r.Route("/v1/disputes", func(r chi.Router) {
				r.Post("/", controllers.DisputeOpen(disputeService, logg))
				r.Get("/", controllers.DisputesList(disputeService, logg))
				r.Get("/{disputeId}", controllers.DisputeDetail(disputeService, logg))
				r.Post("/{disputeId}/respond", controllers.DisputeRespond(disputeService, logg))
				r.Post("/{disputeId}/withdraw", controllers.DisputeWithdraw(disputeService, logg))
			})

			r.Route("/v1/returns", func(r chi.Router) {
				r.Post("/", controllers.ReturnRequest(returnService, logg))
				r.Get("/", controllers.ReturnsList(returnService, logg))
				r.Get("/{returnId}", controllers.ReturnDetail(returnService, logg))
				r.Post("/{returnId}/approve", controllers.ReturnApprove(returnService, logg))
				r.Post("/{returnId}/reject", controllers.ReturnReject(returnService, logg))
				r.Post("/{returnId}/ship-back", controllers.ReturnMarkShippedBack(returnService, logg))
				r.Post("/{returnId}/receive", controllers.ReturnMarkReceived(returnService, logg))
				r.Post("/{returnId}/inspection/start", controllers.ReturnStartInspection(returnService, logg))
				r.Post("/{returnId}/inspection/complete", controllers.ReturnCompleteInspection(returnService, logg))
				r.Post("/{returnId}/close", controllers.ReturnClose(returnService, logg))
			})

			r.Route("/v1/refund-requests", func(r chi.Router) {
				r.Post("/", controllers.RefundRequestCreate(refundService, logg))
				r.Get("/", controllers.RefundRequestsList(refundService, logg))
				r.Get("/{refundId}", controllers.RefundRequestDetail(refundService, logg))
			})

			r.Route("/v1/conversations", func(r chi.Router) {
				r.Post("/", controllers.ConversationStart(conversationService, logg))
				r.Get("/", controllers.ConversationsList(conversationService, logg))
				r.Get("/{conversationId}", controllers.ConversationDetail(conversationService, logg))
				r.Get("/{conversationId}/messages", controllers.ConversationMessages(conversationService, logg))
				r.Post("/{conversationId}/messages", controllers.ConversationSend(conversationService, logg))
				r.Post("/{conversationId}/read", controllers.ConversationMarkRead(conversationService, logg))
			})

			r.Route("/v1/verification", func(r chi.Router) {
				r.Post("/requests", controllers.VerificationSubmit(verificationService, logg))
				r.Get("/requests", controllers.VerificationList(verificationService, logg))
				r.Get("/requests/{requestId}", controllers.VerificationDetail(verificationService, logg))
				r.Patch("/requests/{requestId}", controllers.VerificationUpdate(verificationService, logg))
			})

			r.Post("/v1/storage/objects/authorize", controllers.StorageAuthorizeUpload(storageService, logg))
			r.Get("/v1/storage/objects", controllers.StorageObjectsList(storageService, logg))
			r.Get("/v1/storage/objects/{objectId}", controllers.StorageObjectGet(storageService, logg))
			r.Delete("/v1/storage/objects/{objectId}", controllers.StorageObjectDelete(storageService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/v1/users/{userId}/promote", controllers.AdminPromoteUser(userService, logg))

		r.Route("/v1/audit", func(r chi.Router) {
			r.Get("/entries", controllers.AuditEntries(auditReader, logg))
			r.Get("/approvals", controllers.AuditApprovals(auditReader, logg))
		})

		r.Post("/v1/categories", controllers.CategoryCreate(categoryService, logg))
		r.Patch("/v1/categories/{categoryId}", controllers.CategoryUpdate(categoryService, logg))

		r.Post("/v1/orders/{orderId}/cancel", controllers.AdminOrderCancel(orderService, logg))
		r.Post("/v1/orders/{orderId}/refund", controllers.AdminOrderRefund(orderService, logg))

		r.Route("/v1/disputes/{disputeId}", func(r chi.Router) {
			r.Post("/request-response", controllers.AdminDisputeRequestResponse(disputeService, logg))
			r.Post("/escalate", controllers.AdminDisputeEscalate(disputeService, logg))
			r.Post("/resolve", controllers.AdminDisputeResolve(disputeService, logg))
			r.Post("/close", controllers.AdminDisputeClose(disputeService, logg))
		})

		r.Route("/v1/refund-requests/{refundId}", func(r chi.Router) {
			r.Post("/approve", controllers.AdminRefundApprove(refundService, logg))
			r.Post("/reject", controllers.AdminRefundReject(refundService, logg))
			r.Post("/process", controllers.AdminRefundProcess(refundService, logg))
		})

		r.Route("/v1/verification", func(r chi.Router) {
			r.Post("/requests/{requestId}/approve", controllers.AdminVerificationApprove(verificationService, logg))
			r.Post("/requests/{requestId}/reject", controllers.AdminVerificationReject(verificationService, logg))
			r.Post("/requests/{requestId}/request-info", controllers.AdminVerificationRequestInfo(verificationService, logg))
			r.Post("/profiles/{profileId}/revoke", controllers.AdminVerificationRevoke(verificationService, logg))
		})
	})

	return r
}
