package authz

// Table names as policies key them. These match the relation names the
// migrations create.
const (
	TableUsers                     = "users"
	TableProfiles                  = "profiles"
	TableSocialMediaAccounts       = "social_media_accounts"
	TableCategories                = "categories"
	TableListings                  = "listings"
	TableCarts                     = "carts"
	TableCartItems                 = "cart_items"
	TableProfileStats              = "profile_stats"
	TableSetupProgress             = "setup_progress"
	TableOrders                    = "orders"
	TableOrderShipments            = "order_shipments"
	TableDisputes                  = "disputes"
	TableReturns                   = "returns"
	TableRefundRequests            = "refund_requests"
	TableConversations             = "conversations"
	TableMessages                  = "messages"
	TableBrandVerificationRequests = "brand_verification_requests"
	TablePayouts                   = "payouts"
	TableAdminApprovals            = "admin_approvals"
	TableAdminAuditLog             = "admin_audit_log"
	TableSecurityEvents            = "security_events"
	TableStorageBuckets            = "storage_buckets"
	TableStorageObjects            = "storage_objects"
)
