package authz

import (
	"strings"

	"github.com/revibe-app/revibe-backend/internal/lifecycle"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/metrics"
)

// Row views for tables whose ownership is transitive. Services load the
// parent row and hand both to the policy check; predicates stay pure.

type CartItemRow struct {
	Item *models.CartItem
	Cart *models.Cart
}

type OrderShipmentRow struct {
	Shipment *models.OrderShipment
	Order    *models.Order
}

type ReturnRow struct {
	Return *models.Return
	Order  *models.Order
}

type RefundRequestRow struct {
	Refund *models.RefundRequest
	Order  *models.Order
}

type MessageRow struct {
	Message      *models.Message
	Conversation *models.Conversation
}

type StorageObjectRow struct {
	Object *models.StorageObject
	Bucket *models.StorageBucket
}

// PublicListingStatuses is the status subset visible without ownership.
var PublicListingStatuses = []enums.ListingStatus{
	enums.ListingStatusActive,
	enums.ListingStatusReserved,
	enums.ListingStatusSold,
}

// BuildRegistry declares every row policy in one place, table by table in
// schema order. Operations missing from a table's list deny everyone, which
// is what keeps the append-only tables append-only.
func BuildRegistry(m *metrics.AccessMetrics) *Registry {
	r := NewRegistry(m)

	r.Register(TableUsers, OpSelect, ownUser(), AdminOverride())
	r.Register(TableUsers, OpUpdate, ownUser(), AdminOverride())
	r.Register(TableUsers, OpDelete, AdminOverride())

	r.Register(TableProfiles, OpSelect, publicProfile(), ownProfile(), AdminOverride())
	r.Register(TableProfiles, OpUpdate, ownLiveProfile(), AdminOverride())
	r.Register(TableProfiles, OpDelete, ownLiveProfile(), AdminOverride())

	r.Register(TableSocialMediaAccounts, OpSelect, everyone("social_accounts_public"))
	r.Register(TableSocialMediaAccounts, OpInsert, socialAccountOwner(), AdminOverride())
	r.Register(TableSocialMediaAccounts, OpUpdate, socialAccountOwner(), AdminOverride())
	r.Register(TableSocialMediaAccounts, OpDelete, socialAccountOwner(), AdminOverride())

	r.Register(TableCategories, OpSelect, activeCategory(), AdminOverride())
	r.Register(TableCategories, OpInsert, AdminOverride())
	r.Register(TableCategories, OpUpdate, AdminOverride())
	r.Register(TableCategories, OpDelete, AdminOverride())

	r.Register(TableListings, OpSelect, publicListing(), listingOwner(), AdminOverride())
	r.Register(TableListings, OpInsert, listingOwner())
	r.Register(TableListings, OpUpdate, listingOwner(), AdminOverride())
	r.Register(TableListings, OpDelete, listingOwner(), AdminOverride())

	r.Register(TableCarts, OpSelect, cartOwner(), AdminOverride())
	r.Register(TableCarts, OpUpdate, cartOwner(), AdminOverride())

	r.Register(TableCartItems, OpSelect, cartItemOwner(), AdminOverride())
	r.Register(TableCartItems, OpInsert, cartItemOwner())
	r.Register(TableCartItems, OpDelete, cartItemOwner(), AdminOverride())

	r.Register(TableProfileStats, OpSelect, everyone("profile_stats_public"))

	r.Register(TableSetupProgress, OpSelect, setupProgressOwner(), AdminOverride())
	r.Register(TableSetupProgress, OpInsert, setupProgressOwner())
	r.Register(TableSetupProgress, OpUpdate, setupProgressOwner(), AdminOverride())

	r.Register(TableOrders, OpSelect, orderParty(), AdminOverride())
	r.Register(TableOrders, OpInsert, orderBuyerCreates())
	r.Register(TableOrders, OpUpdate,
		buyerCancelWindow(),
		sellerFulfillmentWindow(),
		buyerConfirmWindow(),
		AdminOverride(),
	)

	r.Register(TableOrderShipments, OpSelect, shipmentOrderParty(), AdminOverride())
	r.Register(TableOrderShipments, OpInsert, shipmentOrderSeller())
	r.Register(TableOrderShipments, OpUpdate, shipmentOrderSeller(), AdminOverride())

	r.Register(TableDisputes, OpSelect, disputeParty(), AdminOverride())
	r.Register(TableDisputes, OpInsert, disputeInitiatorCreates())
	r.Register(TableDisputes, OpUpdate, disputePartyResponds(), AdminOverride())

	r.Register(TableReturns, OpSelect, returnRequester(), returnOrderSeller(), AdminOverride())
	r.Register(TableReturns, OpInsert, returnBuyerRequests())
	r.Register(TableReturns, OpUpdate, returnOrderSeller(), returnRequesterShipsBack(), AdminOverride())

	r.Register(TableRefundRequests, OpSelect, refundOrderParty(), AdminOverride())
	r.Register(TableRefundRequests, OpInsert, refundRequesterCreates())
	r.Register(TableRefundRequests, OpUpdate, AdminOverride())

	r.Register(TableConversations, OpSelect, conversationParty(), AdminOverride())
	r.Register(TableConversations, OpInsert, conversationParty())

	r.Register(TableMessages, OpSelect, messageConversationParty(), AdminOverride())
	r.Register(TableMessages, OpInsert, messageSenderIsParty())
	r.Register(TableMessages, OpUpdate, messageRecipientMarksRead(), AdminOverride())

	r.Register(TableBrandVerificationRequests, OpSelect, verificationOwner(), AdminOverride())
	r.Register(TableBrandVerificationRequests, OpInsert, verificationOwner())
	r.Register(TableBrandVerificationRequests, OpUpdate, verificationOwnerWhilePending(), AdminOverride())

	r.Register(TablePayouts, OpSelect, payoutSeller(), AdminOverride())
	r.Register(TablePayouts, OpUpdate, AdminOverride())

	// append-only: no update or delete for any role
	r.Register(TableAdminApprovals, OpSelect, AdminOverride())
	r.Register(TableAdminApprovals, OpInsert, AdminOverride())

	// service-written, admin-readable, append-only
	r.Register(TableAdminAuditLog, OpSelect, AdminOverride())

	r.SetTraits(TableSecurityEvents, TableTraits{ServiceRoleOnly: true})

	r.Register(TableStorageBuckets, OpSelect, everyone("storage_buckets_public"))

	r.Register(TableStorageObjects, OpSelect, publicBucketObject(), storageObjectOwner(), AdminOverride())
	r.Register(TableStorageObjects, OpInsert, storageObjectOwnerPath())
	r.Register(TableStorageObjects, OpDelete, storageObjectOwner(), AdminOverride())

	return r
}

// AdminOverride grants admins whatever operation it is registered under.
// Service-role-only tables never reach it.
func AdminOverride() Policy {
	return Policy{Name: "admin_override", Check: func(p Principal, _ any) bool {
		return p.IsAdmin()
	}}
}

func everyone(name string) Policy {
	return Policy{Name: name, Check: func(Principal, any) bool { return true }}
}

func ownUser() Policy {
	return Policy{Name: "users_own_row", Check: func(p Principal, row any) bool {
		u, ok := row.(*models.User)
		return ok && u != nil && p.Authenticated && u.ID == p.UserID
	}}
}

func publicProfile() Policy {
	return Policy{Name: "profiles_public", Check: func(_ Principal, row any) bool {
		pr, ok := row.(*models.Profile)
		return ok && pr != nil && pr.DeletedAt == nil
	}}
}

func ownProfile() Policy {
	return Policy{Name: "profiles_owner", Check: func(p Principal, row any) bool {
		pr, ok := row.(*models.Profile)
		return ok && pr != nil && p.Authenticated && pr.UserID == p.UserID
	}}
}

// ownLiveProfile refuses writes to a soft-deleted profile even by its owner.
func ownLiveProfile() Policy {
	return Policy{Name: "profiles_owner_live", Check: func(p Principal, row any) bool {
		pr, ok := row.(*models.Profile)
		return ok && pr != nil && p.Authenticated && pr.UserID == p.UserID && pr.DeletedAt == nil
	}}
}

func socialAccountOwner() Policy {
	return Policy{Name: "social_accounts_owner", Check: func(p Principal, row any) bool {
		sma, ok := row.(*models.SocialMediaAccount)
		return ok && sma != nil && p.HasProfile() && sma.ProfileID == p.ProfileID
	}}
}

func activeCategory() Policy {
	return Policy{Name: "categories_active_public", Check: func(_ Principal, row any) bool {
		c, ok := row.(*models.Category)
		return ok && c != nil && c.IsActive
	}}
}

func publicListing() Policy {
	return Policy{Name: "listings_public_statuses", Check: func(_ Principal, row any) bool {
		l, ok := row.(*models.Listing)
		if !ok || l == nil {
			return false
		}
		for _, status := range PublicListingStatuses {
			if l.Status == status {
				return true
			}
		}
		return false
	}}
}

func listingOwner() Policy {
	return Policy{Name: "listings_owner", Check: func(p Principal, row any) bool {
		l, ok := row.(*models.Listing)
		return ok && l != nil && p.HasProfile() && l.SellerProfileID == p.ProfileID
	}}
}

func cartOwner() Policy {
	return Policy{Name: "carts_owner", Check: func(p Principal, row any) bool {
		c, ok := row.(*models.Cart)
		return ok && c != nil && p.HasProfile() && c.ProfileID == p.ProfileID
	}}
}

func cartItemOwner() Policy {
	return Policy{Name: "cart_items_cart_owner", Check: func(p Principal, row any) bool {
		r, ok := row.(CartItemRow)
		return ok && r.Cart != nil && p.HasProfile() && r.Cart.ProfileID == p.ProfileID
	}}
}

func setupProgressOwner() Policy {
	return Policy{Name: "setup_progress_owner", Check: func(p Principal, row any) bool {
		sp, ok := row.(*models.SetupProgress)
		return ok && sp != nil && p.HasProfile() && sp.ProfileID == p.ProfileID
	}}
}

func orderParty() Policy {
	return Policy{Name: "orders_buyer_or_seller", Check: func(p Principal, row any) bool {
		o, ok := row.(*models.Order)
		if !ok || o == nil || !p.HasProfile() {
			return false
		}
		return o.BuyerProfileID == p.ProfileID || o.SellerProfileID == p.ProfileID
	}}
}

func orderBuyerCreates() Policy {
	return Policy{Name: "orders_buyer_creates", Check: func(p Principal, row any) bool {
		o, ok := row.(*models.Order)
		return ok && o != nil && p.HasProfile() && o.BuyerProfileID == p.ProfileID
	}}
}

func buyerCancelWindow() Policy {
	return Policy{Name: "orders_buyer_cancel_window", Check: func(p Principal, row any) bool {
		o, ok := row.(*models.Order)
		if !ok || o == nil || !p.HasProfile() || o.BuyerProfileID != p.ProfileID {
			return false
		}
		return o.Status == enums.OrderStatusPendingPayment || o.Status == enums.OrderStatusPaymentProcessing
	}}
}

func sellerFulfillmentWindow() Policy {
	return Policy{Name: "orders_seller_fulfillment_window", Check: func(p Principal, row any) bool {
		o, ok := row.(*models.Order)
		if !ok || o == nil || !p.HasProfile() || o.SellerProfileID != p.ProfileID {
			return false
		}
		switch o.Status {
		case enums.OrderStatusPaid, enums.OrderStatusPreparing, enums.OrderStatusShipped, enums.OrderStatusInTransit:
			return true
		default:
			return false
		}
	}}
}

func buyerConfirmWindow() Policy {
	return Policy{Name: "orders_buyer_confirm_window", Check: func(p Principal, row any) bool {
		o, ok := row.(*models.Order)
		if !ok || o == nil || !p.HasProfile() || o.BuyerProfileID != p.ProfileID {
			return false
		}
		return o.Status == enums.OrderStatusDelivered
	}}
}

func shipmentOrderParty() Policy {
	return Policy{Name: "order_shipments_order_party", Check: func(p Principal, row any) bool {
		r, ok := row.(OrderShipmentRow)
		if !ok || r.Order == nil || !p.HasProfile() {
			return false
		}
		return r.Order.BuyerProfileID == p.ProfileID || r.Order.SellerProfileID == p.ProfileID
	}}
}

func shipmentOrderSeller() Policy {
	return Policy{Name: "order_shipments_order_seller", Check: func(p Principal, row any) bool {
		r, ok := row.(OrderShipmentRow)
		return ok && r.Order != nil && p.HasProfile() && r.Order.SellerProfileID == p.ProfileID
	}}
}

func disputeParty() Policy {
	return Policy{Name: "disputes_party", Check: func(p Principal, row any) bool {
		d, ok := row.(*models.Dispute)
		if !ok || d == nil || !p.HasProfile() {
			return false
		}
		return d.InitiatorProfileID == p.ProfileID || d.RespondentProfileID == p.ProfileID
	}}
}

func disputeInitiatorCreates() Policy {
	return Policy{Name: "disputes_initiator_creates", Check: func(p Principal, row any) bool {
		d, ok := row.(*models.Dispute)
		return ok && d != nil && p.HasProfile() && d.InitiatorProfileID == p.ProfileID
	}}
}

func disputePartyResponds() Policy {
	return Policy{Name: "disputes_party_responds", Check: func(p Principal, row any) bool {
		d, ok := row.(*models.Dispute)
		if !ok || d == nil || !p.HasProfile() {
			return false
		}
		if d.InitiatorProfileID != p.ProfileID && d.RespondentProfileID != p.ProfileID {
			return false
		}
		return !lifecycle.Disputes().IsTerminal(d.Status)
	}}
}

func returnRequester() Policy {
	return Policy{Name: "returns_requester", Check: func(p Principal, row any) bool {
		r, ok := row.(ReturnRow)
		return ok && r.Return != nil && p.HasProfile() && r.Return.RequesterProfileID == p.ProfileID
	}}
}

func returnOrderSeller() Policy {
	return Policy{Name: "returns_order_seller", Check: func(p Principal, row any) bool {
		r, ok := row.(ReturnRow)
		return ok && r.Order != nil && p.HasProfile() && r.Order.SellerProfileID == p.ProfileID
	}}
}

// returnBuyerRequests gates creation on the order being delivered or
// completed; earlier orders have nothing to send back.
func returnBuyerRequests() Policy {
	return Policy{Name: "returns_buyer_requests", Check: func(p Principal, row any) bool {
		r, ok := row.(ReturnRow)
		if !ok || r.Return == nil || r.Order == nil || !p.HasProfile() {
			return false
		}
		if r.Return.RequesterProfileID != p.ProfileID || r.Order.BuyerProfileID != p.ProfileID {
			return false
		}
		return r.Order.Status == enums.OrderStatusDelivered || r.Order.Status == enums.OrderStatusCompleted
	}}
}

func returnRequesterShipsBack() Policy {
	return Policy{Name: "returns_requester_ships_back", Check: func(p Principal, row any) bool {
		r, ok := row.(ReturnRow)
		if !ok || r.Return == nil || !p.HasProfile() || r.Return.RequesterProfileID != p.ProfileID {
			return false
		}
		return r.Return.Status == enums.ReturnStatusApproved
	}}
}

func refundOrderParty() Policy {
	return Policy{Name: "refund_requests_order_party", Check: func(p Principal, row any) bool {
		r, ok := row.(RefundRequestRow)
		if !ok || r.Order == nil || !p.HasProfile() {
			return false
		}
		return r.Order.BuyerProfileID == p.ProfileID || r.Order.SellerProfileID == p.ProfileID
	}}
}

func refundRequesterCreates() Policy {
	return Policy{Name: "refund_requests_requester_creates", Check: func(p Principal, row any) bool {
		r, ok := row.(RefundRequestRow)
		if !ok || r.Refund == nil || r.Order == nil || !p.HasProfile() {
			return false
		}
		if r.Refund.RequesterProfileID != p.ProfileID {
			return false
		}
		return r.Order.BuyerProfileID == p.ProfileID || r.Order.SellerProfileID == p.ProfileID
	}}
}

func conversationParty() Policy {
	return Policy{Name: "conversations_party", Check: func(p Principal, row any) bool {
		c, ok := row.(*models.Conversation)
		if !ok || c == nil || !p.HasProfile() {
			return false
		}
		return c.BuyerProfileID == p.ProfileID || c.SellerProfileID == p.ProfileID
	}}
}

func messageConversationParty() Policy {
	return Policy{Name: "messages_conversation_party", Check: func(p Principal, row any) bool {
		r, ok := row.(MessageRow)
		if !ok || r.Conversation == nil || !p.HasProfile() {
			return false
		}
		return r.Conversation.BuyerProfileID == p.ProfileID || r.Conversation.SellerProfileID == p.ProfileID
	}}
}

func messageSenderIsParty() Policy {
	return Policy{Name: "messages_sender_is_party", Check: func(p Principal, row any) bool {
		r, ok := row.(MessageRow)
		if !ok || r.Message == nil || r.Conversation == nil || !p.HasProfile() {
			return false
		}
		if r.Message.SenderProfileID != p.ProfileID {
			return false
		}
		return r.Conversation.BuyerProfileID == p.ProfileID || r.Conversation.SellerProfileID == p.ProfileID
	}}
}

// messageRecipientMarksRead lets the party who did not send the message stamp
// read_at.
func messageRecipientMarksRead() Policy {
	return Policy{Name: "messages_recipient_marks_read", Check: func(p Principal, row any) bool {
		r, ok := row.(MessageRow)
		if !ok || r.Message == nil || r.Conversation == nil || !p.HasProfile() {
			return false
		}
		if r.Message.SenderProfileID == p.ProfileID {
			return false
		}
		return r.Conversation.BuyerProfileID == p.ProfileID || r.Conversation.SellerProfileID == p.ProfileID
	}}
}

func verificationOwner() Policy {
	return Policy{Name: "brand_verification_owner", Check: func(p Principal, row any) bool {
		v, ok := row.(*models.BrandVerificationRequest)
		return ok && v != nil && p.HasProfile() && v.ProfileID == p.ProfileID
	}}
}

func verificationOwnerWhilePending() Policy {
	return Policy{Name: "brand_verification_owner_pending", Check: func(p Principal, row any) bool {
		v, ok := row.(*models.BrandVerificationRequest)
		if !ok || v == nil || !p.HasProfile() || v.ProfileID != p.ProfileID {
			return false
		}
		return v.Status == enums.VerificationStatusPending
	}}
}

func payoutSeller() Policy {
	return Policy{Name: "payouts_seller", Check: func(p Principal, row any) bool {
		po, ok := row.(*models.Payout)
		return ok && po != nil && p.HasProfile() && po.SellerProfileID == p.ProfileID
	}}
}

func publicBucketObject() Policy {
	return Policy{Name: "storage_objects_public_bucket", Check: func(_ Principal, row any) bool {
		r, ok := row.(StorageObjectRow)
		return ok && r.Bucket != nil && r.Bucket.Public
	}}
}

func storageObjectOwner() Policy {
	return Policy{Name: "storage_objects_owner", Check: func(p Principal, row any) bool {
		r, ok := row.(StorageObjectRow)
		return ok && r.Object != nil && p.Authenticated && r.Object.OwnerUserID == p.UserID
	}}
}

// storageObjectOwnerPath additionally requires the object path to live under
// the owner's namespace.
func storageObjectOwnerPath() Policy {
	return Policy{Name: "storage_objects_owner_path", Check: func(p Principal, row any) bool {
		r, ok := row.(StorageObjectRow)
		if !ok || r.Object == nil || !p.Authenticated || r.Object.OwnerUserID != p.UserID {
			return false
		}
		return strings.HasPrefix(r.Object.ObjectPath, p.UserID.String()+"/")
	}}
}
