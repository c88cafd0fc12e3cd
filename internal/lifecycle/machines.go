package lifecycle

import (
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// The five status columns with enforced transition tables. Cancellation of an
// order is reachable only before it ships; refunds only once money moved.
var (
	orderMachine = NewMachine("order", map[enums.OrderStatus][]enums.OrderStatus{
		enums.OrderStatusPendingPayment:    {enums.OrderStatusPaymentProcessing, enums.OrderStatusCancelled},
		enums.OrderStatusPaymentProcessing: {enums.OrderStatusPaid, enums.OrderStatusPaymentFailed, enums.OrderStatusCancelled},
		enums.OrderStatusPaymentFailed:     {enums.OrderStatusPaymentProcessing, enums.OrderStatusCancelled},
		enums.OrderStatusPaid:              {enums.OrderStatusPreparing, enums.OrderStatusRefunded, enums.OrderStatusCancelled},
		enums.OrderStatusPreparing:         {enums.OrderStatusShipped, enums.OrderStatusCancelled},
		enums.OrderStatusShipped:           {enums.OrderStatusInTransit},
		enums.OrderStatusInTransit:         {enums.OrderStatusDelivered},
		enums.OrderStatusDelivered:         {enums.OrderStatusCompleted, enums.OrderStatusRefunded},
		enums.OrderStatusCompleted:         {enums.OrderStatusRefunded},
	})

	paymentMachine = NewMachine("payment", map[enums.PaymentStatus][]enums.PaymentStatus{
		enums.PaymentStatusPending:    {enums.PaymentStatusProcessing},
		enums.PaymentStatusProcessing: {enums.PaymentStatusSucceeded, enums.PaymentStatusFailed},
		enums.PaymentStatusFailed:     {enums.PaymentStatusProcessing},
		enums.PaymentStatusSucceeded:  {enums.PaymentStatusRefunded},
	})

	disputeMachine = NewMachine("dispute", map[enums.DisputeStatus][]enums.DisputeStatus{
		enums.DisputeStatusOpen: {
			enums.DisputeStatusAwaitingSellerResponse,
			enums.DisputeStatusAwaitingBuyerResponse,
			enums.DisputeStatusUnderReview,
			enums.DisputeStatusCancelled,
		},
		enums.DisputeStatusAwaitingSellerResponse: {
			enums.DisputeStatusUnderReview,
			enums.DisputeStatusResolved,
			enums.DisputeStatusClosed,
			enums.DisputeStatusCancelled,
		},
		enums.DisputeStatusAwaitingBuyerResponse: {
			enums.DisputeStatusUnderReview,
			enums.DisputeStatusResolved,
			enums.DisputeStatusClosed,
			enums.DisputeStatusCancelled,
		},
		enums.DisputeStatusUnderReview: {enums.DisputeStatusEscalated, enums.DisputeStatusResolved, enums.DisputeStatusClosed},
		enums.DisputeStatusEscalated:   {enums.DisputeStatusResolved, enums.DisputeStatusClosed},
	})

	returnMachine = NewMachine("return", map[enums.ReturnStatus][]enums.ReturnStatus{
		enums.ReturnStatusRequested:   {enums.ReturnStatusApproved, enums.ReturnStatusRejected},
		enums.ReturnStatusApproved:    {enums.ReturnStatusShippedBack},
		enums.ReturnStatusShippedBack: {enums.ReturnStatusReceived},
		enums.ReturnStatusReceived:    {enums.ReturnStatusInspecting},
		enums.ReturnStatusInspecting:  {enums.ReturnStatusRefunded, enums.ReturnStatusReplaced},
		enums.ReturnStatusRefunded:    {enums.ReturnStatusClosed},
		enums.ReturnStatusReplaced:    {enums.ReturnStatusClosed},
	})

	trackingMachine = NewMachine("shipment", map[enums.TrackingStatus][]enums.TrackingStatus{
		enums.TrackingStatusLabelCreated:   {enums.TrackingStatusPickedUp},
		enums.TrackingStatusPickedUp:       {enums.TrackingStatusInTransit},
		enums.TrackingStatusInTransit:      {enums.TrackingStatusOutForDelivery, enums.TrackingStatusReturnedToSender},
		enums.TrackingStatusOutForDelivery: {enums.TrackingStatusDelivered, enums.TrackingStatusDeliveryFailed},
		enums.TrackingStatusDeliveryFailed: {enums.TrackingStatusOutForDelivery, enums.TrackingStatusReturnedToSender},
	})
)

// Orders returns the order_status machine.
func Orders() *Machine[enums.OrderStatus] { return orderMachine }

// Payments returns the payment_status machine.
func Payments() *Machine[enums.PaymentStatus] { return paymentMachine }

// Disputes returns the dispute_status machine.
func Disputes() *Machine[enums.DisputeStatus] { return disputeMachine }

// Returns returns the return_status machine.
func Returns() *Machine[enums.ReturnStatus] { return returnMachine }

// Tracking returns the shipment tracking_status machine.
func Tracking() *Machine[enums.TrackingStatus] { return trackingMachine }
