package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderPlaced    NotificationType = "order_placed"
	NotificationTypePaymentSuccess NotificationType = "payment_success"
	NotificationTypePaymentFailed  NotificationType = "payment_failed"
	NotificationTypeOrderConfirmed NotificationType = "order_confirmed"
	NotificationTypeOrderPacked    NotificationType = "order_packed"
	NotificationTypeOrderShipped   NotificationType = "order_shipped"
	NotificationTypeOutForDelivery NotificationType = "out_for_delivery"
	NotificationTypeDelivered      NotificationType = "delivered"
	NotificationTypeOrderCancelled NotificationType = "order_cancelled"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypePaymentSuccess,
	NotificationTypePaymentFailed,
	NotificationTypeOrderConfirmed,
	NotificationTypeOrderPacked,
	NotificationTypeOrderShipped,
	NotificationTypeOutForDelivery,
	NotificationTypeDelivered,
	NotificationTypeOrderCancelled,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
