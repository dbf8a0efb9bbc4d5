package events

// Topic constants for domain events emitted by the ordering platform.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderReady     = "order.ready"
	TopicOrderDelivered = "order.delivered"
	TopicOrderCanceled  = "order.canceled"
	TopicLoyaltyEarned  = "loyalty.earned"
	TopicStampEarned    = "loyalty.stamp_earned"
	TopicMenuPublished  = "menu.published"
)

// DefaultTopics returns the canonical list of topics subscribers may follow.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderReady,
		TopicOrderDelivered,
		TopicOrderCanceled,
		TopicLoyaltyEarned,
		TopicStampEarned,
		TopicMenuPublished,
	}
}
