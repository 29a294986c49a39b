package events

// Topic constants for storefront events.
const (
	TopicCartChanged   = "cart.changed"
	TopicOrderPlaced   = "order.placed"
	TopicSessionOpened = "session.opened"
	TopicSessionClosed = "session.closed"
)

// DefaultTopics returns the canonical list of topics relayed between replicas.
func DefaultTopics() []string {
	return []string{
		TopicCartChanged,
		TopicOrderPlaced,
		TopicSessionOpened,
		TopicSessionClosed,
	}
}
