package events

// Topics emitted by the checkout and order flows.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderPaid      = "order.paid"
	TopicOrderCancelled = "order.cancelled"
	TopicStockReleased  = "stock.released"
)
