package orders

// OrderRequestedEvent is an inbound order placement request.
type OrderRequestedEvent struct {
	CustomerName string        `json:"customer_name"`
	PaymentMode  string        `json:"payment_mode"`
	Items        []LineRequest `json:"items"`
}

// OrderPlacedEvent reports a committed order back on the publish channel.
type OrderPlacedEvent struct {
	OrderID string `json:"order_id"`
	Total   string `json:"total"`
	Status  string `json:"status"`
}

// OrderRejectedEvent reports a placement that failed a business rule.
type OrderRejectedEvent struct {
	Reason string `json:"reason"`
}
