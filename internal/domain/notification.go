package domain

import "time"

// NotificationType distinguishes the two alerting pipelines.
type NotificationType string

const (
	NotificationLowStock     NotificationType = "LowStock"
	NotificationStatusChange NotificationType = "StatusChange"
)

// Notification is an append-only alert record. Only the read flag is
// mutable; everything else is fixed at creation.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	RefID     string           `json:"ref_id"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
