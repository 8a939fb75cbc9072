package model

import "time"

type SessionStatus string

const (
	SessionStatusBuilding SessionStatus = "building"
	SessionStatusSent     SessionStatus = "sent"
)

// Session tracks one customer's order lifecycle. A missing key means the
// session expired; there is no explicit "expired" state.
type Session struct {
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	SentAt    *time.Time    `json:"sent_at"`
	OrderID   string        `json:"order_id,omitempty"`
}
