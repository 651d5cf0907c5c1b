package model

import "time"

// Notification is the payload pushed to connected websocket clients. It is
// transient: delivery is fire-and-forget, nothing is stored.
type Notification struct {
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
