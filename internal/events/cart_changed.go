package events

import "time"

// CartChanged is the cross-session ping: it tells other storefront sessions
// that the shared cart key was rewritten and they should re-read. It carries
// no cart data on purpose; the snapshot in storage is the truth.
type CartChanged struct {
	EventType string    `json:"eventType"`
	Ping      string    `json:"ping"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}
