package ws

import "time"

// ConnInfo is the identity and handshake metadata tracked per connection.
// UserID is filled in once the connection declares presence, DisplayName once
// it joins a room; both flow into the lifecycle events published for the
// connection.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DisplayName string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
