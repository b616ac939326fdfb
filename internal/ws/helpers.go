package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID returns a random hex id correlating one connection's lifecycle
// events across logs, metrics and the event bus.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
