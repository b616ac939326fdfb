// Package notify decides when an incoming message warrants a passive toast:
// the view is hidden, or the message list is scrolled away from the bottom.
package notify

import (
	"fmt"

	"maternity-chat/internal/stream"
)

// DefaultScrollThreshold is how far (in pixels) the list may sit above the
// bottom before arrivals are considered out of sight.
const DefaultScrollThreshold = 100

// ViewState captures the visibility inputs the decision depends on.
type ViewState struct {
	DocumentVisible  bool
	ScrollFromBottom float64
}

// Toast is a transient, dismissible notification. No persistence, no retry.
type Toast struct {
	Title string
	Body  string
}

// Sink receives toasts. The UI layer supplies the real implementation.
type Sink interface {
	Show(Toast)
}

// Bridge evaluates incoming messages against the current view state.
type Bridge struct {
	selfID    string
	threshold float64
	sink      Sink
}

// NewBridge builds a bridge for the local participant. sink may be nil, in
// which case Observe only evaluates.
func NewBridge(selfID string, threshold float64, sink Sink) *Bridge {
	if threshold <= 0 {
		threshold = DefaultScrollThreshold
	}
	return &Bridge{selfID: selfID, threshold: threshold, sink: sink}
}

// ShouldNotify reports whether the message should surface a toast. Messages
// from the local user never notify.
func (b *Bridge) ShouldNotify(msg stream.Message, view ViewState) bool {
	if msg.SenderID != "" && msg.SenderID == b.selfID {
		return false
	}
	if !view.DocumentVisible {
		return true
	}
	return view.ScrollFromBottom > b.threshold
}

// Observe emits a toast for the message when warranted.
func (b *Bridge) Observe(msg stream.Message, view ViewState) {
	if b == nil || b.sink == nil {
		return
	}
	if !b.ShouldNotify(msg, view) {
		return
	}
	b.sink.Show(Toast{
		Title: "New Message",
		Body:  fmt.Sprintf("%s: %s", msg.SenderName, msg.Body),
	})
}
