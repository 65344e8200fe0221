// Package native hands native-ad payloads across the frame boundary between
// the auction context and the rendering frame the creative ends up in.
package native

import (
	"encoding/json"
	"fmt"
	"sync"
)

// TableName is the window-global table the generated markup searches for.
// The rendering frame cannot reach the registry directly, so the embedding
// environment mirrors registered entries under this name on the top-level
// window.
const TableName = "criteo_prebid_native_slots"

// parentSearchDepth bounds how many parent windows the shim walks before
// giving up. Creatives render in nested frames; ten levels covers every setup
// seen in the wild without risking an unbounded walk.
const parentSearchDepth = 10

// Callback receives the native payload when the rendering frame asks for it.
type Callback func(payload json.RawMessage)

type entry struct {
	payload  json.RawMessage
	callback Callback
}

// Registry holds pending native payloads keyed by request id. Registration
// happens as a side effect of producing bid markup; the rendering side reads
// entries back later, from a different execution context.
type Registry struct {
	mu    sync.Mutex
	slots map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]entry)}
}

// Register stores the payload/callback pair under the request id. A second
// registration under the same id overwrites the first.
func (r *Registry) Register(requestID string, payload json.RawMessage, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[requestID] = entry{payload: payload, callback: cb}
}

// Lookup returns the payload registered under the request id.
func (r *Registry) Lookup(requestID string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.slots[requestID]
	return e.payload, ok
}

// Invoke runs the callback registered under the request id with its payload
// and reports whether an entry was found. Entries without a callback count as
// found but do nothing.
func (r *Registry) Invoke(requestID string) bool {
	r.mu.Lock()
	e, ok := r.slots[requestID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	if e.callback != nil {
		e.callback(e.payload)
	}
	return true
}

// MakeMarkup registers the payload/callback pair and returns the renderable
// script snippet for the slot. Executed inside the creative's frame, the
// snippet walks up the parent-window chain looking for the payload table and
// invokes the stored callback on the first window that has it, then stops.
func (r *Registry) MakeMarkup(requestID string, payload json.RawMessage, cb Callback) string {
	r.Register(requestID, payload, cb)
	return fmt.Sprintf(markupTemplate, parentSearchDepth, TableName, requestID)
}

const markupTemplate = `<script type="text/javascript">
var win = window;
for (var i = 0; i < %d; ++i) {
  win = win.parent;
  if (win.%[2]s) {
    var responseSlot = win.%[2]s[%[3]q];
    responseSlot.callback(responseSlot.payload);
    break;
  }
}
</script>`
