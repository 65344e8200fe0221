// Package delegate models the richer vendor adapter ("publisher tag") that
// may become available at runtime, either from a validated cached script or
// from an out-of-band script load. While a delegate is installed, the local
// request building and response interpretation are bypassed in its favor.
package delegate

import (
	"sync/atomic"

	"github.com/criteo/cdb-adapter/adapters"
)

// Factory is the capability surface of the vendor adapter.
type Factory interface {
	// NewAdapter creates the per-auction adapter for a bidder request and
	// remembers it for later lookup by auction id.
	NewAdapter(request *adapters.BidderRequest) (Adapter, error)

	// GetAdapter returns the adapter previously created for the auction.
	GetAdapter(auctionID string) (Adapter, bool)
}

// Adapter is one auction's view of the vendor adapter.
type Adapter interface {
	BuildCdbURL() (string, error)
	BuildCdbRequest() ([]byte, error)
	InterpretResponse(body []byte) []*adapters.Bid
	HandleBidTimeout()
}

// Provider is a nullable handle to the Factory. It starts empty; readers
// probe it before every operation since the factory may appear between
// building a request and interpreting its response.
type Provider struct {
	factory atomic.Value
}

type holder struct {
	factory Factory
}

func NewProvider() *Provider {
	return &Provider{}
}

// Get returns the installed factory, if any.
func (p *Provider) Get() (Factory, bool) {
	h, ok := p.factory.Load().(holder)
	if !ok || h.factory == nil {
		return nil, false
	}
	return h.factory, true
}

// Install makes the factory visible to subsequent probes, replacing any
// previously installed one. A nil factory is ignored.
func (p *Provider) Install(f Factory) {
	if f == nil {
		return
	}
	p.factory.Store(holder{factory: f})
}
