package adapters

import (
	"fmt"
	"time"

	"github.com/criteo/cdb-adapter/native"
)

// SlotRequest describes one ad placement to bid on. It is supplied by the
// host per auction round and must be treated as immutable.
type SlotRequest struct {
	// BidID identifies this bid opportunity. Bids produced for this slot
	// carry it back as their RequestID.
	BidID string

	// AdUnitCode is the opaque placement id of the slot on the page.
	AdUnitCode string

	TransactionID string
	AuctionID     string

	// Sizes lists the eligible creative sizes. They are serialized as-is;
	// nothing here second-guesses the host's size validation.
	Sizes []Size

	// Params carries the bidder-specific parameters, or nil if the publisher
	// configured none.
	Params *SlotParams
}

// SlotParams are the vendor-specific parameters a publisher declares on a
// slot. Optional fields are pointers so that "absent" and "zero" stay
// distinguishable on the wire.
type SlotParams struct {
	ZoneID          *int64
	NetworkID       *int64
	PublisherSubID  *string
	IntegrationMode *string

	// NativeCallback, when set, marks the slot as a native placement and
	// receives the native payload once the creative renders.
	NativeCallback native.Callback
}

// BidderRequest is the bidder-level view of one auction round: the batch of
// slots plus the page context the host derived for them.
type BidderRequest struct {
	AuctionID string
	Slots     []*SlotRequest

	// Page is the URL of the page the auction runs on. Debug and no-log
	// flags are derived from its query string.
	Page string

	// Timeout is the auction-wide timeout configured by the host.
	Timeout time.Duration

	// GDPR is nil when the host collected no consent data.
	GDPR *GDPRConsent
}

// GDPRConsent is the consent object forwarded by the host.
type GDPRConsent struct {
	ConsentString string
	GDPRApplies   *bool
}

// Size is one (width, height) pair.
type Size struct {
	W int64
	H int64
}

// String renders the size in the vendor's "<w>x<h>" wire form.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}
