package adapters

// Bid is a framework-shaped bid produced from one vendor response entry.
type Bid struct {
	// RequestID ties the bid back to the BidID of exactly one SlotRequest in
	// the originating batch.
	RequestID string

	CPM      float64
	Currency string

	// NetRevenue is always true for this bidder; prices come in net.
	NetRevenue bool

	// TTL is the bid's time to live in seconds.
	TTL int

	CreativeID string
	Width      int64
	Height     int64

	// Ad is the renderable markup: either the creative returned by the
	// vendor or, for native slots, a generated rendering shim.
	Ad string
}
