package adapters

import "net/http"

// Bidder is the contract the host header-bidding framework drives. The host
// owns the auction lifecycle, timeout management and bid validation;
// implementations only translate between the host's slot shapes and the
// vendor wire format.
type Bidder interface {
	// IsSlotValid reports whether a slot carries enough vendor routing
	// information to take part in an auction. The host evaluates it once per
	// slot before batching; slots failing it never reach MakeRequests.
	IsSlotValid(slot *SlotRequest) bool

	// MakeRequests builds the HTTP call(s) for one auction round. An empty
	// slice means no request should be sent, which the host treats as
	// "nothing to bid on" rather than an error.
	MakeRequests(request *BidderRequest) ([]*RequestData, []error)

	// MakeBids unpacks the vendor response into bids. The originating request
	// is passed back so response entries can be correlated to the slots that
	// produced them.
	//
	// The errors should describe situations which make the bids "less than
	// ideal": unexpected status codes, entries the bidder had to ignore, and
	// so on.
	MakeBids(request *BidderRequest, requestData *RequestData, responseData *ResponseData) ([]*Bid, []error)

	// OnTimeout notifies the bidder that the host gave up waiting on the
	// auction identified by the request.
	OnTimeout(request *BidderRequest)
}

// RequestData packages together the fields needed to make an http.Request.
//
// This exists so that the host can implement its debug surface uniformly
// across bidders without knowing anything about the wire contract.
type RequestData struct {
	Method  string
	Uri     string
	Body    []byte
	Headers http.Header
}

// ResponseData packages together information from the vendor's http.Response.
type ResponseData struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}
