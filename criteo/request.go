package criteo

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/prebid/go-gdpr/vendorconsent"

	"github.com/criteo/cdb-adapter/adapters"
)

// cdbRequest is the outbound payload of the vendor's CDB endpoint. The shape
// is a fixed contract; gdprConsent is only present when the host collected
// consent data.
type cdbRequest struct {
	Publisher   cdbPublisher    `json:"publisher"`
	Slots       []cdbSlot       `json:"slots"`
	GdprConsent *cdbGdprConsent `json:"gdprConsent,omitempty"`
}

type cdbPublisher struct {
	URL       string `json:"url,omitempty"`
	NetworkID *int64 `json:"networkid,omitempty"`
}

type cdbSlot struct {
	ImpID          string   `json:"impid"`
	TransactionID  string   `json:"transactionid"`
	AuctionID      string   `json:"auctionid,omitempty"`
	Sizes          []string `json:"sizes"`
	ZoneID         *int64   `json:"zoneid,omitempty"`
	PublisherSubID *string  `json:"publishersubid,omitempty"`
	Native         bool     `json:"native,omitempty"`
}

type cdbGdprConsent struct {
	ConsentData  string `json:"consentData,omitempty"`
	GdprApplies  *bool  `json:"gdprApplies,omitempty"`
	ConsentGiven bool   `json:"consentGiven"`
}

// auctionContext is the page-level state derived once per batch.
type auctionContext struct {
	page  string
	debug bool
	noLog bool

	// integrationMode and networkID are batch-wide values where the last
	// slot declaring one wins. The tie-break is part of the wire contract,
	// not an accident.
	integrationMode string
	networkID       *int64
}

func newAuctionContext(request *adapters.BidderRequest, slots []*adapters.SlotRequest) *auctionContext {
	auction := &auctionContext{page: request.Page}

	if page, err := url.Parse(request.Page); err == nil {
		query := page.Query()
		auction.debug = query.Get(debugURLParam) == "1"
		auction.noLog = query.Get(noLogURLParam) == "1"
	}

	for _, slot := range slots {
		if slot.Params == nil {
			continue
		}
		if slot.Params.IntegrationMode != nil {
			auction.integrationMode = *slot.Params.IntegrationMode
		}
		if slot.Params.NetworkID != nil {
			auction.networkID = slot.Params.NetworkID
		}
	}

	return auction
}

// buildCdbURL assembles the bid URL: fixed endpoint, static identifiers, a
// random cache buster and the optional context flags.
func (a *adapter) buildCdbURL(auction *auctionContext) string {
	query := url.Values{}
	query.Set("profileId", strconv.Itoa(a.profileID))
	query.Set("av", strconv.Itoa(a.version))
	query.Set("cb", strconv.FormatInt(a.rand.GenerateInt63(), 10))

	if code, ok := integrationModes[auction.integrationMode]; ok {
		query.Set("im", strconv.Itoa(code))
	}
	if auction.debug {
		query.Set("debug", "1")
	}
	if auction.noLog {
		query.Set("nolog", "1")
	}

	return a.endpoint + "?" + query.Encode()
}

func buildCdbRequestBody(auction *auctionContext, slots []*adapters.SlotRequest, request *adapters.BidderRequest) ([]byte, error) {
	cdb := &cdbRequest{
		Publisher: cdbPublisher{
			URL:       auction.page,
			NetworkID: auction.networkID,
		},
		Slots: make([]cdbSlot, 0, len(slots)),
	}

	for _, slot := range slots {
		entry := cdbSlot{
			ImpID:         slot.AdUnitCode,
			TransactionID: slot.TransactionID,
			AuctionID:     slot.AuctionID,
			Sizes:         make([]string, 0, len(slot.Sizes)),
		}
		for _, size := range slot.Sizes {
			entry.Sizes = append(entry.Sizes, size.String())
		}

		// Slots reaching this point passed the validity gate, so Params is
		// never nil here.
		entry.ZoneID = slot.Params.ZoneID
		entry.PublisherSubID = slot.Params.PublisherSubID
		entry.Native = slot.Params.NativeCallback != nil

		cdb.Slots = append(cdb.Slots, entry)
	}

	if request.GDPR != nil {
		cdb.GdprConsent = &cdbGdprConsent{
			ConsentData:  request.GDPR.ConsentString,
			GdprApplies:  request.GDPR.GDPRApplies,
			ConsentGiven: vendorConsentGiven(request.GDPR.ConsentString, gvlVendorID),
		}
	}

	return json.Marshal(cdb)
}

// vendorConsentGiven reports whether the consent string grants the vendor.
// Absent or unparseable consent defaults to no consent.
func vendorConsentGiven(consent string, vendorID uint16) bool {
	if consent == "" {
		return false
	}
	parsed, err := vendorconsent.ParseString(consent)
	if err != nil {
		return false
	}
	return parsed.VendorConsent(vendorID)
}
