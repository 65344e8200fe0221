package criteo

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/buger/jsonparser"

	"github.com/criteo/cdb-adapter/adapters"
	"github.com/criteo/cdb-adapter/errortypes"
	"github.com/criteo/cdb-adapter/native"
	"github.com/criteo/cdb-adapter/util/ptrutil"
)

// cdbResponseSlot is one entry of the vendor's reply.
type cdbResponseSlot struct {
	ImpID    string          `json:"impid"`
	ZoneID   int64           `json:"zoneid"`
	CPM      float64         `json:"cpm"`
	Currency string          `json:"currency"`
	TTL      int             `json:"ttl"`
	Width    int64           `json:"width"`
	Height   int64           `json:"height"`
	Creative string          `json:"creative"`
	Native   json.RawMessage `json:"native"`
}

func (a *adapter) MakeBids(request *adapters.BidderRequest, requestData *adapters.RequestData, responseData *adapters.ResponseData) ([]*adapters.Bid, []error) {
	if responseData.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if responseData.StatusCode == http.StatusBadRequest {
		err := &errortypes.BadInput{
			Message: fmt.Sprintf("Unexpected status code: %d. Run with request.debug = 1 for more info.", responseData.StatusCode),
		}
		return nil, []error{err}
	}

	if responseData.StatusCode != http.StatusOK {
		err := &errortypes.BadServerResponse{
			Message: fmt.Sprintf("Unexpected status code: %d. Run with request.debug = 1 for more info.", responseData.StatusCode),
		}
		return nil, []error{err}
	}

	// The delegate may have become available since the request was built; it
	// owns interpretation for auctions it knows about.
	if factory, ok := a.provider.Get(); ok {
		if auctionAdapter, found := factory.GetAdapter(request.AuctionID); found {
			return auctionAdapter.InterpretResponse(responseData.Body), nil
		}
	}

	var bids []*adapters.Bid
	var errs []error
	_, err := jsonparser.ArrayEach(responseData.Body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		var slot cdbResponseSlot
		if err := json.Unmarshal(value, &slot); err != nil {
			return
		}

		matched := matchSlotRequest(request.Slots, &slot)
		if matched == nil {
			// No correlating slot request; the entry is dropped without
			// failing the batch.
			errs = append(errs, &errortypes.Warning{
				Message:     fmt.Sprintf("Response slot for placement %q matches no requested slot.", slot.ImpID),
				WarningCode: errortypes.UnmatchedResponseSlotWarningCode,
			})
			return
		}

		bids = append(bids, a.makeBid(matched, &slot))
	}, "slots")
	if err != nil {
		// Anything without a proper top-level slots array counts as an empty
		// response, never as a failure.
		return nil, nil
	}

	return bids, errs
}

// matchSlotRequest finds the slot request a response entry correlates to: the
// same placement id and, when the entry routes through a zone, the same
// declared zone id.
func matchSlotRequest(slots []*adapters.SlotRequest, entry *cdbResponseSlot) *adapters.SlotRequest {
	for _, slot := range slots {
		if slot.AdUnitCode != entry.ImpID {
			continue
		}
		if entry.ZoneID == 0 {
			return slot
		}
		if slot.Params != nil && ptrutil.ValueOrDefault(slot.Params.ZoneID) == entry.ZoneID {
			return slot
		}
	}
	return nil
}

func (a *adapter) makeBid(slot *adapters.SlotRequest, entry *cdbResponseSlot) *adapters.Bid {
	bid := &adapters.Bid{
		RequestID:  slot.BidID,
		CPM:        entry.CPM,
		Currency:   entry.Currency,
		NetRevenue: true,
		TTL:        entry.TTL,
		CreativeID: slot.BidID,
		Width:      entry.Width,
		Height:     entry.Height,
	}
	if bid.TTL == 0 {
		bid.TTL = defaultBidTTLSeconds
	}

	if len(entry.Native) > 0 {
		var callback native.Callback
		if slot.Params != nil {
			callback = slot.Params.NativeCallback
		}
		bid.Ad = a.native.MakeMarkup(slot.BidID, entry.Native, callback)
	} else {
		bid.Ad = entry.Creative
	}

	return bid
}
