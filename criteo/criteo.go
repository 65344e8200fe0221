package criteo

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"

	"github.com/criteo/cdb-adapter/adapters"
	"github.com/criteo/cdb-adapter/config"
	"github.com/criteo/cdb-adapter/delegate"
	"github.com/criteo/cdb-adapter/errortypes"
	"github.com/criteo/cdb-adapter/fastbid"
	"github.com/criteo/cdb-adapter/native"
	"github.com/criteo/cdb-adapter/storage"
	"github.com/criteo/cdb-adapter/util/randomutil"
	"github.com/criteo/cdb-adapter/util/task"
)

const (
	bidderCode = "criteo"

	// gvlVendorID is Criteo's id in the IAB global vendor list, used to read
	// the vendor-consent bit out of TCF consent strings.
	gvlVendorID uint16 = 91

	// Query flags publishers set on the page URL.
	debugURLParam = "pbt_debug"
	noLogURLParam = "pbt_nolog"

	defaultBidTTLSeconds = 60
)

// integrationModes maps the whitelisted integration mode names to their wire
// codes. Modes outside this table are ignored.
var integrationModes = map[string]int{
	"amp": 1,
}

// ScriptLoader is the host's asynchronous script loader. Load is
// fire-and-forget; no result is observed.
type ScriptLoader interface {
	Load(url string, tag string)
}

// Externals are the host capabilities the adapter consumes. Every field is
// optional: without a Store the cached-script path is off, without a Loader
// no script refresh is scheduled, and without a Delegate provider the local
// fallback logic simply runs every round.
type Externals struct {
	Delegate *delegate.Provider
	Store    storage.Store
	Executor fastbid.Executor
	Loader   ScriptLoader
	Random   randomutil.RandomGenerator
}

type adapter struct {
	endpoint  string
	profileID int
	version   int
	scriptURL string

	provider *delegate.Provider
	fastBid  *fastbid.Loader
	scripts  ScriptLoader
	native   *native.Registry
	rand     randomutil.RandomGenerator

	// reload is the most recently scheduled script refresh. The handle is
	// retained but never cancelled; a scheduled refresh always fires.
	reload *task.TimerTask
}

// Builder constructs the Criteo bidder from its configuration plus the host
// capabilities it consumes.
func Builder(cfg *config.Configuration, ext Externals) (adapters.Bidder, error) {
	provider := ext.Delegate
	if provider == nil {
		provider = delegate.NewProvider()
	}

	rand := ext.Random
	if rand == nil {
		rand = randomutil.RandomNumberGenerator{}
	}

	var loader *fastbid.Loader
	if cfg.FastBid.Enabled && ext.Store != nil {
		verifier := fastbid.NewVerifier()
		if cfg.FastBid.PublicKey != "" {
			v, err := fastbid.NewVerifierFromPEM([]byte(cfg.FastBid.PublicKey))
			if err != nil {
				return nil, err
			}
			verifier = v
		}
		loader = fastbid.NewLoader(ext.Store, verifier, ext.Executor, cfg.FastBid.StorageKey)
	}

	return &adapter{
		endpoint:  cfg.Endpoint,
		profileID: cfg.ProfileID,
		version:   cfg.AdapterVersion,
		scriptURL: cfg.FastBid.ScriptURL,
		provider:  provider,
		fastBid:   loader,
		scripts:   ext.Loader,
		native:    native.NewRegistry(),
		rand:      rand,
	}, nil
}

// IsSlotValid is the gating predicate the host evaluates before batching. A
// slot bids through either a zone or a network; nothing else is checked here.
func (a *adapter) IsSlotValid(slot *adapters.SlotRequest) bool {
	if slot == nil || slot.Params == nil {
		return false
	}
	return slot.Params.ZoneID != nil || slot.Params.NetworkID != nil
}

func (a *adapter) MakeRequests(request *adapters.BidderRequest) ([]*adapters.RequestData, []error) {
	slots := a.validSlots(request.Slots)
	if len(slots) == 0 {
		return nil, nil
	}

	var errs []error
	if _, ok := a.provider.Get(); !ok {
		if a.fastBid != nil {
			if a.fastBid.Attempt(context.Background(), a.provider) == fastbid.ResultInvalid {
				errs = append(errs, &errortypes.InvalidCachedScript{
					Message: "Cached publisher tag failed validation and was evicted.",
				})
			}
		}
		a.scheduleScriptReload(request.Timeout)
	}

	// The cached script may have just installed the delegate, so probe again.
	if factory, ok := a.provider.Get(); ok {
		requestData, err := delegateRequest(factory, request)
		if err == nil {
			return []*adapters.RequestData{requestData}, errs
		}
		glog.Warningf("criteo: publisher tag could not build the request, using fallback: %v", err)
	}

	auction := newAuctionContext(request, slots)
	body, err := buildCdbRequestBody(auction, slots, request)
	if err != nil {
		return nil, append(errs, err)
	}

	return []*adapters.RequestData{{
		Method:  http.MethodPost,
		Uri:     a.buildCdbURL(auction),
		Body:    body,
		Headers: requestHeaders(),
	}}, errs
}

// OnTimeout forwards the host's timeout notification to the delegate managing
// the auction, when one exists. The local path has no state to clean up.
func (a *adapter) OnTimeout(request *adapters.BidderRequest) {
	factory, ok := a.provider.Get()
	if !ok {
		return
	}
	if auctionAdapter, found := factory.GetAdapter(request.AuctionID); found {
		auctionAdapter.HandleBidTimeout()
	}
}

func (a *adapter) validSlots(slots []*adapters.SlotRequest) []*adapters.SlotRequest {
	valid := make([]*adapters.SlotRequest, 0, len(slots))
	for _, slot := range slots {
		if a.IsSlotValid(slot) {
			valid = append(valid, slot)
		}
	}
	return valid
}

// scheduleScriptReload arranges for a fresh copy of the vendor script to load
// once the auction's timeout has elapsed, so future rounds get an up-to-date
// delegate. It always fires, whatever the cached-script validation decided.
func (a *adapter) scheduleScriptReload(timeout time.Duration) {
	if a.scripts == nil {
		return
	}

	reload := task.NewTimerTaskFromFunc(timeout, func() error {
		a.scripts.Load(a.scriptURL, bidderCode)
		return nil
	})
	reload.Start()
	a.reload = reload
}

func delegateRequest(factory delegate.Factory, request *adapters.BidderRequest) (*adapters.RequestData, error) {
	auctionAdapter, err := factory.NewAdapter(request)
	if err != nil {
		return nil, err
	}

	uri, err := auctionAdapter.BuildCdbURL()
	if err != nil {
		return nil, err
	}
	body, err := auctionAdapter.BuildCdbRequest()
	if err != nil {
		return nil, err
	}

	return &adapters.RequestData{
		Method:  http.MethodPost,
		Uri:     uri,
		Body:    body,
		Headers: requestHeaders(),
	}, nil
}

func requestHeaders() http.Header {
	headers := http.Header{}
	headers.Add("Content-Type", "application/json;charset=utf-8")
	headers.Add("Accept", "application/json")
	return headers
}
