package criteo

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criteo/cdb-adapter/adapters"
	"github.com/criteo/cdb-adapter/config"
	"github.com/criteo/cdb-adapter/delegate"
	"github.com/criteo/cdb-adapter/errortypes"
	"github.com/criteo/cdb-adapter/storage"
	"github.com/criteo/cdb-adapter/util/ptrutil"
	"github.com/criteo/cdb-adapter/util/randomutil"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		Endpoint:       "https://bidder.criteo.com/cdb",
		ProfileID:      207,
		AdapterVersion: 34,
		FastBid: config.FastBid{
			Enabled:   true,
			ScriptURL: "https://static.criteo.net/js/ld/publishertag.prebid.js",
		},
	}
}

func testBidder(t *testing.T, ext Externals) *adapter {
	t.Helper()
	if ext.Random == nil {
		ext.Random = randomutil.FixedNumberGenerator{Value: 123456789}
	}
	bidder, err := Builder(testConfig(), ext)
	require.NoError(t, err)
	return bidder.(*adapter)
}

func bannerSlot(bidID, adUnitCode string, zoneID int64) *adapters.SlotRequest {
	return &adapters.SlotRequest{
		BidID:         bidID,
		AdUnitCode:    adUnitCode,
		TransactionID: "txn-" + bidID,
		AuctionID:     "auction-1",
		Sizes:         []adapters.Size{{W: 300, H: 250}},
		Params:        &adapters.SlotParams{ZoneID: ptrutil.ToPtr(zoneID)},
	}
}

func TestIsSlotValid(t *testing.T) {
	bidder := testBidder(t, Externals{})

	testCases := []struct {
		description string
		slot        *adapters.SlotRequest
		expected    bool
	}{
		{
			description: "nil slot",
			slot:        nil,
			expected:    false,
		},
		{
			description: "no params",
			slot:        &adapters.SlotRequest{AdUnitCode: "div1"},
			expected:    false,
		},
		{
			description: "empty params",
			slot:        &adapters.SlotRequest{AdUnitCode: "div1", Params: &adapters.SlotParams{}},
			expected:    false,
		},
		{
			description: "zone id only",
			slot:        &adapters.SlotRequest{Params: &adapters.SlotParams{ZoneID: ptrutil.ToPtr[int64](123)}},
			expected:    true,
		},
		{
			description: "network id only",
			slot:        &adapters.SlotRequest{Params: &adapters.SlotParams{NetworkID: ptrutil.ToPtr[int64](456)}},
			expected:    true,
		},
		{
			description: "both ids",
			slot: &adapters.SlotRequest{Params: &adapters.SlotParams{
				ZoneID:    ptrutil.ToPtr[int64](123),
				NetworkID: ptrutil.ToPtr[int64](456),
			}},
			expected: true,
		},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, bidder.IsSlotValid(test.slot), test.description)
	}
}

func TestMakeRequestsNoQualifyingSlots(t *testing.T) {
	bidder := testBidder(t, Externals{})

	request := &adapters.BidderRequest{
		AuctionID: "auction-1",
		Page:      "https://example.com/news",
		Slots: []*adapters.SlotRequest{
			{BidID: "bid1", AdUnitCode: "div1"},
			{BidID: "bid2", AdUnitCode: "div2", Params: &adapters.SlotParams{}},
		},
	}

	requests, errs := bidder.MakeRequests(request)
	assert.Empty(t, requests)
	assert.Empty(t, errs)
}

// fakeAuctionAdapter is a canned per-auction delegate.
type fakeAuctionAdapter struct {
	uri      string
	body     []byte
	bids     []*adapters.Bid
	err      error
	timeouts int
}

func (f *fakeAuctionAdapter) BuildCdbURL() (string, error) {
	return f.uri, f.err
}

func (f *fakeAuctionAdapter) BuildCdbRequest() ([]byte, error) {
	return f.body, f.err
}

func (f *fakeAuctionAdapter) InterpretResponse(body []byte) []*adapters.Bid {
	return f.bids
}

func (f *fakeAuctionAdapter) HandleBidTimeout() {
	f.timeouts++
}

type fakeFactory struct {
	adapter *fakeAuctionAdapter
	err     error
	known   bool
}

func (f *fakeFactory) NewAdapter(request *adapters.BidderRequest) (delegate.Adapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.known = true
	return f.adapter, nil
}

func (f *fakeFactory) GetAdapter(auctionID string) (delegate.Adapter, bool) {
	if !f.known {
		return nil, false
	}
	return f.adapter, true
}

type fakeScriptLoader struct {
	mu     sync.Mutex
	loaded chan string
	tags   []string
}

func newFakeScriptLoader() *fakeScriptLoader {
	return &fakeScriptLoader{loaded: make(chan string, 4)}
}

func (l *fakeScriptLoader) Load(url string, tag string) {
	l.mu.Lock()
	l.tags = append(l.tags, tag)
	l.mu.Unlock()
	l.loaded <- url
}

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]string{}}
}

func (s *fakeStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (s *fakeStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

type fakeExecutor struct {
	factory delegate.Factory
	scripts [][]byte
}

func (e *fakeExecutor) Execute(script []byte) (delegate.Factory, error) {
	e.scripts = append(e.scripts, script)
	if e.factory == nil {
		return nil, errors.New("no factory")
	}
	return e.factory, nil
}

func TestMakeRequestsDelegates(t *testing.T) {
	factory := &fakeFactory{adapter: &fakeAuctionAdapter{
		uri:  "https://bidder.criteo.com/delegated",
		body: []byte(`{"delegated":true}`),
	}}

	provider := delegate.NewProvider()
	provider.Install(factory)

	bidder := testBidder(t, Externals{Delegate: provider})

	request := &adapters.BidderRequest{
		AuctionID: "auction-1",
		Page:      "https://example.com/news",
		Slots:     []*adapters.SlotRequest{bannerSlot("bid1", "div1", 7)},
	}

	requests, errs := bidder.MakeRequests(request)
	require.Empty(t, errs)
	require.Len(t, requests, 1)
	assert.Equal(t, "https://bidder.criteo.com/delegated", requests[0].Uri)
	assert.JSONEq(t, `{"delegated":true}`, string(requests[0].Body))
}

func TestMakeRequestsBrokenDelegateFallsBack(t *testing.T) {
	provider := delegate.NewProvider()
	provider.Install(&fakeFactory{err: errors.New("not ready")})

	bidder := testBidder(t, Externals{Delegate: provider})

	request := &adapters.BidderRequest{
		AuctionID: "auction-1",
		Page:      "https://example.com/news",
		Slots:     []*adapters.SlotRequest{bannerSlot("bid1", "div1", 7)},
	}

	requests, errs := bidder.MakeRequests(request)
	require.Empty(t, errs)
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Uri, "https://bidder.criteo.com/cdb?")
}

// signFastBid produces a cache entry the given key vouches for.
func signFastBid(t *testing.T, key *rsa.PrivateKey, script string) string {
	t.Helper()
	digest := sha256.Sum256([]byte(script))
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return "// Hash: " + base64.StdEncoding.EncodeToString(signature) + "\n" + script
}

func publicKeyPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestMakeRequestsInstallsAndUsesFastBid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := newFakeStore()
	require.NoError(t, store.Set(context.Background(), "criteo_fast_bid", signFastBid(t, key, "window.Criteo = {};")))

	factory := &fakeFactory{adapter: &fakeAuctionAdapter{
		uri:  "https://bidder.criteo.com/delegated",
		body: []byte(`{"delegated":true}`),
	}}
	executor := &fakeExecutor{factory: factory}
	scripts := newFakeScriptLoader()

	cfg := testConfig()
	cfg.FastBid.PublicKey = publicKeyPEM(t, key)

	bidder, err := Builder(cfg, Externals{
		Store:    store,
		Executor: executor,
		Loader:   scripts,
		Random:   randomutil.FixedNumberGenerator{Value: 42},
	})
	require.NoError(t, err)

	request := &adapters.BidderRequest{
		AuctionID: "auction-1",
		Page:      "https://example.com/news",
		Timeout:   5 * time.Millisecond,
		Slots:     []*adapters.SlotRequest{bannerSlot("bid1", "div1", 7)},
	}

	requests, errs := bidder.MakeRequests(request)
	require.Empty(t, errs)
	require.Len(t, requests, 1)
	assert.Equal(t, "https://bidder.criteo.com/delegated", requests[0].Uri, "verified script should install the delegate for the same round")
	require.Len(t, executor.scripts, 1)
	assert.Equal(t, "window.Criteo = {};", string(executor.scripts[0]))

	// The refresh is scheduled regardless of the fastbid outcome.
	select {
	case url := <-scripts.loaded:
		assert.Equal(t, cfg.FastBid.ScriptURL, url)
	case <-time.After(time.Second):
		t.Fatal("expected the script reload to fire after the auction timeout")
	}
	assert.Equal(t, []string{"criteo"}, scripts.tags)
}

func TestMakeRequestsEvictsMalformedFastBid(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Set(context.Background(), "criteo_fast_bid", "no hash header here\nwindow.Criteo = {};"))

	bidder := testBidder(t, Externals{Store: store})

	request := &adapters.BidderRequest{
		AuctionID: "auction-1",
		Page:      "https://example.com/news",
		Slots:     []*adapters.SlotRequest{bannerSlot("bid1", "div1", 7)},
	}

	requests, errs := bidder.MakeRequests(request)
	require.Len(t, requests, 1, "the local fallback still bids")
	assert.Contains(t, requests[0].Uri, "https://bidder.criteo.com/cdb?")

	require.Len(t, errs, 1)
	assert.True(t, errortypes.IsWarning(errs[0]))
	assert.IsType(t, &errortypes.InvalidCachedScript{}, errs[0])

	_, err := store.Get(context.Background(), "criteo_fast_bid")
	assert.ErrorIs(t, err, storage.ErrNotFound, "the malformed entry should be evicted")
}

func TestOnTimeout(t *testing.T) {
	auctionAdapter := &fakeAuctionAdapter{}
	factory := &fakeFactory{adapter: auctionAdapter, known: true}

	provider := delegate.NewProvider()
	provider.Install(factory)

	bidder := testBidder(t, Externals{Delegate: provider})
	request := &adapters.BidderRequest{AuctionID: "auction-1"}

	bidder.OnTimeout(request)
	assert.Equal(t, 1, auctionAdapter.timeouts)
}

func TestOnTimeoutWithoutDelegate(t *testing.T) {
	bidder := testBidder(t, Externals{})
	assert.NotPanics(t, func() {
		bidder.OnTimeout(&adapters.BidderRequest{AuctionID: "auction-1"})
	})
}

func TestOnTimeoutUnknownAuction(t *testing.T) {
	auctionAdapter := &fakeAuctionAdapter{}
	provider := delegate.NewProvider()
	provider.Install(&fakeFactory{adapter: auctionAdapter})

	bidder := testBidder(t, Externals{Delegate: provider})
	bidder.OnTimeout(&adapters.BidderRequest{AuctionID: "auction-1"})
	assert.Zero(t, auctionAdapter.timeouts)
}
