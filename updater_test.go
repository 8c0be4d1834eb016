package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sljivkov/fiatoracle/apis"
	"github.com/sljivkov/fiatoracle/chains"
	"github.com/sljivkov/fiatoracle/config"
	"github.com/sljivkov/fiatoracle/domain"
	"github.com/sljivkov/fiatoracle/metrics"
	"github.com/sljivkov/fiatoracle/pricefeed"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testContract = "wasm1qqqsyqcyq5rqwzqfpg9scrgwpugpzysnzs23v9ccrydpk8qarc0sutya6q"
	testChainID  = "testchain-1"
)

// MockFeed implements pricefeed.RateProvider for testing
type MockFeed struct {
	mock.Mock
}

func (m *MockFeed) FetchRates(ctx context.Context) (pricefeed.RateSnapshot, error) {
	args := m.Called(ctx)

	return args.Get(0).(pricefeed.RateSnapshot), args.Error(1)
}

// MockAccounts implements pricefeed.AccountProvider for testing
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) FetchAccountMeta(ctx context.Context, address string) (chains.AccountMeta, error) {
	args := m.Called(ctx, address)

	return args.Get(0).(chains.AccountMeta), args.Error(1)
}

// MockBroadcaster implements pricefeed.TxBroadcaster for testing
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastCommit(ctx context.Context, tx *chains.SignedTx) (*chains.CommitResult, error) {
	args := m.Called(ctx, tx)
	res, _ := args.Get(0).(*chains.CommitResult)

	return res, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		Seed:           testMnemonic,
		AddrPrefix:     "wasm",
		PriceAddr:      testContract,
		ChainID:        testChainID,
		FeeDenom:       "ustake",
		FeeAmount:      15000,
		GasLimit:       500000,
		DerivationPath: chains.DefaultDerivationPath,
		LogLevel:       "info",
	}
}

func testAddress(t *testing.T) (string, []byte) {
	t.Helper()

	id, err := chains.ResolveIdentity(testMnemonic, chains.DefaultDerivationPath, "wasm")
	require.NoError(t, err)
	defer id.Close()

	return id.Address(), id.PubKey()
}

func threeCurrencySnapshot() pricefeed.RateSnapshot {
	return pricefeed.NewRateSnapshot(map[pricefeed.Currency]float64{
		pricefeed.EUR: 0.85,
		pricefeed.GBP: 0.75,
		pricefeed.SGD: 1.30,
		pricefeed.ARS: 0.0,
		pricefeed.BRL: 0.0,
	})
}

func TestRun(t *testing.T) {
	address, pubKey := testAddress(t)
	log, _ := test.NewNullLogger()

	feed := new(MockFeed)
	accounts := new(MockAccounts)
	broadcaster := new(MockBroadcaster)

	feed.On("FetchRates", mock.Anything).Return(threeCurrencySnapshot(), nil)
	accounts.On("FetchAccountMeta", mock.Anything, address).
		Return(chains.AccountMeta{AccountNumber: 42, Sequence: 7}, nil)

	var sent *chains.SignedTx
	broadcaster.On("BroadcastCommit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(*chains.SignedTx)
		}).
		Return(&chains.CommitResult{Hash: "AB", Height: 10}, nil)

	updater := NewUpdater(testConfig(), feed, accounts, broadcaster, metrics.NewRecorder(), log)

	res, err := updater.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, exitOK, exitCode(err))

	require.NotNil(t, sent)
	assert.True(t, chains.VerifySignature(sent, pubKey, testChainID, 42))

	msg := `{"update_prices":[{"currency":"EUR","usd_price":"85","updated_at":0},{"currency":"GBP","usd_price":"75","updated_at":0},{"currency":"SGD","usd_price":"130","updated_at":0}]}`
	assert.True(t, bytes.Contains(sent.BodyBytes, []byte(msg)))
	assert.False(t, bytes.Contains(sent.BodyBytes, []byte("ARS")))
	assert.False(t, bytes.Contains(sent.BodyBytes, []byte("BRL")))

	assert.Equal(t, chains.BuildAuthInfo(pubKey, 7, testConfig().TxParams().Fee), sent.AuthInfoBytes)

	feed.AssertExpectations(t)
	accounts.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestRun_FeedFailureHaltsBeforeLedger(t *testing.T) {
	log, hook := test.NewNullLogger()

	feed := new(MockFeed)
	accounts := new(MockAccounts)
	broadcaster := new(MockBroadcaster)

	feed.On("FetchRates", mock.Anything).
		Return(pricefeed.RateSnapshot{}, &domain.FeedError{Op: "fetch rates", Err: errors.New("connection refused")})

	updater := NewUpdater(testConfig(), feed, accounts, broadcaster, metrics.NewRecorder(), log)

	res, err := updater.Run(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrNoValidPrices)
	assert.Equal(t, exitNoValidPrices, exitCode(err))

	accounts.AssertNotCalled(t, "FetchAccountMeta", mock.Anything, mock.Anything)
	broadcaster.AssertNotCalled(t, "BroadcastCommit", mock.Anything, mock.Anything)

	// one warning for the feed and one per currency
	assert.Len(t, hook.AllEntries(), 1+len(pricefeed.Currencies)+1)
}

func TestRun_AccountFailure(t *testing.T) {
	log, _ := test.NewNullLogger()

	feed := new(MockFeed)
	accounts := new(MockAccounts)
	broadcaster := new(MockBroadcaster)

	feed.On("FetchRates", mock.Anything).Return(threeCurrencySnapshot(), nil)
	accounts.On("FetchAccountMeta", mock.Anything, mock.Anything).
		Return(chains.AccountMeta{}, &domain.RPCError{Op: "account", Err: errors.New(`invalid sequence "abc"`)})

	updater := NewUpdater(testConfig(), feed, accounts, broadcaster, metrics.NewRecorder(), log)

	_, err := updater.Run(context.Background())

	var rpcErr *domain.RPCError
	assert.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, exitFailure, exitCode(err))
	broadcaster.AssertNotCalled(t, "BroadcastCommit", mock.Anything, mock.Anything)
}

func TestRun_BadSeed(t *testing.T) {
	log, _ := test.NewNullLogger()

	feed := new(MockFeed)
	accounts := new(MockAccounts)
	broadcaster := new(MockBroadcaster)

	feed.On("FetchRates", mock.Anything).Return(threeCurrencySnapshot(), nil)

	cfg := testConfig()
	cfg.Seed = "not a valid mnemonic"

	_, err := NewUpdater(cfg, feed, accounts, broadcaster, metrics.NewRecorder(), log).Run(context.Background())

	var keyErr *domain.KeyError
	assert.True(t, errors.As(err, &keyErr))
	accounts.AssertNotCalled(t, "FetchAccountMeta", mock.Anything, mock.Anything)
}

func TestRun_FailedTxIsReported(t *testing.T) {
	log, _ := test.NewNullLogger()

	feed := new(MockFeed)
	accounts := new(MockAccounts)
	broadcaster := new(MockBroadcaster)

	feed.On("FetchRates", mock.Anything).Return(threeCurrencySnapshot(), nil)
	accounts.On("FetchAccountMeta", mock.Anything, mock.Anything).Return(chains.AccountMeta{AccountNumber: 1, Sequence: 0}, nil)
	broadcaster.On("BroadcastCommit", mock.Anything, mock.Anything).
		Return(&chains.CommitResult{Code: 5, Codespace: "wasm", Log: "Unauthorized"}, nil).Once()

	res, err := NewUpdater(testConfig(), feed, accounts, broadcaster, metrics.NewRecorder(), log).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Equal(t, exitOK, exitCode(err))
	broadcaster.AssertNumberOfCalls(t, "BroadcastCommit", 1)
}

func TestRun_BroadcastFailure(t *testing.T) {
	log, _ := test.NewNullLogger()

	feed := new(MockFeed)
	accounts := new(MockAccounts)
	broadcaster := new(MockBroadcaster)

	feed.On("FetchRates", mock.Anything).Return(threeCurrencySnapshot(), nil)
	accounts.On("FetchAccountMeta", mock.Anything, mock.Anything).Return(chains.AccountMeta{AccountNumber: 1, Sequence: 3}, nil)
	broadcaster.On("BroadcastCommit", mock.Anything, mock.Anything).
		Return(nil, &domain.RPCError{Op: "broadcast_tx_commit", Err: errors.New("timed out")})

	_, err := NewUpdater(testConfig(), feed, accounts, broadcaster, metrics.NewRecorder(), log).Run(context.Background())

	var rpcErr *domain.RPCError
	assert.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestRun_EndToEnd(t *testing.T) {
	address, pubKey := testAddress(t)
	log, _ := test.NewNullLogger()

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"USD": {"EUR": 0.85, "GBP": 0.75, "SGD": 1.30, "ARS": 0, "BRL": 0}}`))
	}))
	defer feedServer.Close()

	lcdServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/auth/v1beta1/accounts/"+address, r.URL.Path)
		_, _ = w.Write([]byte(`{"account": {"address": "` + address + `", "account_number": "42", "sequence": "7"}}`))
	}))
	defer lcdServer.Close()

	var broadcasts atomic.Int32

	rpcServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		broadcasts.Add(1)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"check_tx":{"code":0},"tx_result":{"code":0,"log":""},"hash":"AB","height":"99"}}`))
	}))
	defer rpcServer.Close()

	cfg := testConfig()
	cfg.LCD = lcdServer.URL
	cfg.RPC = rpcServer.URL

	updater := NewUpdater(
		cfg,
		apis.NewYadio(feedServer.URL, feedServer.Client()),
		chains.NewAccountClient(cfg.LCD, lcdServer.Client()),
		chains.NewBroadcaster(cfg.RPC, rpcServer.Client()),
		metrics.NewRecorder(),
		log,
	)

	res, err := updater.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, int64(99), res.Height)
	assert.Equal(t, int32(1), broadcasts.Load())
	assert.NotEmpty(t, pubKey)
}

func TestRun_EndToEndFeedDown(t *testing.T) {
	log, _ := test.NewNullLogger()

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer feedServer.Close()

	var ledgerCalls atomic.Int32

	ledger := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ledgerCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ledger.Close()

	updater := NewUpdater(
		testConfig(),
		apis.NewYadio(feedServer.URL, nil),
		chains.NewAccountClient(ledger.URL, nil),
		chains.NewBroadcaster(ledger.URL, nil),
		metrics.NewRecorder(),
		log,
	)

	_, err := updater.Run(context.Background())

	assert.Equal(t, exitNoValidPrices, exitCode(err))
	assert.Equal(t, int32(0), ledgerCalls.Load())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitNoValidPrices, exitCode(domain.ErrNoValidPrices))
	assert.Equal(t, exitFailure, exitCode(&domain.SignError{Err: errors.New("x")}))
}
