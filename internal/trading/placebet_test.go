package trading

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/market"
	"polymarket-trader/internal/models"
	"polymarket-trader/internal/security"
)

func singleMarket(slug string) *stubMarkets {
	return &stubMarkets{markets: map[string]*market.Market{
		slug: testMarket(slug, "Will it happen?", []string{"Yes", "No"}, []string{"tok-y", "tok-n"}),
	}}
}

func TestPlaceBetDryRun(t *testing.T) {
	venue := &stubVenue{price: 0.64}
	e := newDryRunEngine(venue, singleMarket("us-recession-2026"))

	pos, err := e.PlaceBet(context.Background(), "us-recession-2026", "Yes", 15, "three leaders agree")
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	if pos.MarketSlug != "us-recession-2026" {
		t.Errorf("MarketSlug = %q", pos.MarketSlug)
	}
	if pos.MarketTitle != "Will it happen?" {
		t.Errorf("MarketTitle = %q", pos.MarketTitle)
	}
	if pos.Price != 0.64 {
		t.Errorf("Price = %v, want 0.64", pos.Price)
	}
	if pos.Shares != 15/0.64 {
		t.Errorf("Shares = %v, want %v", pos.Shares, 15/0.64)
	}
	if !pos.DryRun {
		t.Error("DryRun = false, want true")
	}
	if pos.OrderID != "sim-1" {
		t.Errorf("OrderID = %q, want sim-1", pos.OrderID)
	}
	if pos.Reasoning != "three leaders agree" {
		t.Errorf("Reasoning = %q", pos.Reasoning)
	}
	if venue.submitted != 0 {
		t.Errorf("venue received %d orders in dry-run, want 0", venue.submitted)
	}

	funds, err := e.AvailableFunds(context.Background())
	if err != nil {
		t.Fatalf("AvailableFunds: %v", err)
	}
	if funds.Available != 35 {
		t.Errorf("Available after bet = %v, want 35", funds.Available)
	}

	second, err := e.PlaceBet(context.Background(), "us-recession-2026", "No", 5, "hedging the first leg")
	if err != nil {
		t.Fatalf("second PlaceBet: %v", err)
	}
	if second.OrderID != "sim-2" {
		t.Errorf("second OrderID = %q, want sim-2", second.OrderID)
	}

	trades := e.TradeHistory(0)
	if len(trades) != 2 {
		t.Fatalf("len(trades) = %d, want 2", len(trades))
	}
	if trades[0].Side != models.SideBuy {
		t.Errorf("Side = %q, want BUY", trades[0].Side)
	}
}

func TestPlaceBetRejectsNonPositiveAmount(t *testing.T) {
	e := newDryRunEngine(&stubVenue{price: 0.5}, singleMarket("m"))

	for _, amount := range []float64{0, -5} {
		_, err := e.PlaceBet(context.Background(), "m", "Yes", amount, "test")
		if err == nil {
			t.Fatalf("PlaceBet(%v) succeeded, want error", amount)
		}
		if !strings.Contains(err.Error(), "must be positive") {
			t.Errorf("PlaceBet(%v) error = %q", amount, err)
		}
	}
	if len(e.Positions()) != 0 {
		t.Error("rejected bets left positions behind")
	}
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	e := newDryRunEngine(&stubVenue{price: 0.5}, singleMarket("m"))

	_, err := e.PlaceBet(context.Background(), "m", "Yes", DryRunStartingBalance+10, "overreach")
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	funds, _ := e.AvailableFunds(context.Background())
	if funds.Available != DryRunStartingBalance {
		t.Errorf("Available = %v, want untouched %v", funds.Available, DryRunStartingBalance)
	}
	if len(e.Positions()) != 0 || len(e.TradeHistory(0)) != 0 {
		t.Error("failed bet mutated session state")
	}
}

func TestPlaceBetUnknownOutcome(t *testing.T) {
	e := newDryRunEngine(&stubVenue{price: 0.5}, singleMarket("m"))

	_, err := e.PlaceBet(context.Background(), "m", "Maybe", 10, "test")
	if !errors.Is(err, apperrors.ErrOutcomeNotFound) {
		t.Fatalf("err = %v, want ErrOutcomeNotFound", err)
	}
	if !strings.Contains(err.Error(), `"Maybe"`) {
		t.Errorf("error = %q, want requested outcome named", err)
	}
	if !strings.Contains(err.Error(), "Yes, No") {
		t.Errorf("error = %q, want available outcomes listed", err)
	}
	if len(e.Positions()) != 0 {
		t.Error("failed bet left a position behind")
	}
}

func TestPlaceBetRejectsMarketNotAcceptingOrders(t *testing.T) {
	m := testMarket("m", "Q?", []string{"Yes", "No"}, []string{"tok-y", "tok-n"})
	m.AcceptingOrders = false
	e := newDryRunEngine(&stubVenue{price: 0.5}, &stubMarkets{markets: map[string]*market.Market{"m": m}})

	_, err := e.PlaceBet(context.Background(), "m", "Yes", 10, "test")
	if !errors.Is(err, apperrors.ErrMarketClosed) {
		t.Fatalf("err = %v, want ErrMarketClosed", err)
	}
	if len(e.Positions()) != 0 || len(e.TradeHistory(0)) != 0 {
		t.Error("blocked bet mutated session state")
	}
}

func TestPlaceBetMatchesOutcomeCaseInsensitively(t *testing.T) {
	venue := &stubVenue{price: 0.4}
	e := newDryRunEngine(venue, singleMarket("m"))

	pos, err := e.PlaceBet(context.Background(), "m", "yes", 10, "test")
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if pos.Outcome != "Yes" {
		t.Errorf("Outcome = %q, want canonical Yes", pos.Outcome)
	}
}

func TestPlaceBetMarketResolveFailure(t *testing.T) {
	e := newDryRunEngine(&stubVenue{price: 0.5}, &stubMarkets{err: fmt.Errorf("gamma 503")})

	_, err := e.PlaceBet(context.Background(), "m", "Yes", 10, "test")
	if err == nil || !strings.Contains(err.Error(), "resolve market m") {
		t.Errorf("error = %v, want resolve market wrap", err)
	}
}

func TestPlaceBetMissingOutcomeToken(t *testing.T) {
	markets := &stubMarkets{markets: map[string]*market.Market{
		"m": testMarket("m", "Q?", []string{"Yes", "No"}, []string{"tok-y"}),
	}}
	e := newDryRunEngine(&stubVenue{price: 0.5}, markets)

	_, err := e.PlaceBet(context.Background(), "m", "No", 10, "test")
	if err == nil || !strings.Contains(err.Error(), "no outcome token") {
		t.Errorf("error = %v, want missing token", err)
	}
}

func TestPlaceBetClampsQuotedPrice(t *testing.T) {
	cases := []struct {
		name   string
		quoted float64
		want   float64
	}{
		{"above band", 1.2, maxOrderPrice},
		{"below band", 0.0001, minOrderPrice},
		{"zero quote", 0, minOrderPrice},
		{"inside band", 0.75, 0.75},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newDryRunEngine(&stubVenue{price: tc.quoted}, singleMarket("m"))
			pos, err := e.PlaceBet(context.Background(), "m", "Yes", 10, "test")
			if err != nil {
				t.Fatalf("PlaceBet: %v", err)
			}
			if pos.Price != tc.want {
				t.Errorf("Price = %v, want %v", pos.Price, tc.want)
			}
			if pos.Shares != 10/tc.want {
				t.Errorf("Shares = %v, want %v", pos.Shares, 10/tc.want)
			}
		})
	}
}

func TestPlaceBetFallsBackToEvenOddsWithoutQuote(t *testing.T) {
	venue := &stubVenue{priceErr: fmt.Errorf("book empty")}
	e := newDryRunEngine(venue, singleMarket("m"))

	pos, err := e.PlaceBet(context.Background(), "m", "Yes", 10, "test")
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if pos.Price != fallbackPrice {
		t.Errorf("Price = %v, want fallback %v", pos.Price, fallbackPrice)
	}
	if pos.Shares != 20 {
		t.Errorf("Shares = %v, want 20", pos.Shares)
	}
}

func TestPlaceBetLiveSubmitsOrder(t *testing.T) {
	chain := &stubChain{balance: 200, failAfter: 1}
	venue := &stubVenue{
		price:   0.5,
		receipt: &models.OrderReceipt{Success: true, OrderID: "0xabc123"},
	}
	e := NewEngine(engineConfig("live"), singleMarket("m"), venue, chain, nil, zerolog.Nop())

	pos, err := e.PlaceBet(context.Background(), "m", "Yes", 20, "live consensus play")
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	if venue.submitted != 1 {
		t.Fatalf("submitted = %d, want 1", venue.submitted)
	}
	if venue.lastToken != "tok-y" {
		t.Errorf("token = %q, want tok-y", venue.lastToken)
	}
	if venue.lastSide != models.SideBuy {
		t.Errorf("side = %q, want BUY", venue.lastSide)
	}
	if venue.lastPrice.String() != "0.5" {
		t.Errorf("price = %s, want 0.5", venue.lastPrice)
	}
	if venue.lastSize.String() != "40" {
		t.Errorf("size = %s, want 40", venue.lastSize)
	}

	if pos.OrderID != "0xabc123" {
		t.Errorf("OrderID = %q, want 0xabc123", pos.OrderID)
	}
	if pos.DryRun {
		t.Error("DryRun = true on a live fill")
	}

	// The chain refresh fails from here on, so the decremented balance
	// is what the funds view reports.
	funds, err := e.AvailableFunds(context.Background())
	if err != nil {
		t.Fatalf("AvailableFunds: %v", err)
	}
	if funds.Balance != 180 {
		t.Errorf("Balance after fill = %v, want 180", funds.Balance)
	}
}

func TestPlaceBetLiveOrderRejected(t *testing.T) {
	chain := &stubChain{balance: 200}
	venue := &stubVenue{
		price:   0.5,
		receipt: &models.OrderReceipt{Success: false, OrderID: "0xdead", Error: "not enough balance / allowance"},
	}
	e := NewEngine(engineConfig("live"), singleMarket("m"), venue, chain, nil, zerolog.Nop())

	_, err := e.PlaceBet(context.Background(), "m", "Yes", 20, "test")
	if err == nil {
		t.Fatal("PlaceBet succeeded on a rejected order")
	}
	if !strings.Contains(err.Error(), "not enough balance") {
		t.Errorf("error = %q, want venue reason surfaced", err)
	}
	if len(e.Positions()) != 0 {
		t.Error("rejected order left a position behind")
	}
}

func TestPlaceBetLiveSubmitFailure(t *testing.T) {
	chain := &stubChain{balance: 200, failAfter: 1}
	venue := &stubVenue{price: 0.5, submitErr: fmt.Errorf("clob timeout")}
	e := NewEngine(engineConfig("live"), singleMarket("m"), venue, chain, nil, zerolog.Nop())

	_, err := e.PlaceBet(context.Background(), "m", "Yes", 20, "test")
	if err == nil || !strings.Contains(err.Error(), "submit order for m") {
		t.Errorf("error = %v, want submit wrap", err)
	}

	funds, _ := e.AvailableFunds(context.Background())
	if funds.Balance != 200 {
		t.Errorf("Balance = %v, want untouched 200", funds.Balance)
	}
}

func TestPlaceBetLiveWithoutVenueClient(t *testing.T) {
	e := NewEngine(engineConfig("live"), singleMarket("m"), nil, nil, nil, zerolog.Nop())

	_, err := e.PlaceBet(context.Background(), "m", "Yes", 20, "test")
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPlaceBetBlockedInReadOnlyMode(t *testing.T) {
	dir := t.TempDir()
	audit, err := security.NewAuditLogger(security.AuditConfig{LogDir: dir, MaxSize: 1})
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	cfg := engineConfig("dry-run")
	cfg.Security.ReadOnlyMode = true
	venue := &stubVenue{price: 0.5}
	e := NewEngine(cfg, singleMarket("m"), venue, nil, audit, zerolog.Nop())

	_, err = e.PlaceBet(context.Background(), "m", "Yes", 10, "test")
	var roErr *security.ReadOnlyError
	if !errors.As(err, &roErr) {
		t.Fatalf("err = %v, want ReadOnlyError", err)
	}
	if roErr.Operation != "place_bet" {
		t.Errorf("Operation = %q, want place_bet", roErr.Operation)
	}

	if venue.submitted != 0 {
		t.Error("read-only mode let an order through")
	}
	if len(e.Positions()) != 0 || len(e.TradeHistory(0)) != 0 {
		t.Error("blocked bet mutated session state")
	}

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	if !strings.Contains(string(data), string(security.AuditTradeBlocked)) {
		t.Error("audit log missing TRADE_BLOCKED entry")
	}
}

func TestPlaceBetWritesAuditTrail(t *testing.T) {
	dir := t.TempDir()
	audit, err := security.NewAuditLogger(security.AuditConfig{LogDir: dir, MaxSize: 1})
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	e := NewEngine(engineConfig("dry-run"), singleMarket("m"), &stubVenue{price: 0.5}, nil, audit, zerolog.Nop())

	if _, err := e.PlaceBet(context.Background(), "m", "Yes", 10, "test"); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if _, err := e.PlaceBet(context.Background(), "m", "Yes", 500, "overreach"); !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	log := string(data)

	if !strings.Contains(log, string(security.AuditBetPlaced)) {
		t.Error("audit log missing BET_PLACED entry")
	}
	if !strings.Contains(log, string(security.AuditBetRejected)) {
		t.Error("audit log missing BET_REJECTED entry")
	}
	if !strings.Contains(log, `"market":"m"`) {
		t.Error("audit log missing market slug")
	}
}
