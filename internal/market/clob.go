package market

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/models"
)

// ClobCredentials hold the API key trio used for level-2 (order and
// account) endpoints. The secret is the base64url-encoded HMAC key
// issued alongside the key and passphrase.
type ClobCredentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

func (c ClobCredentials) complete() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// ClobConfig configures a ClobClient. Price reads work with the zero
// value plus a base URL; order placement needs the credential trio, a
// signing key, and for proxy wallets the funder address holding the
// collateral.
type ClobConfig struct {
	BaseURL       string
	Credentials   ClobCredentials
	PrivateKey    string
	FunderAddress string
	SignatureType uint8
}

// ClobClient talks to the central limit order book. Public price quotes
// need no authentication; open-order queries and order submission sign
// each request with the credential trio and, for submission, attach an
// order signed by the wallet key.
type ClobClient struct {
	rest    *restClient
	creds   ClobCredentials
	signer  *OrderSigner
	funder  common.Address
	sigType uint8
	logger  zerolog.Logger
}

// NewClobClient builds a CLOB client. The private key and credentials
// are optional; methods that need them fail with ErrInvalidCredentials
// when they are absent.
func NewClobClient(cfg ClobConfig, logger zerolog.Logger) (*ClobClient, error) {
	base := cfg.BaseURL
	if base == "" {
		base = ClobBaseURL
	}

	client := &ClobClient{
		rest:    newRESTClient("clob", base, logger),
		creds:   cfg.Credentials,
		sigType: cfg.SignatureType,
		logger:  logger,
	}

	if cfg.PrivateKey != "" {
		signer, err := NewOrderSigner(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		client.signer = signer
		client.funder = signer.Address()
	}
	if cfg.FunderAddress != "" {
		client.funder = common.HexToAddress(cfg.FunderAddress)
	}

	return client, nil
}

// Price fetches the current quote for one outcome token. Side selects
// which side of the book is quoted; the sell side approximates what a
// buyer would pay right now.
func (c *ClobClient) Price(ctx context.Context, tokenID string, side models.Side) (float64, error) {
	query := url.Values{}
	query.Set("token_id", tokenID)
	query.Set("side", string(side))

	var payload struct {
		Price models.Numeric `json:"price"`
	}
	if err := c.rest.getJSON(ctx, "/price", query, &payload); err != nil {
		return 0, fmt.Errorf("fetch price for token %s: %w", tokenID, err)
	}

	price, ok := payload.Price.Float64()
	if !ok {
		return 0, apperrors.NewVenueError("BAD_PRICE", fmt.Sprintf("unparseable price %q for token %s", payload.Price, tokenID), nil)
	}
	return price, nil
}

// OpenOrders lists the account's resting orders. Requires credentials.
func (c *ClobClient) OpenOrders(ctx context.Context) ([]models.OpenOrder, error) {
	if !c.creds.complete() || c.signer == nil {
		return nil, fmt.Errorf("open orders: %w", apperrors.ErrInvalidCredentials)
	}

	const path = "/data/orders"
	headers, err := c.authHeaders(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var orders []models.OpenOrder
	if err := c.rest.roundTrip(ctx, http.MethodGet, path, nil, headers, nil, &orders); err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	return orders, nil
}

// SubmitOrder signs and posts a good-till-cancelled limit order for the
// given outcome token. Price is in collateral per share and size in
// shares; both are converted to the venue's six-decimal base units.
func (c *ClobClient) SubmitOrder(ctx context.Context, tokenID string, side models.Side, price, size decimal.Decimal) (*models.OrderReceipt, error) {
	if c.signer == nil || !c.creds.complete() {
		return nil, fmt.Errorf("submit order: %w", apperrors.ErrInvalidCredentials)
	}

	order, err := c.buildOrder(tokenID, side, price, size)
	if err != nil {
		return nil, err
	}
	signature, err := c.signer.Sign(order)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	body, err := json.Marshal(orderSubmission{
		Order:     newWireOrder(order, side, signature),
		Owner:     c.creds.APIKey,
		OrderType: "GTC",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling order: %w", err)
	}

	const path = "/order"
	headers, err := c.authHeaders(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var receipt models.OrderReceipt
	if err := c.rest.postJSON(ctx, path, headers, body, &receipt); err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	c.logger.Info().
		Str("token_id", tokenID).
		Str("side", string(side)).
		Str("order_id", receipt.OrderID).
		Bool("success", receipt.Success).
		Msg("Order submitted")
	return &receipt, nil
}

// buildOrder converts a human-facing price and size into the exchange
// order tuple. On a buy the maker amount is the collateral spent and
// the taker amount the shares received; a sell is the mirror image.
func (c *ClobClient) buildOrder(tokenID string, side models.Side, price, size decimal.Decimal) (orderPayload, error) {
	token, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return orderPayload{}, apperrors.NewVenueError("BAD_TOKEN", fmt.Sprintf("token id %q is not a decimal integer", tokenID), nil)
	}

	collateral := price.Mul(size).Shift(usdcDecimals).Round(0).BigInt()
	shares := size.Shift(usdcDecimals).Round(0).BigInt()

	order := orderPayload{
		Salt:          big.NewInt(rand.Int63()),
		Maker:         c.funder,
		Signer:        c.signer.Address(),
		Taker:         common.Address{},
		TokenID:       token,
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		SignatureType: c.sigType,
	}
	switch side {
	case models.SideBuy:
		order.Side = 0
		order.MakerAmount = collateral
		order.TakerAmount = shares
	case models.SideSell:
		order.Side = 1
		order.MakerAmount = shares
		order.TakerAmount = collateral
	default:
		return orderPayload{}, apperrors.NewVenueError("BAD_SIDE", fmt.Sprintf("unsupported order side %q", side), nil)
	}
	return order, nil
}

// authHeaders derives the level-2 auth headers for one request. The
// signature is an HMAC over timestamp, method, path, and the exact body
// bytes, keyed by the base64url-decoded API secret.
func (c *ClobClient) authHeaders(method, path string, body []byte) (http.Header, error) {
	secret, err := base64.URLEncoding.DecodeString(c.creds.Secret)
	if err != nil {
		return nil, fmt.Errorf("decoding api secret: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)

	// Built by map assignment; Header.Set would rewrite the venue's
	// expected POLY_* names into canonical MIME case.
	return http.Header{
		"POLY_ADDRESS":    {c.signer.Address().Hex()},
		"POLY_SIGNATURE":  {base64.URLEncoding.EncodeToString(mac.Sum(nil))},
		"POLY_TIMESTAMP":  {timestamp},
		"POLY_API_KEY":    {c.creds.APIKey},
		"POLY_PASSPHRASE": {c.creds.Passphrase},
	}, nil
}

type orderSubmission struct {
	Order     wireOrder `json:"order"`
	Owner     string    `json:"owner"`
	OrderType string    `json:"orderType"`
}

// wireOrder is the JSON shape the order endpoint expects: numeric
// fields as decimal strings and the side spelled out.
type wireOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType uint8  `json:"signatureType"`
	Signature     string `json:"signature"`
}

func newWireOrder(o orderPayload, side models.Side, signature string) wireOrder {
	return wireOrder{
		Salt:          o.Salt.Int64(),
		Maker:         o.Maker.Hex(),
		Signer:        o.Signer.Hex(),
		Taker:         o.Taker.Hex(),
		TokenID:       o.TokenID.String(),
		MakerAmount:   o.MakerAmount.String(),
		TakerAmount:   o.TakerAmount.String(),
		Expiration:    o.Expiration.String(),
		Nonce:         o.Nonce.String(),
		FeeRateBps:    o.FeeRateBps.String(),
		Side:          string(side),
		SignatureType: o.SignatureType,
		Signature:     signature,
	}
}
