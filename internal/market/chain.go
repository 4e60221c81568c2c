package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"polymarket-trader/pkg/utils"
)

// USDC contract on Polygon. Balances are reported with 6 decimals.
const (
	usdcContract = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	usdcDecimals = 6
)

// ChainClient reads wallet balances from the Polygon chain over
// JSON-RPC. Each call dials the endpoint fresh; balance checks are
// rare enough that holding a connection is not worth it.
type ChainClient struct {
	rpcURL string
	logger zerolog.Logger
}

// NewChainClient creates a chain client against the given RPC endpoint.
func NewChainClient(rpcURL string, logger zerolog.Logger) *ChainClient {
	if rpcURL == "" {
		rpcURL = PolygonRPCURL
	}
	return &ChainClient{
		rpcURL: rpcURL,
		logger: logger.With().Str("api", "polygon").Logger(),
	}
}

// USDCBalance returns the wallet's on-chain USDC balance in dollars.
// Public RPC endpoints drop requests often enough that the read
// retries with backoff before giving up.
func (c *ChainClient) USDCBalance(ctx context.Context, wallet string) (float64, error) {
	balance, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() (float64, error) {
		return c.readUSDCBalance(ctx, wallet)
	})
	if err != nil {
		return 0, err
	}

	c.logger.Debug().Str("wallet", wallet).Float64("usdc", balance).Msg("Fetched chain balance")
	return balance, nil
}

// readUSDCBalance dials the endpoint fresh and issues one balanceOf
// call, so every retry attempt gets a clean connection.
func (c *ChainClient) readUSDCBalance(ctx context.Context, wallet string) (float64, error) {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return 0, fmt.Errorf("dial polygon rpc: %w", err)
	}
	defer client.Close()

	contract := common.HexToAddress(usdcContract)
	selector := crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	calldata := append(selector, common.LeftPadBytes(common.HexToAddress(wallet).Bytes(), 32)...)

	raw, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: calldata,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("balanceOf call: %w", err)
	}

	units := new(big.Int).SetBytes(raw)
	balance, _ := new(big.Float).Quo(
		new(big.Float).SetInt(units),
		big.NewFloat(1e6),
	).Float64()

	return balance, nil
}
