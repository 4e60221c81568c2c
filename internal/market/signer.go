package market

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// CTF Exchange signing domain on Polygon.
const (
	exchangeDomainName    = "Polymarket CTF Exchange"
	exchangeDomainVersion = "1"
	polygonChainID        = 137
	exchangeContract      = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
)

// Signature schemes accepted by the exchange. Proxy covers the
// email/magic-link wallets the venue provisions; funds sit in the
// proxy while a separate EOA signs.
const (
	SignatureEOA   = 0
	SignatureProxy = 1
)

var (
	eip712DomainTypeHash = crypto.Keccak256([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	orderTypeHash = crypto.Keccak256([]byte(
		"Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"))
)

// orderPayload carries the numeric order fields that are hashed and
// signed. Amounts are in 6-decimal base units.
type orderPayload struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// OrderSigner produces the typed-data signature the exchange contract
// verifies for each order.
type OrderSigner struct {
	key             *ecdsa.PrivateKey
	address         common.Address
	domainSeparator []byte
}

// NewOrderSigner creates a signer from a hex-encoded private key.
func NewOrderSigner(privateKeyHex string) (*OrderSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing signer key: %w", err)
	}
	return &OrderSigner{
		key:             key,
		address:         crypto.PubkeyToAddress(key.PublicKey),
		domainSeparator: exchangeDomainSeparator(),
	}, nil
}

// Address returns the signing EOA's address.
func (s *OrderSigner) Address() common.Address {
	return s.address
}

// Sign hashes the order per EIP-712 and signs the digest. The returned
// signature is hex encoded with the legacy 27/28 recovery id.
func (s *OrderSigner) Sign(o orderPayload) (string, error) {
	digest := crypto.Keccak256(
		[]byte{0x19, 0x01},
		s.domainSeparator,
		hashOrder(o),
	)
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("signing order: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func hashOrder(o orderPayload) []byte {
	return crypto.Keccak256(
		orderTypeHash,
		uint256Word(o.Salt),
		addressWord(o.Maker),
		addressWord(o.Signer),
		addressWord(o.Taker),
		uint256Word(o.TokenID),
		uint256Word(o.MakerAmount),
		uint256Word(o.TakerAmount),
		uint256Word(o.Expiration),
		uint256Word(o.Nonce),
		uint256Word(o.FeeRateBps),
		uint256Word(big.NewInt(int64(o.Side))),
		uint256Word(big.NewInt(int64(o.SignatureType))),
	)
}

func exchangeDomainSeparator() []byte {
	return crypto.Keccak256(
		eip712DomainTypeHash,
		crypto.Keccak256([]byte(exchangeDomainName)),
		crypto.Keccak256([]byte(exchangeDomainVersion)),
		uint256Word(big.NewInt(polygonChainID)),
		addressWord(common.HexToAddress(exchangeContract)),
	)
}

func uint256Word(v *big.Int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func addressWord(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}
