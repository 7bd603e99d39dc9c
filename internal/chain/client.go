package chain

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrUserRejected marks a signature request the wallet holder declined.
	ErrUserRejected = errors.New("user rejected the request")
	ErrReverted     = errors.New("transaction reverted")
	ErrReadOnly     = errors.New("client is read-only")
	ErrPriceTooWide = errors.New("price does not fit in 256 bits")
)

// Client abstracts the WasteLive items contract.
type Client interface {
	ItemPrice(ctx context.Context, itemID uint64) (*uint256.Int, error)
	MintItem(ctx context.Context, call MintCall) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (Receipt, error)
}

// Wallet reports whether a signer is attached and which network it is on.
type Wallet interface {
	Connected() bool
	ChainID(ctx context.Context) (uint64, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// MintCall is the payable mintItem(itemId, amount) invocation.
type MintCall struct {
	ItemID   uint64
	Quantity *uint256.Int
	Value    *uint256.Int
}

type ReceiptStatus string

const (
	ReceiptConfirmed ReceiptStatus = "confirmed"
	ReceiptReverted  ReceiptStatus = "reverted"
)

type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Status      ReceiptStatus
}

// rejectionMarkers are the messages wallets use when the holder declines:
// EIP-1193 providers and clef respectively.
var rejectionMarkers = []string{
	"user rejected the request",
	"user denied",
	"request denied",
}

// IsUserRejected reports whether err means the signer declined, as opposed to
// a submission failure.
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
