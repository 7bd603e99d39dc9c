package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// FakeClient is an in-memory items contract for tests and dry runs. Hooks run
// outside the lock so they may block to hold a request in flight.
type FakeClient struct {
	// OnMint runs before a mint is accepted; a non-nil error is returned as-is.
	OnMint func(ctx context.Context, call MintCall) error
	// OnReceipt runs before a receipt is reported.
	OnReceipt func(ctx context.Context, hash common.Hash) error

	mu        sync.Mutex
	chainID   uint64
	connected bool
	prices    map[uint64]*uint256.Int
	priceErr  error
	reverted  map[common.Hash]bool
	minted    map[uint64]uint64
	priceHits map[uint64]int
	nonce     uint64
	revertAll bool
}

func NewFakeClient(chainID uint64, prices map[uint64]*uint256.Int) *FakeClient {
	f := &FakeClient{
		chainID:   chainID,
		connected: true,
		prices:    make(map[uint64]*uint256.Int, len(prices)),
		reverted:  make(map[common.Hash]bool),
		minted:    make(map[uint64]uint64),
		priceHits: make(map[uint64]int),
	}
	for id, p := range prices {
		f.prices[id] = p.Clone()
	}
	return f
}

func (f *FakeClient) SetPrice(itemID uint64, price *uint256.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[itemID] = price.Clone()
}

// FailPrices makes every price read return err until called with nil.
func (f *FakeClient) FailPrices(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceErr = err
}

func (f *FakeClient) SetChainID(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainID = id
}

func (f *FakeClient) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

// RevertMints makes subsequent mints mine with a failed status.
func (f *FakeClient) RevertMints(revert bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revertAll = revert
}

func (f *FakeClient) Minted(itemID uint64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minted[itemID]
}

func (f *FakeClient) PriceReads(itemID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priceHits[itemID]
}

func (f *FakeClient) ItemPrice(_ context.Context, itemID uint64) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceHits[itemID]++
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	p, ok := f.prices[itemID]
	if !ok {
		return new(uint256.Int), nil
	}
	return p.Clone(), nil
}

func (f *FakeClient) MintItem(ctx context.Context, call MintCall) (common.Hash, error) {
	if hook := f.OnMint; hook != nil {
		if err := hook(ctx, call); err != nil {
			return common.Hash{}, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return common.Hash{}, ErrReadOnly
	}
	price := f.prices[call.ItemID]
	if price == nil || price.IsZero() {
		return common.Hash{}, fmt.Errorf("execution reverted: item not for sale")
	}
	want := new(uint256.Int).Mul(price, call.Quantity)
	if call.Value == nil || !call.Value.Eq(want) {
		return common.Hash{}, fmt.Errorf("execution reverted: incorrect payment")
	}

	f.nonce++
	hash := fakeTxHash(call.ItemID, f.nonce)
	if f.revertAll {
		f.reverted[hash] = true
	} else {
		f.minted[call.ItemID] += call.Quantity.Uint64()
	}
	return hash, nil
}

func (f *FakeClient) WaitForReceipt(ctx context.Context, hash common.Hash) (Receipt, error) {
	if hook := f.OnReceipt; hook != nil {
		if err := hook(ctx, hash); err != nil {
			return Receipt{}, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reverted[hash] {
		return Receipt{TxHash: hash, BlockNumber: f.nonce, Status: ReceiptReverted}, ErrReverted
	}
	return Receipt{TxHash: hash, BlockNumber: f.nonce, Status: ReceiptConfirmed}, nil
}

func (f *FakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeClient) ChainID(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, nil
}

func (f *FakeClient) Ping(context.Context) error {
	return nil
}

func fakeTxHash(itemID, nonce uint64) common.Hash {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], itemID)
	binary.BigEndian.PutUint64(buf[8:], nonce)
	return crypto.Keccak256Hash(buf[:])
}
