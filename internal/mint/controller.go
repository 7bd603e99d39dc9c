package mint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"wastelive/internal/catalog"
	"wastelive/internal/chain"
	"wastelive/internal/notify"
	"wastelive/internal/wallet"
)

var (
	ErrNotConnected     = errors.New("wallet not connected")
	ErrMintInFlight     = errors.New("mint already in flight")
	ErrWrongNetwork     = errors.New("wrong network")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrStopped          = errors.New("controller stopped")
	ErrAlreadyRunning   = errors.New("controller already running")
)

const (
	msgConfirmInWallet  = "Please confirm in your wallet..."
	msgMinting          = "Currently minting..."
	msgGenericFailure   = "An error occurred"
	msgPriceUnavailable = "The price of the item is not available"
	msgConnectWallet    = "Please connect your wallet."
)

// Network is the chain minting is restricted to.
type Network struct {
	ID   uint64
	Name string
}

var SomniaTestnet = Network{ID: 50312, Name: "Somnia Testnet"}

// Observer receives workflow outcomes, typically for metrics.
type Observer interface {
	PriceRead(itemID uint64, err error)
	MintStarted(itemID uint64)
	MintFinished(itemID uint64, outcome State)
	MintRefused(itemID uint64, reason error)
}

type nopObserver struct{}

func (nopObserver) PriceRead(uint64, error)    {}
func (nopObserver) MintStarted(uint64)         {}
func (nopObserver) MintFinished(uint64, State) {}
func (nopObserver) MintRefused(uint64, error)  {}

type Config struct {
	Chain    chain.Client
	Notifier notify.Notifier
	Network  Network
	Observer Observer
	Logger   zerolog.Logger
}

// Request is one user-initiated mint. Quantity is always 1; Value is the price
// at submission time.
type Request struct {
	Seq      uint64
	ItemID   uint64
	Quantity *uint256.Int
	Value    *uint256.Int
	Toast    notify.ID
	TxHash   common.Hash
}

// View is a point-in-time snapshot of one item for rendering.
type View struct {
	Item        catalog.Item `json:"item"`
	Price       string       `json:"price"`
	RawPrice    string       `json:"rawPrice,omitempty"`
	PriceStatus string       `json:"priceStatus"`
	Label       string       `json:"label"`
	Enabled     bool         `json:"enabled"`
	Connected   bool         `json:"connected"`
	State       State        `json:"state"`
	LastOutcome State        `json:"lastOutcome"`
	LastTxHash  string       `json:"lastTxHash,omitempty"`
	Completed   uint64       `json:"completed"`
}

type (
	connectionChanged struct{ conn wallet.Connection }
	refreshRequested  struct{}
	triggerRequested  struct{ reply chan error }
	priceLoaded       struct {
		seq   uint64
		price *uint256.Int
		err   error
	}
	submitted struct {
		seq  uint64
		hash common.Hash
		err  error
	}
	confirming      struct{ seq uint64 }
	receiptObserved struct {
		seq     uint64
		receipt chain.Receipt
		err     error
	}
)

// Controller drives the mint workflow of a single catalog item. All state is
// owned by the Run goroutine; callers talk to it through events, and async
// chain calls report back the same way.
type Controller struct {
	item     catalog.Item
	chain    chain.Client
	notifier notify.Notifier
	network  Network
	observer Observer
	log      zerolog.Logger

	events  chan any
	stopped chan struct{}
	running atomic.Bool

	mu   sync.RWMutex
	view View

	conn      wallet.Connection
	state     State
	price     PriceQuote
	req       *Request
	seq       uint64
	priceSeq  uint64
	outcome   State
	completed uint64
	lastTx    common.Hash
}

func NewController(item catalog.Item, cfg Config) *Controller {
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Network == (Network{}) {
		cfg.Network = SomniaTestnet
	}
	c := &Controller{
		item:     item,
		chain:    cfg.Chain,
		notifier: cfg.Notifier,
		network:  cfg.Network,
		observer: cfg.Observer,
		log:      cfg.Logger.With().Uint64("item", item.ID).Str("name", item.Name).Logger(),
		events:   make(chan any, 32),
		stopped:  make(chan struct{}),
		price:    LoadingQuote(),
	}
	c.publish()
	return c
}

func (c *Controller) Item() catalog.Item {
	return c.item
}

// Run processes events until ctx is done. The price is read on start.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.stopped)

	c.refreshPrice(ctx)
	c.publish()

	for {
		select {
		case <-ctx.Done():
			if c.req != nil {
				c.notifier.Dismiss(c.req.Toast)
			}
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
			c.publish()
		}
	}
}

// View returns the latest published snapshot.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Trigger starts a mint. It returns nil once the request awaits a signature,
// or the reason it was refused; refusals other than ErrMintInFlight also
// raise a warning toast.
func (c *Controller) Trigger(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, triggerRequested{reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) SetConnection(ctx context.Context, conn wallet.Connection) error {
	return c.send(ctx, connectionChanged{conn: conn})
}

// Refresh re-reads the price.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.send(ctx, refreshRequested{})
}

func (c *Controller) send(ctx context.Context, ev any) error {
	select {
	case c.events <- ev:
		return nil
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case connectionChanged:
		c.conn = ev.conn
	case refreshRequested:
		c.refreshPrice(ctx)
	case priceLoaded:
		c.onPrice(ev)
	case triggerRequested:
		err := c.start(ctx)
		c.publish()
		ev.reply <- err
	case submitted:
		c.onSubmitted(ctx, ev)
	case confirming:
		if c.req != nil && c.req.Seq == ev.seq && c.state == StateSubmitted {
			c.state = StateConfirming
		}
	case receiptObserved:
		c.onReceipt(ctx, ev)
	default:
		c.log.Error().Str("event", fmt.Sprintf("%T", ev)).Msg("unhandled event")
	}
}

func (c *Controller) refreshPrice(ctx context.Context) {
	c.priceSeq++
	seq := c.priceSeq
	if c.price.Status == PriceUnknown {
		c.price = LoadingQuote()
	}
	go func() {
		price, err := c.chain.ItemPrice(ctx, c.item.ID)
		_ = c.send(ctx, priceLoaded{seq: seq, price: price, err: err})
	}()
}

// onPrice applies the newest read only; a failed read makes the price unknown.
func (c *Controller) onPrice(ev priceLoaded) {
	if ev.seq != c.priceSeq {
		return
	}
	c.observer.PriceRead(c.item.ID, ev.err)
	if ev.err != nil {
		c.log.Warn().Err(ev.err).Msg("price read failed")
		c.price = PriceQuote{Status: PriceUnknown}
		return
	}
	c.price = QuoteOf(ev.price)
}

func (c *Controller) start(ctx context.Context) error {
	if err := c.precheck(); err != nil {
		c.observer.MintRefused(c.item.ID, err)
		c.log.Info().Err(err).Msg("mint refused")
		return err
	}

	c.seq++
	c.req = &Request{
		Seq:      c.seq,
		ItemID:   c.item.ID,
		Quantity: uint256.NewInt(1),
		Value:    c.price.Raw.Clone(),
		Toast:    c.notifier.Loading(msgConfirmInWallet),
	}
	c.state = StateAwaitingSignature
	c.observer.MintStarted(c.item.ID)
	c.log.Info().Uint64("seq", c.req.Seq).Str("value", c.req.Value.Dec()).Msg("mint awaiting signature")

	call := chain.MintCall{ItemID: c.req.ItemID, Quantity: c.req.Quantity.Clone(), Value: c.req.Value.Clone()}
	seq := c.req.Seq
	go func() {
		hash, err := c.chain.MintItem(ctx, call)
		_ = c.send(ctx, submitted{seq: seq, hash: hash, err: err})
	}()
	return nil
}

func (c *Controller) precheck() error {
	switch {
	case c.state.InFlight():
		return ErrMintInFlight
	case !c.conn.Connected:
		c.notifier.Warn(msgConnectWallet)
		return ErrNotConnected
	case !c.conn.OnNetwork(c.network.ID):
		c.notifier.Warn(fmt.Sprintf("Please switch to %s.", c.network.Name))
		return ErrWrongNetwork
	case !c.price.Mintable():
		c.notifier.Warn(msgPriceUnavailable)
		return ErrPriceUnavailable
	}
	return nil
}

func (c *Controller) onSubmitted(ctx context.Context, ev submitted) {
	if c.req == nil || c.req.Seq != ev.seq {
		return
	}
	if ev.err != nil {
		if chain.IsUserRejected(ev.err) {
			c.log.Info().Msg("signature declined")
			c.notifier.Dismiss(c.req.Toast)
			c.finish(StateRejected)
			return
		}
		c.log.Warn().Err(ev.err).Msg("mint submission failed")
		c.notifier.Error(c.req.Toast, failureMessage(ev.err))
		c.finish(StateFailed)
		return
	}

	c.req.TxHash = ev.hash
	c.lastTx = ev.hash
	c.state = StateSubmitted
	c.notifier.UpdateLoading(c.req.Toast, msgMinting)
	c.log.Info().Str("tx", ev.hash.Hex()).Msg("mint submitted")

	seq, hash := c.req.Seq, ev.hash
	go func() {
		if err := c.send(ctx, confirming{seq: seq}); err != nil {
			return
		}
		rcpt, err := c.chain.WaitForReceipt(ctx, hash)
		_ = c.send(ctx, receiptObserved{seq: seq, receipt: rcpt, err: err})
	}()
}

func (c *Controller) onReceipt(ctx context.Context, ev receiptObserved) {
	if c.req == nil || c.req.Seq != ev.seq {
		return
	}
	if ev.err != nil {
		c.log.Warn().Err(ev.err).Str("tx", c.req.TxHash.Hex()).Msg("mint failed")
		c.notifier.Error(c.req.Toast, failureMessage(ev.err))
		c.finish(StateFailed)
		return
	}

	c.log.Info().Str("tx", ev.receipt.TxHash.Hex()).Uint64("block", ev.receipt.BlockNumber).Msg("mint confirmed")
	c.notifier.Success(c.req.Toast, fmt.Sprintf("%s successfully minted!", c.item.Name))
	c.finish(StateConfirmed)
	c.refreshPrice(ctx)
}

func (c *Controller) finish(outcome State) {
	c.observer.MintFinished(c.item.ID, outcome)
	c.outcome = outcome
	c.completed++
	c.req = nil
	c.state = StateIdle
}

func failureMessage(err error) string {
	if err == nil {
		return msgGenericFailure
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return msgGenericFailure
}

func (c *Controller) publish() {
	label, enabled := Gate(GateInput{Connected: c.conn.Connected, State: c.state, Price: c.price})
	v := View{
		Item:        c.item,
		Price:       c.price.Display(),
		PriceStatus: c.price.Status.String(),
		Label:       label,
		Enabled:     enabled,
		Connected:   c.conn.Connected,
		State:       c.state,
		LastOutcome: c.outcome,
		Completed:   c.completed,
	}
	if c.price.Raw != nil {
		v.RawPrice = c.price.Raw.Dec()
	}
	if c.lastTx != (common.Hash{}) {
		v.LastTxHash = c.lastTx.Hex()
	}

	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
}
