package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Connection is the wallet session as seen by the mint workflow.
type Connection struct {
	Connected bool    `json:"connected"`
	ChainID   *uint64 `json:"chainId"`
}

// Connect builds a connected session on the given network.
func Connect(chainID uint64) Connection {
	return Connection{Connected: true, ChainID: &chainID}
}

// OnNetwork reports whether the session is connected to chainID.
func (c Connection) OnNetwork(chainID uint64) bool {
	return c.Connected && c.ChainID != nil && *c.ChainID == chainID
}

func (c Connection) Equal(o Connection) bool {
	if c.Connected != o.Connected {
		return false
	}
	if c.ChainID == nil || o.ChainID == nil {
		return c.ChainID == nil && o.ChainID == nil
	}
	return *c.ChainID == *o.ChainID
}

type Source interface {
	Connection(ctx context.Context) (Connection, error)
}

// Static always reports the same session.
type Static Connection

func (s Static) Connection(context.Context) (Connection, error) {
	return Connection(s), nil
}

// Signer is the slice of the chain client a session is derived from.
type Signer interface {
	Connected() bool
	ChainID(ctx context.Context) (uint64, error)
}

// ChainSource derives the session from an attached signer and the network the
// RPC endpoint serves.
type ChainSource struct {
	Signer Signer
}

func (s ChainSource) Connection(ctx context.Context) (Connection, error) {
	if !s.Signer.Connected() {
		return Connection{}, nil
	}
	id, err := s.Signer.ChainID(ctx)
	if err != nil {
		return Connection{Connected: true}, err
	}
	return Connect(id), nil
}

// Watcher polls a Source and fans changes out to subscribers.
type Watcher struct {
	src      Source
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	subs    []func(context.Context, Connection)
	current Connection
	primed  bool
}

func NewWatcher(src Source, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		src:      src,
		interval: interval,
		log:      log.With().Str("component", "wallet").Logger(),
	}
}

// Subscribe registers fn for every change. Subscribing after the first poll
// delivers the current session on the next change only.
func (w *Watcher) Subscribe(fn func(context.Context, Connection)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, fn)
}

func (w *Watcher) Current() Connection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Poll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll reads the source once and notifies subscribers if the session changed.
// A read error keeps the signer but drops the network identity.
func (w *Watcher) Poll(ctx context.Context) {
	conn, err := w.src.Connection(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Warn().Err(err).Msg("wallet session read failed")
	}

	w.mu.Lock()
	if w.primed && w.current.Equal(conn) {
		w.mu.Unlock()
		return
	}
	w.current = conn
	w.primed = true
	subs := make([]func(context.Context, Connection), len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	ev := w.log.Info().Bool("connected", conn.Connected)
	if conn.ChainID != nil {
		ev = ev.Uint64("chain_id", *conn.ChainID)
	}
	ev.Msg("wallet session changed")

	for _, fn := range subs {
		fn(ctx, conn)
	}
}
