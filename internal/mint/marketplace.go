package mint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"wastelive/internal/catalog"
	"wastelive/internal/wallet"
)

var ErrUnknownItem = errors.New("unknown item")

// Marketplace owns one controller per catalog item. Controllers share nothing
// but the chain client and notifier they were built with.
type Marketplace struct {
	controllers []*Controller
	byID        map[uint64]*Controller
	log         zerolog.Logger
}

func NewMarketplace(items []catalog.Item, cfg Config) *Marketplace {
	m := &Marketplace{
		byID: make(map[uint64]*Controller, len(items)),
		log:  cfg.Logger.With().Str("component", "marketplace").Logger(),
	}
	for _, it := range items {
		c := NewController(it, cfg)
		m.controllers = append(m.controllers, c)
		m.byID[it.ID] = c
	}
	return m
}

// Run runs every controller until ctx is done.
func (m *Marketplace) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, c := range m.controllers {
		wg.Add(1)
		go func(c *Controller) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("item %d: %w", c.item.ID, err))
				mu.Unlock()
			}
		}(c)
	}
	m.log.Info().Int("items", len(m.controllers)).Msg("marketplace running")
	wg.Wait()
	return errors.Join(errs...)
}

// SetConnection forwards a wallet session change to every item. It has the
// shape of a wallet.Watcher subscriber.
func (m *Marketplace) SetConnection(ctx context.Context, conn wallet.Connection) {
	for _, c := range m.controllers {
		if err := c.SetConnection(ctx, conn); err != nil {
			m.log.Warn().Err(err).Uint64("item", c.item.ID).Msg("connection update dropped")
		}
	}
}

func (m *Marketplace) Controller(id uint64) (*Controller, bool) {
	c, ok := m.byID[id]
	return c, ok
}

func (m *Marketplace) Views() []View {
	out := make([]View, 0, len(m.controllers))
	for _, c := range m.controllers {
		out = append(out, c.View())
	}
	return out
}

func (m *Marketplace) Trigger(ctx context.Context, id uint64) error {
	c, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}
	return c.Trigger(ctx)
}

func (m *Marketplace) Refresh(ctx context.Context, id uint64) error {
	c, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}
	return c.Refresh(ctx)
}
