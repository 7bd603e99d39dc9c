package main

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"wastelive/internal/catalog"
	"wastelive/internal/chain"
	"wastelive/internal/config"
	"wastelive/internal/mint"
	"wastelive/internal/notify"
	"wastelive/internal/server"
	"wastelive/internal/wallet"
)

// app is the wired marketplace shared by every command.
type app struct {
	cfg      *config.AppConfig
	log      zerolog.Logger
	chain    chain.Client
	board    *notify.Board
	metrics  *server.Metrics
	market   *mint.Marketplace
	watcher  *wallet.Watcher
	shutdown func()
}

// dryRunPrices are the prices the in-memory contract starts with, in wei.
var dryRunPrices = map[uint64]string{
	0: "1000000000000000000",
	1: "2500000000000000000",
	2: "500000000000000000",
	3: "100000000000000000",
	4: "0",
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	log := opts.logger()

	var (
		cfg *config.AppConfig
		err error
	)
	if opts.dryRun {
		cfg, err = config.Read()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		board:    notify.NewBoard(log),
		metrics:  server.NewMetrics(),
		shutdown: func() {},
	}

	var signer wallet.Signer
	if opts.dryRun {
		prices := make(map[uint64]*uint256.Int, len(dryRunPrices))
		for id, wei := range dryRunPrices {
			prices[id] = uint256.MustFromDecimal(wei)
		}
		fake := chain.NewFakeClient(cfg.Chain.ChainID, prices)
		a.chain, signer = fake, fake
		log.Warn().Msg("dry run: using in-memory contract")
	} else {
		eth, err := chain.NewEthClient(ctx, chain.EthClientConfig{
			RPCURL:          cfg.Chain.RPCURL,
			ContractAddress: cfg.Chain.ContractAddress,
			PrivateKeyHex:   cfg.Chain.PrivateKey,
			ClefEndpoint:    cfg.Chain.ClefEndpoint,
			PollInterval:    cfg.Chain.ReceiptPoll,
			Logger:          log,
		})
		if err != nil {
			return nil, fmt.Errorf("chain client: %w", err)
		}
		a.chain, signer = eth, eth
		a.shutdown = eth.Close
	}

	a.market = mint.NewMarketplace(catalog.Items(), mint.Config{
		Chain:    a.chain,
		Notifier: a.board,
		Network:  mint.Network{ID: cfg.Chain.ChainID, Name: cfg.Chain.NetworkName},
		Observer: a.metrics,
		Logger:   log,
	})

	a.watcher = wallet.NewWatcher(wallet.ChainSource{Signer: signer}, cfg.Chain.WalletPoll, log)
	a.watcher.Subscribe(a.market.SetConnection)
	return a, nil
}

// run drives the marketplace and the wallet watcher until ctx is done or one
// of them fails.
func (a *app) run(ctx context.Context, extra ...func(context.Context) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return a.market.Run(ctx) })
	eg.Go(func() error { return a.watcher.Run(ctx) })
	for _, fn := range extra {
		eg.Go(func() error { return fn(ctx) })
	}
	return eg.Wait()
}
