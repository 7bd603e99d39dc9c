package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	pretty   bool
	dryRun   bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "wastelive",
		Short:        "WasteLive item marketplace on Somnia",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human readable logs")
	cmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "use an in-memory contract instead of the RPC endpoint")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "zerolog level")

	cmd.AddCommand(
		newServeCmd(opts),
		newItemsCmd(opts),
		newMintCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	out := zerolog.New(os.Stderr)
	if o.pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return out.Level(level).With().Timestamp().Logger()
}
