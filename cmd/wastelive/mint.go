package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"wastelive/internal/mint"
	"wastelive/internal/notify"
)

// errDone stops the app group once a one-shot command has its answer.
var errDone = errors.New("done")

func newMintCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "mint [item-id]",
		Short: "Mint one unit of an item and wait for confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q: %w", args[0], err)
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.shutdown()

			c, ok := a.market.Controller(id)
			if !ok {
				return fmt.Errorf("item %d: %w", id, mint.ErrUnknownItem)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			// The session is queued ahead of the first price read.
			a.watcher.Poll(ctx)

			var final mint.View
			err = a.run(ctx, func(ctx context.Context) error {
				if _, err := waitFor(ctx, c.View, priceSettled); err != nil {
					return err
				}
				before := c.View().Completed
				if err := c.Trigger(ctx); err != nil {
					return err
				}
				v, err := waitFor(ctx, c.View, func(v mint.View) bool { return v.Completed > before })
				if err != nil {
					return err
				}
				final = v
				return errDone
			})
			printToasts(cmd.OutOrStdout(), a.board.List())
			if err != nil && !errors.Is(err, errDone) {
				return err
			}
			if final.LastOutcome != mint.StateConfirmed {
				return fmt.Errorf("mint %s", final.LastOutcome)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tx %s\n", final.LastTxHash)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this long")
	return cmd
}

func priceSettled(v mint.View) bool {
	return v.PriceStatus != mint.PriceLoading.String()
}

func printToasts(out io.Writer, toasts []notify.Toast) {
	for _, t := range toasts {
		fmt.Fprintf(out, "[%s] %s\n", t.Kind, t.Message)
	}
}

// waitFor polls get until done reports true.
func waitFor[T any](ctx context.Context, get func() T, done func(T) bool) (T, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		v := get()
		if done(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-ticker.C:
		}
	}
}
