package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"wastelive/internal/mint"
)

const settleTimeout = 30 * time.Second

func newItemsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "items",
		Short: "List items with their on-chain prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.shutdown()

			ctx, cancel := context.WithTimeout(cmd.Context(), settleTimeout)
			defer cancel()

			a.watcher.Poll(ctx)

			var views []mint.View
			err = a.run(ctx, func(ctx context.Context) error {
				settled, err := waitFor(ctx, a.market.Views, pricesSettled)
				if err != nil {
					return err
				}
				views = settled
				return errDone
			})
			if err != nil && !errors.Is(err, errDone) {
				return err
			}
			return printViews(cmd.OutOrStdout(), views)
		},
	}
}

func pricesSettled(views []mint.View) bool {
	for _, v := range views {
		if v.PriceStatus == mint.PriceLoading.String() {
			return false
		}
	}
	return true
}

func printViews(out io.Writer, views []mint.View) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE (STT)\tACTION\tIMAGE")
	for _, v := range views {
		action := v.Label
		if !v.Enabled {
			action += " (disabled)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", v.Item.ID, v.Item.Name, v.Price, action, v.Item.ImagePath)
	}
	return w.Flush()
}
