package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"shoplite/internal/guestcart"
	"shoplite/internal/storefront"

	"github.com/spf13/cobra"
)

var qtyFlag int

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		view, err := session.Cart(ctx)
		if err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), view)
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add [item-id]",
	Short: "Add an item to the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		it, err := session.API().GetItem(ctx, args[0])
		if err != nil {
			return err
		}
		view, err := session.Add(ctx, *it, qtyFlag)
		if err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), view)
	},
}

var cartSetCmd = &cobra.Command{
	Use:   "set [item-id] [qty]",
	Short: "Set the quantity of a cart line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("qty: %w", err)
		}
		return mutate(cmd, func(ctx context.Context) (storefront.View, error) {
			return session.SetQuantity(ctx, args[0], qty)
		})
	},
}

var cartBumpCmd = &cobra.Command{
	Use:   "bump [item-id] [delta]",
	Short: "Change a line's quantity by delta, never below 1",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("delta: %w", err)
		}
		return mutate(cmd, func(ctx context.Context) (storefront.View, error) {
			return session.Bump(ctx, args[0], delta)
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove [item-id]",
	Short: "Remove a line from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(ctx context.Context) (storefront.View, error) {
			return session.Remove(ctx, args[0])
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, session.Clear)
	},
}

var cartWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the guest cart whenever another shopctl changes it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		guest := session.Guest()
		changes := make(chan []guestcart.Line, 1)
		unsubscribe := guest.Subscribe(func(lines []guestcart.Line) {
			select {
			case changes <- lines:
			default:
			}
		})
		defer unsubscribe()

		fmt.Fprintf(out, "Watching guest cart in %s (Ctrl-C to stop)\n", store.Dir())
		fmt.Fprintf(out, "%d items, total %s\n", guest.Count(), guest.Total().StringFixed(2))
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				fmt.Fprintf(out, "%d items, total %s\n", guest.Count(), guest.Total().StringFixed(2))
			}
		}
	},
}

func mutate(cmd *cobra.Command, fn func(ctx context.Context) (storefront.View, error)) error {
	ctx, cancel := commandContext()
	defer cancel()
	view, err := fn(ctx)
	if err != nil {
		return err
	}
	return printCart(cmd.OutOrStdout(), view)
}

func printCart(out io.Writer, view storefront.View) error {
	kind := "Cart"
	if view.Guest {
		kind = "Guest cart"
	}
	if len(view.Lines) == 0 {
		_, err := fmt.Fprintf(out, "%s is empty\n", kind)
		return err
	}
	rows := make([][]string, 0, len(view.Lines)+1)
	for _, l := range view.Lines {
		title := l.Title
		if l.Missing {
			title = "(no longer available)"
		}
		rows = append(rows, []string{l.ItemID, title, strconv.Itoa(l.Qty), l.Price.StringFixed(2)})
	}
	rows = append(rows, []string{"", "Total", strconv.Itoa(view.Count()), view.Total().StringFixed(2)})

	t := newTable("ITEM", "TITLE", "QTY", "PRICE").Rows(rows...)
	_, err := fmt.Fprintf(out, "%s\n%s\n", kind, t.Render())
	return err
}

func init() {
	cartAddCmd.Flags().IntVar(&qtyFlag, "qty", 1, "Quantity to add")
	cartCmd.AddCommand(cartAddCmd, cartSetCmd, cartBumpCmd, cartRemoveCmd, cartClearCmd, cartWatchCmd)
}
