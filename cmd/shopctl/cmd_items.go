package main

import (
	"fmt"

	"shoplite/internal/storefront"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	searchFlag   string
	categoryFlag string
	minPriceFlag string
	maxPriceFlag string
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List catalog items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := storefront.ItemQuery{Search: searchFlag, Category: categoryFlag}
		var err error
		if q.MinPrice, err = parsePrice("min-price", minPriceFlag); err != nil {
			return err
		}
		if q.MaxPrice, err = parsePrice("max-price", maxPriceFlag); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()
		items, err := session.API().ListItems(ctx, q)
		if err != nil {
			return err
		}

		t := newTable("ID", "TITLE", "CATEGORY", "PRICE")
		for _, it := range items {
			t.Row(it.ID, it.Title, it.Category, it.Price.StringFixed(2))
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return err
	},
}

var itemCmd = &cobra.Command{
	Use:   "item [id]",
	Short: "Show one catalog item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		it, err := session.API().GetItem(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n  %s\n", it.Title, it.Description)
		fmt.Fprintf(out, "  id:       %s\n  category: %s\n  price:    %s\n  stock:    %d\n", it.ID, it.Category, it.Price.StringFixed(2), it.Stock)
		return nil
	},
}

func parsePrice(flag, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &d, nil
}

func init() {
	itemsCmd.Flags().StringVar(&searchFlag, "search", "", "Full-text search")
	itemsCmd.Flags().StringVar(&categoryFlag, "category", "", "Exact category")
	itemsCmd.Flags().StringVar(&minPriceFlag, "min-price", "", "Minimum price (inclusive)")
	itemsCmd.Flags().StringVar(&maxPriceFlag, "max-price", "", "Maximum price (inclusive)")
}
