// Command fetch-orders pulls orders for a window, applies local filters,
// and writes CSV and/or JSON plus a terminal summary. It is the ad-hoc
// reporting companion to the scheduled sync.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordersync/internal/config"
	"ordersync/internal/export"
	"ordersync/internal/ratelimit"
	"ordersync/internal/shopify"
)

type options struct {
	fromDate string
	toDate   string

	price    float64
	minPrice float64
	maxPrice float64

	tag               string
	email             string
	fromOrder         string
	toOrder           string
	financialStatus   string
	fulfillmentStatus string

	format    string
	output    string
	noSummary bool
}

func main() {
	var opts options
	flag.StringVar(&opts.fromDate, "from-date", "", "minimum created_at (YYYY-MM-DD or RFC3339)")
	flag.StringVar(&opts.toDate, "to-date", "", "maximum created_at (YYYY-MM-DD or RFC3339)")
	flag.Float64Var(&opts.price, "price", -1, "exact total price match")
	flag.Float64Var(&opts.minPrice, "min-price", -1, "minimum total price")
	flag.Float64Var(&opts.maxPrice, "max-price", -1, "maximum total price")
	flag.StringVar(&opts.tag, "tag", "", "require this tag")
	flag.StringVar(&opts.email, "email", "", "substring match on customer email")
	flag.StringVar(&opts.fromOrder, "from-order", "", "start at this order name (inclusive)")
	flag.StringVar(&opts.toOrder, "to-order", "", "stop at this order name (inclusive)")
	flag.StringVar(&opts.financialStatus, "financial-status", "", "filter by financial status")
	flag.StringVar(&opts.fulfillmentStatus, "fulfillment-status", "", "filter by fulfillment status")
	flag.StringVar(&opts.format, "format", "csv", "output format: csv, json, or both")
	flag.StringVar(&opts.output, "output", "orders", "output file path without extension")
	flag.BoolVar(&opts.noSummary, "no-summary", false, "skip the terminal summary")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Printf("fetch-orders: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	switch opts.format {
	case "csv", "json", "both":
	default:
		return fmt.Errorf("invalid -format %q (want csv, json, or both)", opts.format)
	}

	cfg, err := config.LoadShopify(ctx)
	if err != nil {
		return err
	}

	client := shopify.NewClient(cfg.ShopifyDomain, cfg.ShopifyToken, cfg.ShopifyAPIVersion, nil)
	limiter := ratelimit.New(cfg.ShopifyRPS, cfg.ShopifyConcurrency)

	// flags win; the CREATED_AT_MIN/CREATED_AT_MAX env pins are the fallback
	window := shopify.Window{
		CreatedAtMin: firstNonEmpty(normalizeDate(opts.fromDate, false), cfg.CreatedAtMin),
		CreatedAtMax: firstNonEmpty(normalizeDate(opts.toDate, true), cfg.CreatedAtMax),
	}

	var orders []shopify.Order
	err = limiter.Execute(ctx, func(ctx context.Context) error {
		var err error
		orders, err = client.ListOrders(ctx, window)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	fmt.Printf("fetched %d orders\n", len(orders))

	filter := export.Filter{
		Price:             opts.price,
		HasPrice:          opts.price >= 0,
		MinPrice:          opts.minPrice,
		HasMin:            opts.minPrice >= 0,
		MaxPrice:          opts.maxPrice,
		HasMax:            opts.maxPrice >= 0,
		Tag:               opts.tag,
		Email:             opts.email,
		FromOrder:         opts.fromOrder,
		ToOrder:           opts.toOrder,
		FinancialStatus:   opts.financialStatus,
		FulfillmentStatus: opts.fulfillmentStatus,
	}
	orders = filter.Apply(orders)
	fmt.Printf("%d orders match filters\n", len(orders))

	if opts.format == "csv" || opts.format == "both" {
		path := opts.output + ".csv"
		if err := export.SaveCSV(path, orders); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	if opts.format == "json" || opts.format == "both" {
		path := opts.output + ".json"
		if err := export.SaveJSON(path, orders); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}

	if !opts.noSummary {
		export.PrintSummary(os.Stdout, orders)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalizeDate widens a bare YYYY-MM-DD to the start or end of that day
// in UTC; anything else passes through untouched.
func normalizeDate(s string, endOfDay bool) string {
	if s == "" {
		return ""
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Second)
	}
	return d.UTC().Format(time.RFC3339)
}
