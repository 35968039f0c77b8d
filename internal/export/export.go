// Package export turns fetched orders into files an operator can hand
// around: CSV and JSON dumps plus an on-terminal summary, and a daily
// Parquet metrics feed for the analytics bucket.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"ordersync/internal/shopify"
	syncmap "ordersync/internal/sync"
)

// Filter narrows an already-fetched order list. Zero values mean "no
// constraint"; Price and the min/max pair are mutually exclusive at the
// CLI layer but tolerated together here (exact match wins).
type Filter struct {
	Price    float64
	HasPrice bool
	MinPrice float64
	HasMin   bool
	MaxPrice float64
	HasMax   bool

	Tag   string
	Email string

	FinancialStatus   string
	FulfillmentStatus string

	// order names, with or without '#'; inclusive on both ends
	FromOrder string
	ToOrder   string
}

// Apply filters in place-order, preserving the input ordering.
func (f Filter) Apply(orders []shopify.Order) []shopify.Order {
	out := orders

	if f.FromOrder != "" {
		if i := indexByName(out, f.FromOrder); i >= 0 {
			out = out[i:]
		}
	}
	if f.ToOrder != "" {
		if i := indexByName(out, f.ToOrder); i >= 0 {
			out = out[:i+1]
		}
	}

	filtered := make([]shopify.Order, 0, len(out))
	for i := range out {
		o := &out[i]
		price := o.TotalPriceValue()

		if f.HasPrice && price != f.Price {
			continue
		}
		if f.HasMin && price < f.MinPrice {
			continue
		}
		if f.HasMax && price > f.MaxPrice {
			continue
		}
		if f.Tag != "" && !hasTag(o.Tags, f.Tag) {
			continue
		}
		if f.Email != "" && !strings.Contains(strings.ToLower(o.Email), strings.ToLower(f.Email)) {
			continue
		}
		if f.FinancialStatus != "" && !strings.EqualFold(o.FinancialStatus, f.FinancialStatus) {
			continue
		}
		if f.FulfillmentStatus != "" {
			ful := o.FulfillmentStatus
			if ful == "" {
				ful = "unfulfilled"
			}
			if !strings.EqualFold(ful, f.FulfillmentStatus) {
				continue
			}
		}
		filtered = append(filtered, *o)
	}
	return filtered
}

func indexByName(orders []shopify.Order, name string) int {
	want := strings.TrimPrefix(strings.TrimSpace(name), "#")
	for i := range orders {
		if strings.TrimPrefix(orders[i].Name, "#") == want {
			return i
		}
	}
	return -1
}

func hasTag(tags, want string) bool {
	for _, t := range syncmap.SplitTags(tags) {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

var csvHeader = []string{
	"Order Number", "Order Name", "Created At", "Total Price", "Currency",
	"Financial Status", "Fulfillment Status", "Customer Email",
	"Customer Name", "Items Count", "Tags", "Note",
}

// WriteCSV writes one row per order with a fixed header.
func WriteCSV(w io.Writer, orders []shopify.Order) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range orders {
		o := &orders[i]

		fulfillment := o.FulfillmentStatus
		if fulfillment == "" {
			fulfillment = "unfulfilled"
		}
		currency := o.Currency
		if currency == "" {
			currency = "USD"
		}

		row := []string{
			strconv.FormatInt(o.OrderNumber, 10),
			o.Name,
			o.CreatedAt,
			o.TotalPrice,
			currency,
			o.FinancialStatus,
			fulfillment,
			o.Email,
			customerName(o),
			strconv.Itoa(len(o.LineItems)),
			o.Tags,
			o.Note,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", o.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func customerName(o *shopify.Order) string {
	if o.Customer == nil {
		return ""
	}
	return strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
}

// WriteJSON dumps the raw order payloads, indented.
func WriteJSON(w io.Writer, orders []shopify.Order) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(orders); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// SaveCSV and SaveJSON are the file-path conveniences the CLI uses.
func SaveCSV(path string, orders []shopify.Order) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteCSV(f, orders)
}

func SaveJSON(path string, orders []shopify.Order) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(f, orders)
}

// PrintSummary writes aggregate stats for a fetched batch.
func PrintSummary(w io.Writer, orders []shopify.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders to display")
		return
	}

	rule := strings.Repeat("=", 70)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "ORDER SUMMARY")
	fmt.Fprintln(w, rule)

	var total float64
	currencies := map[string]bool{}
	financial := map[string]int{}
	fulfillment := map[string]int{}

	for i := range orders {
		o := &orders[i]
		total += o.TotalPriceValue()

		cur := o.Currency
		if cur == "" {
			cur = "USD"
		}
		currencies[cur] = true

		fin := o.FinancialStatus
		if fin == "" {
			fin = "unknown"
		}
		financial[fin]++

		ful := o.FulfillmentStatus
		if ful == "" {
			ful = "unfulfilled"
		}
		fulfillment[ful]++
	}

	fmt.Fprintf(w, "Total Orders: %d\n", len(orders))
	for _, cur := range sortedKeys(currencies) {
		fmt.Fprintf(w, "Total Amount: %s %.2f\n", cur, total)
	}

	fmt.Fprintln(w, "\nFinancial Status:")
	for _, k := range sortedCountKeys(financial) {
		fmt.Fprintf(w, "  %s: %d\n", k, financial[k])
	}

	fmt.Fprintln(w, "\nFulfillment Status:")
	for _, k := range sortedCountKeys(fulfillment) {
		fmt.Fprintf(w, "  %s: %d\n", k, fulfillment[k])
	}

	first, last := &orders[0], &orders[len(orders)-1]
	fmt.Fprintln(w, "\nOrder Range:")
	fmt.Fprintf(w, "  First: %s - %s\n", first.Name, first.CreatedAt)
	fmt.Fprintf(w, "  Last: %s - %s\n", last.Name, last.CreatedAt)
	fmt.Fprintln(w, rule)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
