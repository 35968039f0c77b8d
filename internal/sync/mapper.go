package sync

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"ordersync/internal/notion"
	"ordersync/internal/shopify"
)

// Destination property names. Changing any of these breaks compatibility
// with records already stored.
const (
	PropTitle       = "Order"
	PropOrderID     = "Order ID"
	PropDate        = "Date"
	PropCustomer    = "Customer"
	PropTotal       = "Total"
	PropItems       = "Items"
	PropTags        = "Tags"
	PropChannel     = "Channel"
	PropPayment     = "Payment Status"
	PropFulfillment = "Fulfillment Status"
	PropDelivery    = "Delivery Status"
	PropMethod      = "Delivery method"
)

const (
	// Destination rich-text/block field-length ceiling.
	maxTextLen = 1800
	// Destination page body ceiling.
	maxBlocks = 90
)

// SplitTags splits the raw comma-joined tag string, trimming whitespace
// and dropping empties.
func SplitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// CustomerDisplayName resolves a human-readable customer name: customer
// first+last, then the shipping address name, then the email.
func CustomerDisplayName(o *shopify.Order) string {
	if o.Customer != nil {
		name := strings.TrimSpace(strings.TrimSpace(o.Customer.FirstName) + " " + strings.TrimSpace(o.Customer.LastName))
		if name != "" {
			return name
		}
	}
	if o.ShippingAddress != nil && strings.TrimSpace(o.ShippingAddress.Name) != "" {
		return strings.TrimSpace(o.ShippingAddress.Name)
	}
	if o.Customer != nil && strings.TrimSpace(o.Customer.Email) != "" {
		return strings.TrimSpace(o.Customer.Email)
	}
	if strings.TrimSpace(o.Email) != "" {
		return strings.TrimSpace(o.Email)
	}
	return "Unknown Customer"
}

// ChannelName maps Shopify's source tag onto the channel select option.
func ChannelName(source string) string {
	switch strings.TrimSpace(source) {
	case "web", "":
		return "Online Store"
	case "pos":
		return "POS"
	case "shopify_draft_order":
		return "Draft Order"
	default:
		return titleStatus(source)
	}
}

// titleStatus turns an underscored status into display form: underscores
// to spaces, each word capitalized.
func titleStatus(s string) string {
	words := strings.Fields(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// PaymentStatusName normalizes the financial status; missing means the
// source never reported one.
func PaymentStatusName(o *shopify.Order) string {
	if strings.TrimSpace(o.FinancialStatus) == "" {
		return "Unknown"
	}
	return titleStatus(o.FinancialStatus)
}

// FulfillmentStatusName keeps the historical lowercase "unfulfilled"
// default; records created years ago carry it in that exact form.
func FulfillmentStatusName(o *shopify.Order) string {
	if strings.TrimSpace(o.FulfillmentStatus) == "" {
		return "unfulfilled"
	}
	return titleStatus(o.FulfillmentStatus)
}

// DeliveryStatusName derives delivery state: the order's fulfillment
// status, then the first fulfillment's shipment status, then "pending".
func DeliveryStatusName(o *shopify.Order) string {
	if strings.TrimSpace(o.FulfillmentStatus) != "" {
		return titleStatus(o.FulfillmentStatus)
	}
	if len(o.Fulfillments) > 0 {
		if s := strings.TrimSpace(o.Fulfillments[0].ShipmentStatus); s != "" {
			return titleStatus(s)
		}
	}
	return "pending"
}

// DeliveryMethodName derives the delivery method from the first shipping
// line: title, then source, then code, then carrier identifier, with
// "Standard Shipping" when the order carries no shipping line at all.
func DeliveryMethodName(o *shopify.Order) string {
	if len(o.ShippingLines) > 0 {
		sl := o.ShippingLines[0]
		for _, v := range []string{sl.Title, sl.Source, sl.Code, sl.CarrierIdentifier} {
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return "Standard Shipping"
}

// Sanitize strips invisible formatting characters (word joiner, zero-width
// space/non-joiner/joiner, BOM) and trims. The destination rejects select
// option names containing any of them.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '\u2060', '\u200B', '\u200C', '\u200D', '\uFEFF':
			return -1
		}
		return r
	}, s))
}

// Truncate caps text at the destination's 1800-character field ceiling,
// appending "..." when anything was cut.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTextLen {
		return s
	}
	return string(r[:maxTextLen]) + "..."
}

// FormatMoney renders "{currency} {amount}" with two decimals; non-finite
// amounts render as 0.00.
func FormatMoney(currency string, amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}

func moneyString(currency, amount string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		f = 0
	}
	return FormatMoney(currency, f)
}

// MapProperties builds the full property set written at record creation.
func MapProperties(o *shopify.Order) map[string]notion.Property {
	props := map[string]notion.Property{
		PropTitle:    notion.TitleProp(Truncate(o.Name)),
		PropOrderID:  notion.NumberProp(float64(o.ID)),
		PropCustomer: notion.RichTextProp(Truncate(CustomerDisplayName(o))),
		PropTotal:    notion.NumberProp(o.TotalPriceValue()),
		PropItems:    notion.RichTextProp(Truncate(itemsSummary(o))),
	}
	if o.CreatedAt != "" {
		props[PropDate] = notion.DateProp(o.CreatedAt)
	}
	if tags := SplitTags(o.Tags); len(tags) > 0 {
		clean := make([]string, 0, len(tags))
		for _, t := range tags {
			if s := Sanitize(t); s != "" {
				clean = append(clean, s)
			}
		}
		props[PropTags] = notion.MultiSelectProp(clean)
	}
	for name, value := range map[string]string{
		PropChannel: ChannelName(o.SourceName),
		PropMethod:  DeliveryMethodName(o),
	} {
		if s := Sanitize(value); s != "" {
			props[name] = notion.SelectProp(s)
		}
	}
	for name, value := range StatusProperties(o) {
		props[name] = value
	}
	return props
}

// StatusProperties builds exactly the three derived status properties.
// These are the only properties a status-only update may touch.
func StatusProperties(o *shopify.Order) map[string]notion.Property {
	return map[string]notion.Property{
		PropPayment:     notion.SelectProp(Sanitize(PaymentStatusName(o))),
		PropFulfillment: notion.SelectProp(Sanitize(FulfillmentStatusName(o))),
		PropDelivery:    notion.SelectProp(Sanitize(DeliveryStatusName(o))),
	}
}

// BackfillProperties returns values for exactly the fields the stored page
// is missing. A populated field is never included, even if it looks wrong.
func BackfillProperties(o *shopify.Order, page *notion.Page) map[string]notion.Property {
	candidates := map[string]string{
		PropChannel:     ChannelName(o.SourceName),
		PropPayment:     PaymentStatusName(o),
		PropFulfillment: FulfillmentStatusName(o),
		PropDelivery:    DeliveryStatusName(o),
		PropMethod:      DeliveryMethodName(o),
	}

	props := make(map[string]notion.Property)
	for name, value := range candidates {
		if page.SelectName(name) != "" {
			continue
		}
		if s := Sanitize(value); s != "" {
			props[name] = notion.SelectProp(s)
		}
	}
	return props
}

func itemsSummary(o *shopify.Order) string {
	parts := make([]string, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		parts = append(parts, fmt.Sprintf("%dx %s", li.Quantity, li.Title))
	}
	return strings.Join(parts, ", ")
}

func lineItemText(currency string, li shopify.LineItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d x %s", li.Quantity, li.Title)
	if strings.TrimSpace(li.VariantTitle) != "" {
		fmt.Fprintf(&b, " (%s)", li.VariantTitle)
	}
	if strings.TrimSpace(li.SKU) != "" {
		fmt.Fprintf(&b, " [%s]", li.SKU)
	}
	fmt.Fprintf(&b, " - %s", moneyString(currency, li.Price))
	return b.String()
}

func addressText(a *shopify.Address) string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 7)
	for _, p := range []string{a.Name, a.Company, a.Address1, a.Address2, a.City, a.Province, a.Zip, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// BuildBlocks renders the content body written once at record creation.
// Section order is fixed; the body is capped at 90 blocks.
func BuildBlocks(o *shopify.Order) []notion.Block {
	blocks := make([]notion.Block, 0, 32)

	blocks = append(blocks,
		notion.Heading2("Order Overview"),
		notion.Paragraph(Truncate(fmt.Sprintf("%s placed %s via %s", o.Name, o.CreatedAt, ChannelName(o.SourceName)))),
		notion.Paragraph(Truncate(fmt.Sprintf("Total %s - payment %s, fulfillment %s",
			moneyString(o.Currency, o.TotalPrice), PaymentStatusName(o), FulfillmentStatusName(o)))),
	)

	blocks = append(blocks, notion.Heading3("Timeline"))
	for _, ev := range []struct{ label, at string }{
		{"Created", o.CreatedAt},
		{"Processed", o.ProcessedAt},
		{"Closed", o.ClosedAt},
		{"Cancelled", o.CancelledAt},
	} {
		if strings.TrimSpace(ev.at) != "" {
			blocks = append(blocks, notion.Bullet(fmt.Sprintf("%s: %s", ev.label, ev.at)))
		}
	}

	blocks = append(blocks, notion.Heading3("Line Items"))
	for _, li := range o.LineItems {
		blocks = append(blocks, notion.Bullet(Truncate(lineItemText(o.Currency, li))))
	}

	blocks = append(blocks, notion.Heading3("Tracking & Fulfillment"))
	if len(o.Fulfillments) == 0 {
		blocks = append(blocks, notion.Paragraph("No fulfillments yet"))
	}
	for _, f := range o.Fulfillments {
		line := fmt.Sprintf("Status: %s", titleStatus(firstNonEmpty(f.Status, "pending")))
		if strings.TrimSpace(f.TrackingCompany) != "" {
			line += " via " + f.TrackingCompany
		}
		blocks = append(blocks, notion.Bullet(Truncate(line)))
		for i, num := range f.TrackingNumbers {
			if i < len(f.TrackingURLs) && strings.TrimSpace(f.TrackingURLs[i]) != "" {
				blocks = append(blocks, notion.BulletLink(Truncate(num), f.TrackingURLs[i]))
			} else {
				blocks = append(blocks, notion.Bullet(Truncate(num)))
			}
		}
	}

	blocks = append(blocks, notion.Heading3("Customer & Addresses"))
	blocks = append(blocks, notion.Paragraph(Truncate(CustomerDisplayName(o))))
	if o.Customer != nil && strings.TrimSpace(o.Customer.Email) != "" {
		blocks = append(blocks, notion.Paragraph(Truncate("Email: "+o.Customer.Email)))
	}
	if s := addressText(o.ShippingAddress); s != "" {
		blocks = append(blocks, notion.Paragraph(Truncate("Shipping: "+s)))
	}
	if s := addressText(o.BillingAddress); s != "" {
		blocks = append(blocks, notion.Paragraph(Truncate("Billing: "+s)))
	}

	blocks = append(blocks,
		notion.Heading3("Payment & Totals"),
		notion.Bullet("Subtotal: "+moneyString(o.Currency, o.SubtotalPrice)),
		notion.Bullet("Discounts: "+moneyString(o.Currency, o.TotalDiscounts)),
		notion.Bullet("Tax: "+moneyString(o.Currency, o.TotalTax)),
		notion.Bullet("Shipping: "+FormatMoney(o.Currency, shippingTotal(o))),
		notion.Bullet("Total: "+moneyString(o.Currency, o.TotalPrice)),
	)

	if strings.TrimSpace(o.Note) != "" {
		blocks = append(blocks,
			notion.Heading3("Order Note"),
			notion.Paragraph(Truncate(o.Note)),
		)
	}

	if len(blocks) > maxBlocks {
		blocks = blocks[:maxBlocks]
	}
	return blocks
}

func shippingTotal(o *shopify.Order) float64 {
	var total float64
	for _, sl := range o.ShippingLines {
		if f, err := strconv.ParseFloat(strings.TrimSpace(sl.Price), 64); err == nil {
			total += f
		}
	}
	return total
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
