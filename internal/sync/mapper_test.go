package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordersync/internal/notion"
	"ordersync/internal/shopify"
)

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitTags("a, b ,,c"))
	assert.Nil(t, SplitTags(""))
	assert.Nil(t, SplitTags(" , , "))
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "Online Store", ChannelName("web"))
	assert.Equal(t, "Online Store", ChannelName(""))
	assert.Equal(t, "POS", ChannelName("pos"))
	assert.Equal(t, "Draft Order", ChannelName("shopify_draft_order"))
	assert.Equal(t, "Some Custom Channel", ChannelName("some_custom_channel"))
}

func TestStatusNames(t *testing.T) {
	o := &shopify.Order{}
	assert.Equal(t, "Unknown", PaymentStatusName(o))
	assert.Equal(t, "unfulfilled", FulfillmentStatusName(o))
	assert.Equal(t, "pending", DeliveryStatusName(o))

	o = &shopify.Order{FinancialStatus: "partially_refunded", FulfillmentStatus: "partial"}
	assert.Equal(t, "Partially Refunded", PaymentStatusName(o))
	assert.Equal(t, "Partial", FulfillmentStatusName(o))
	assert.Equal(t, "Partial", DeliveryStatusName(o))

	o = &shopify.Order{Fulfillments: []shopify.Fulfillment{{ShipmentStatus: "in_transit"}}}
	assert.Equal(t, "In Transit", DeliveryStatusName(o))

	// only the first fulfillment is consulted
	o = &shopify.Order{Fulfillments: []shopify.Fulfillment{{}, {ShipmentStatus: "delivered"}}}
	assert.Equal(t, "pending", DeliveryStatusName(o))
}

func TestDeliveryMethodName(t *testing.T) {
	assert.Equal(t, "Standard Shipping", DeliveryMethodName(&shopify.Order{}))

	o := &shopify.Order{ShippingLines: []shopify.ShippingLine{{Source: "usps"}}}
	assert.Equal(t, "usps", DeliveryMethodName(o))

	o = &shopify.Order{ShippingLines: []shopify.ShippingLine{{Title: "Express", Source: "usps"}}}
	assert.Equal(t, "Express", DeliveryMethodName(o))
}

func TestCustomerDisplayName(t *testing.T) {
	o := &shopify.Order{Customer: &shopify.Customer{FirstName: "Ada", LastName: "Lovelace"}}
	assert.Equal(t, "Ada Lovelace", CustomerDisplayName(o))

	o = &shopify.Order{
		Customer:        &shopify.Customer{Email: "ada@example.com"},
		ShippingAddress: &shopify.Address{Name: "A. Lovelace"},
	}
	assert.Equal(t, "A. Lovelace", CustomerDisplayName(o))

	o = &shopify.Order{Customer: &shopify.Customer{Email: "ada@example.com"}}
	assert.Equal(t, "ada@example.com", CustomerDisplayName(o))

	o = &shopify.Order{Email: "checkout@example.com"}
	assert.Equal(t, "checkout@example.com", CustomerDisplayName(o))

	assert.Equal(t, "Unknown Customer", CustomerDisplayName(&shopify.Order{}))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Paid", Sanitize("Pa\u2060id"))
	assert.Equal(t, "tag", Sanitize("\uFEFF tag \u200B"))
	assert.Equal(t, "ab", Sanitize("a\u200C\u200Db"))
	assert.Equal(t, "", Sanitize("\u2060\u200B"))
}

func TestTruncate(t *testing.T) {
	exact := strings.Repeat("x", 1800)
	assert.Equal(t, exact, Truncate(exact))

	long := strings.Repeat("y", 2000)
	got := Truncate(long)
	assert.Len(t, got, 1803)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("y", 1800), got[:1800])
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "USD 0.99", FormatMoney("USD", 0.99))
	assert.Equal(t, "USD 12.00", FormatMoney("", 12))
	nan := 0.0
	nan /= nan
	assert.Equal(t, "EUR 0.00", FormatMoney("EUR", nan))
}

func sampleOrder() *shopify.Order {
	return &shopify.Order{
		ID:              5377001,
		Name:            "#CC5377",
		OrderNumber:     5377,
		CreatedAt:       "2025-10-24T15:04:05Z",
		Currency:        "USD",
		SubtotalPrice:   "0.99",
		TotalPrice:      "0.99",
		FinancialStatus: "paid",
		Email:           "buyer@example.com",
		Customer:        &shopify.Customer{FirstName: "Jo", LastName: "Marsh", Email: "buyer@example.com"},
		LineItems: []shopify.LineItem{
			{Title: "Program Book", Quantity: 1, Price: "0.99", SKU: "PB-01"},
		},
	}
}

func TestMapProperties(t *testing.T) {
	o := sampleOrder()
	props := MapProperties(o)

	require.NotNil(t, props[PropTitle].Title)
	assert.Equal(t, "#CC5377", props[PropTitle].Title[0].Text.Content)

	require.NotNil(t, props[PropOrderID].Number)
	assert.Equal(t, float64(5377001), *props[PropOrderID].Number)

	require.NotNil(t, props[PropTotal].Number)
	assert.Equal(t, 0.99, *props[PropTotal].Number)

	require.NotNil(t, props[PropDate].Date)
	assert.Equal(t, "2025-10-24T15:04:05Z", props[PropDate].Date.Start)

	assert.Equal(t, "Jo Marsh", props[PropCustomer].RichText[0].Text.Content)
	assert.Equal(t, "1x Program Book", props[PropItems].RichText[0].Text.Content)

	assert.Equal(t, "Online Store", props[PropChannel].Select.Name)
	assert.Equal(t, "Paid", props[PropPayment].Select.Name)
	assert.Equal(t, "unfulfilled", props[PropFulfillment].Select.Name)
	assert.Equal(t, "pending", props[PropDelivery].Select.Name)
	assert.Equal(t, "Standard Shipping", props[PropMethod].Select.Name)

	// no tags on the order, no property written
	_, ok := props[PropTags]
	assert.False(t, ok)
}

func TestMapPropertiesTags(t *testing.T) {
	o := sampleOrder()
	o.Tags = "DALB, \u200Bretail , "
	props := MapProperties(o)

	require.NotNil(t, props[PropTags].MultiSelect)
	names := make([]string, 0, 2)
	for _, opt := range props[PropTags].MultiSelect {
		names = append(names, opt.Name)
	}
	assert.Equal(t, []string{"DALB", "retail"}, names)
}

func TestStatusPropertiesExactlyThree(t *testing.T) {
	props := StatusProperties(sampleOrder())
	assert.Len(t, props, 3)
	for _, name := range []string{PropPayment, PropFulfillment, PropDelivery} {
		require.Contains(t, props, name)
		assert.NotNil(t, props[name].Select)
	}
}

func TestBackfillPropertiesOnlyMissing(t *testing.T) {
	o := sampleOrder()
	page := &notion.Page{
		ID: "p1",
		Properties: map[string]notion.Property{
			PropChannel: notion.SelectProp("POS"),
			PropPayment: notion.SelectProp("Refunded"),
		},
	}

	props := BackfillProperties(o, page)

	// populated fields stay untouched even though the order disagrees
	assert.NotContains(t, props, PropChannel)
	assert.NotContains(t, props, PropPayment)

	assert.Equal(t, "unfulfilled", props[PropFulfillment].Select.Name)
	assert.Equal(t, "pending", props[PropDelivery].Select.Name)
	assert.Equal(t, "Standard Shipping", props[PropMethod].Select.Name)
}

func TestBuildBlocksSectionOrder(t *testing.T) {
	o := sampleOrder()
	o.Note = "leave at door"
	o.Fulfillments = []shopify.Fulfillment{{
		Status:          "success",
		TrackingCompany: "USPS",
		TrackingNumbers: []string{"9400"},
		TrackingURLs:    []string{"https://tools.usps.com/9400"},
	}}

	blocks := BuildBlocks(o)

	var headings []string
	for _, b := range blocks {
		switch b.Type {
		case "heading_2":
			headings = append(headings, b.Heading2.RichText[0].Text.Content)
		case "heading_3":
			headings = append(headings, b.Heading3.RichText[0].Text.Content)
		}
	}
	assert.Equal(t, []string{
		"Order Overview",
		"Timeline",
		"Line Items",
		"Tracking & Fulfillment",
		"Customer & Addresses",
		"Payment & Totals",
		"Order Note",
	}, headings)

	// tracking number carries its link
	var linked bool
	for _, b := range blocks {
		if b.Type == "bulleted_list_item" {
			rt := b.Bulleted.RichText[0]
			if rt.Text.Content == "9400" {
				require.NotNil(t, rt.Text.Link)
				assert.Equal(t, "https://tools.usps.com/9400", rt.Text.Link.URL)
				linked = true
			}
		}
	}
	assert.True(t, linked)
}

func TestBuildBlocksCap(t *testing.T) {
	o := sampleOrder()
	for i := 0; i < 200; i++ {
		o.LineItems = append(o.LineItems, shopify.LineItem{Title: "Sticker", Quantity: 1, Price: "1.00"})
	}
	blocks := BuildBlocks(o)
	assert.Len(t, blocks, 90)
}

func TestBuildBlocksNoFulfillments(t *testing.T) {
	blocks := BuildBlocks(sampleOrder())
	var found bool
	for _, b := range blocks {
		if b.Type == "paragraph" && b.Paragraph.RichText[0].Text.Content == "No fulfillments yet" {
			found = true
		}
	}
	assert.True(t, found)
}
