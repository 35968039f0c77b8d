package shopify

import (
	"strconv"
	"strings"
	"time"
)

// Order is the Admin REST representation of one order, read-only on our
// side. Money fields arrive as decimal strings.
type Order struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	OrderNumber       int64  `json:"order_number"`
	CreatedAt         string `json:"created_at"`
	ProcessedAt       string `json:"processed_at"`
	UpdatedAt         string `json:"updated_at"`
	ClosedAt          string `json:"closed_at"`
	CancelledAt       string `json:"cancelled_at"`
	Currency          string `json:"currency"`
	SubtotalPrice     string `json:"subtotal_price"`
	TotalDiscounts    string `json:"total_discounts"`
	TotalTax          string `json:"total_tax"`
	TotalPrice        string `json:"total_price"`
	FinancialStatus   string `json:"financial_status"`
	FulfillmentStatus string `json:"fulfillment_status"`
	Email             string `json:"email"`
	Note              string `json:"note"`
	SourceName        string `json:"source_name"`
	Tags              string `json:"tags"`

	Customer        *Customer      `json:"customer"`
	ShippingAddress *Address       `json:"shipping_address"`
	BillingAddress  *Address       `json:"billing_address"`
	LineItems       []LineItem     `json:"line_items"`
	ShippingLines   []ShippingLine `json:"shipping_lines"`
	Fulfillments    []Fulfillment  `json:"fulfillments"`
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type Address struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

type LineItem struct {
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
}

type ShippingLine struct {
	Title             string `json:"title"`
	Source            string `json:"source"`
	Code              string `json:"code"`
	CarrierIdentifier string `json:"carrier_identifier"`
	Price             string `json:"price"`
}

type Fulfillment struct {
	Status          string   `json:"status"`
	ShipmentStatus  string   `json:"shipment_status"`
	TrackingCompany string   `json:"tracking_company"`
	TrackingNumbers []string `json:"tracking_numbers"`
	TrackingURLs    []string `json:"tracking_urls"`
	CreatedAt       string   `json:"created_at"`
}

// Fulfilled reports whether the order reached its terminal fulfillment
// state. Fulfilled orders are never written to again.
func (o *Order) Fulfilled() bool {
	return strings.EqualFold(strings.TrimSpace(o.FulfillmentStatus), "fulfilled")
}

// TotalPriceValue parses the decimal total; malformed input yields 0.
func (o *Order) TotalPriceValue() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(o.TotalPrice), 64)
	if err != nil {
		return 0
	}
	return f
}

// CreatedTime parses created_at, falling back to the zero time.
func (o *Order) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339, o.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
