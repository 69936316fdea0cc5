package invoice

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrNotJSON is returned by ParseInvoice when the text holds no JSON object.
var ErrNotJSON = errors.New("no JSON object in text")

// LineItem is one invoice position.
type LineItem struct {
	Item       string  `json:"item"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// Invoice holds the fields the extraction prompt asks for. Amounts are
// parsed leniently; currency symbols and thousands separators are dropped.
type Invoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"`
	VendorName    string     `json:"vendor_name"`
	LineItems     []LineItem `json:"line_items"`
	Subtotal      float64    `json:"subtotal"`
	Taxes         float64    `json:"taxes"`
	GrandTotal    float64    `json:"grand_total"`
}

// ParseInvoice decodes model output into an Invoice. It tolerates Markdown
// code fences around the JSON and key spellings such as "Invoice Number",
// "invoiceNumber" or "invoice_number".
func ParseInvoice(text string) (*Invoice, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}

	fields = normalizeKeys(fields)

	inv := &Invoice{
		InvoiceNumber: asString(fields["invoicenumber"]),
		InvoiceDate:   asString(fields["invoicedate"]),
		VendorName:    asString(fields["vendorname"]),
		Subtotal:      asNumber(fields["subtotal"]),
		Taxes:         asNumber(first(fields, "taxes", "tax")),
		GrandTotal:    asNumber(first(fields, "grandtotal", "total")),
	}

	if items, ok := fields["lineitems"].([]any); ok {
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			m = normalizeKeys(m)
			inv.LineItems = append(inv.LineItems, LineItem{
				Item:       asString(first(m, "item", "description")),
				Quantity:   asNumber(first(m, "quantity", "qty")),
				UnitPrice:  asNumber(m["unitprice"]),
				TotalPrice: asNumber(first(m, "totalprice", "total")),
			})
		}
	}

	return inv, nil
}

func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrNotJSON
	}
	return text[start : end+1], nil
}

// normalizeKeys lowercases keys and strips separators.
func normalizeKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		key := strings.Map(func(r rune) rune {
			switch r {
			case ' ', '_', '-':
				return -1
			}
			return r
		}, strings.ToLower(k))
		out[key] = v
	}
	return out
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func asNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, t)
		f, _ := strconv.ParseFloat(cleaned, 64)
		return f
	case map[string]any:
		// e.g. {"amount": 12.5, "rate": "10%"}
		return asNumber(first(normalizeKeys(t), "amount", "total", "value"))
	default:
		return 0
	}
}
