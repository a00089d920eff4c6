package models

import (
	"encoding/json"
	"time"
)

// Size represents the portion size of a line item. Pricing knows exactly two
// tiers: Small at base price, anything else at double.
type Size string

const SizeSmall Size = "Small"

// UnknownProductName is the display name used for line items whose product id
// cannot be resolved against the catalog.
const UnknownProductName = "Unknown Product"

// LineItem is a single entry on an order. Before pricing only the client
// fields (product_id, size, quantity, instructions) are set; the pricing
// engine fills in product_name, unit_price and item_total. Any other keys the
// client sends (served flags, course markers) are kept in Extra and written
// back verbatim.
type LineItem struct {
	ProductID    string  `json:"product_id"`
	Size         Size    `json:"size"`
	Quantity     int     `json:"quantity"`
	Instructions string  `json:"instructions,omitempty"`
	ProductName  string  `json:"product_name,omitempty"`
	UnitPrice    float64 `json:"unit_price"`
	ItemTotal    float64 `json:"item_total"`

	Extra map[string]json.RawMessage `json:"-"`
}

var lineItemKnownKeys = []string{
	"product_id", "size", "quantity", "instructions",
	"product_name", "unit_price", "item_total",
}

type lineItemAlias LineItem

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var a lineItemAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := collectExtra(data, lineItemKnownKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*li = LineItem(a)
	return nil
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	return mergeExtra(lineItemAlias(li), li.Extra)
}

// Order is an open order owned by a single seat. Client-carried fields that
// the server does not interpret survive in Extra.
type Order struct {
	SeatNo    int        `json:"seat_no"`
	Items     []LineItem `json:"items"`
	Closed    bool       `json:"closed,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var orderKnownKeys = []string{"seat_no", "items", "closed", "created_at"}

type orderAlias Order

func (o *Order) UnmarshalJSON(data []byte) error {
	var a orderAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := collectExtra(data, orderKnownKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*o = Order(a)
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	return mergeExtra(orderAlias(o), o.Extra)
}

// Merge overlays an incoming close payload on the stored order. Incoming
// fields win: the client holds the authoritative item and status list at
// close time. Prices carried on incoming items are irrelevant here, the
// merged items are always re-priced before a bill is built.
func (o Order) Merge(incoming Order) Order {
	merged := o
	if incoming.Items != nil {
		merged.Items = incoming.Items
	}
	if incoming.Closed {
		merged.Closed = true
	}
	if incoming.CreatedAt != nil {
		merged.CreatedAt = incoming.CreatedAt
	}
	if len(incoming.Extra) > 0 {
		extra := make(map[string]json.RawMessage, len(o.Extra)+len(incoming.Extra))
		for k, v := range o.Extra {
			extra[k] = v
		}
		for k, v := range incoming.Extra {
			extra[k] = v
		}
		merged.Extra = extra
	}
	return merged
}

// Bill is the closed, server-priced form of an order. Immutable once archived.
type Bill struct {
	SeatNo     int        `json:"seat_no"`
	Items      []LineItem `json:"items"`
	Closed     bool       `json:"closed"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	GrandTotal float64    `json:"grand_total"`
	ClosedAt   time.Time  `json:"closed_at"`

	Extra map[string]json.RawMessage `json:"-"`

	// hasGrandTotal records whether the grand_total key was present in the
	// decoded payload. A zero total is legal, a missing one is not.
	hasGrandTotal bool
}

var billKnownKeys = []string{
	"seat_no", "items", "closed", "created_at", "grand_total", "closed_at",
}

type billAlias Bill

func (b *Bill) UnmarshalJSON(data []byte) error {
	var a billAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	_, a.hasGrandTotal = probe["grand_total"]
	for _, k := range billKnownKeys {
		delete(probe, k)
	}
	if len(probe) > 0 {
		a.Extra = probe
	}
	*b = Bill(a)
	return nil
}

func (b Bill) MarshalJSON() ([]byte, error) {
	return mergeExtra(billAlias(b), b.Extra)
}

// NewBill finalizes a merged order into a bill with server-computed totals.
func NewBill(merged Order, pricedItems []LineItem, grandTotal float64, closedAt time.Time) Bill {
	return Bill{
		SeatNo:     merged.SeatNo,
		Items:      pricedItems,
		Closed:     true,
		CreatedAt:  merged.CreatedAt,
		GrandTotal: grandTotal,
		ClosedAt:   closedAt,
		Extra:      merged.Extra,
	}
}

// collectExtra returns all keys of a JSON object that are not in known.
func collectExtra(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// mergeExtra marshals the typed alias and overlays the extra keys. Known
// fields always win over extras of the same name.
func mergeExtra(alias interface{}, extra map[string]json.RawMessage) ([]byte, error) {
	known, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return known, nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(known, &out); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return json.Marshal(out)
}
