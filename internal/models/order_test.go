package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{
			name: "valid order",
			order: Order{
				SeatNo: 5,
				Items:  []LineItem{{ProductID: "espresso", Size: SizeSmall, Quantity: 2}},
			},
			wantErr: false,
		},
		{
			name: "empty items array is allowed",
			order: Order{
				SeatNo: 5,
				Items:  []LineItem{},
			},
			wantErr: false,
		},
		{
			name: "missing seat number",
			order: Order{
				Items: []LineItem{{ProductID: "espresso", Size: SizeSmall, Quantity: 1}},
			},
			wantErr: true,
		},
		{
			name: "missing items",
			order: Order{
				SeatNo: 5,
			},
			wantErr: true,
		},
		{
			name: "zero quantity",
			order: Order{
				SeatNo: 5,
				Items:  []LineItem{{ProductID: "espresso", Size: SizeSmall, Quantity: 0}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.ValidateCreate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCreate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateForPrint(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "valid bill",
			payload: `{"seat_no":5,"items":[],"grand_total":6.0,"closed_at":"2025-01-01T12:00:00Z"}`,
		},
		{
			name:    "missing seat number",
			payload: `{"items":[],"grand_total":6.0}`,
			wantErr: "seat_no",
		},
		{
			name:    "missing items",
			payload: `{"seat_no":5,"grand_total":6.0}`,
			wantErr: "items",
		},
		{
			name:    "missing grand total",
			payload: `{"seat_no":5,"items":[]}`,
			wantErr: "grand_total",
		},
		{
			name:    "zero grand total is valid when present",
			payload: `{"seat_no":5,"items":[],"grand_total":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bill Bill
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &bill))

			err := bill.ValidateForPrint()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantErr, vErr.Field)
		})
	}
}

func TestOrderJSONPassthrough(t *testing.T) {
	payload := `{
		"seat_no": 5,
		"items": [
			{"product_id": "espresso", "size": "Small", "quantity": 2, "served": true}
		],
		"waiter": "ana",
		"closed": false
	}`

	var order Order
	require.NoError(t, json.Unmarshal([]byte(payload), &order))

	assert.Equal(t, 5, order.SeatNo)
	require.Len(t, order.Items, 1)
	assert.Contains(t, order.Extra, "waiter")
	assert.Contains(t, order.Items[0].Extra, "served")

	out, err := json.Marshal(order)
	require.NoError(t, err)

	var roundTrip map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	assert.Contains(t, roundTrip, "waiter")

	var items []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(roundTrip["items"], &items))
	assert.Contains(t, items[0], "served")
}

func TestOrderMerge(t *testing.T) {
	createdAt := mustParseTime(t, "2025-01-01T10:00:00Z")
	stored := Order{
		SeatNo:    5,
		Items:     []LineItem{{ProductID: "espresso", Size: SizeSmall, Quantity: 2}},
		CreatedAt: &createdAt,
		Extra:     map[string]json.RawMessage{"waiter": json.RawMessage(`"ana"`)},
	}
	incoming := Order{
		Closed: true,
		Items:  []LineItem{{ProductID: "espresso", Size: SizeSmall, Quantity: 3}},
		Extra:  map[string]json.RawMessage{"tip": json.RawMessage(`2.5`)},
	}

	merged := stored.Merge(incoming)

	assert.Equal(t, 5, merged.SeatNo)
	assert.True(t, merged.Closed)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 3, merged.Items[0].Quantity, "incoming items take precedence")
	assert.Equal(t, &createdAt, merged.CreatedAt, "stored created_at survives when incoming omits it")
	assert.Contains(t, merged.Extra, "waiter")
	assert.Contains(t, merged.Extra, "tip")
}

func TestOrderMerge_IncomingWithoutItems(t *testing.T) {
	stored := Order{
		SeatNo: 7,
		Items:  []LineItem{{ProductID: "latte", Size: "Large", Quantity: 1}},
	}
	incoming := Order{Closed: true}

	merged := stored.Merge(incoming)

	require.Len(t, merged.Items, 1)
	assert.Equal(t, "latte", merged.Items[0].ProductID, "stored items survive a bare close")
}
