package models

import "fmt"

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateCreate checks an order creation payload: a seat and an items array
// are required. Items may be empty (a seat can be opened before anything is
// ordered) but each present item must be well formed.
func (o *Order) ValidateCreate() error {
	if o.SeatNo <= 0 {
		return ValidationError{
			Field:   "seat_no",
			Message: "seat number is required",
		}
	}
	if o.Items == nil {
		return ValidationError{
			Field:   "items",
			Message: "items array is required",
		}
	}
	return validateItems(o.Items)
}

// ValidateUpdate checks an order update payload. Updates replace the stored
// order wholesale, so a full items array is required.
func (o *Order) ValidateUpdate() error {
	if o.Items == nil {
		return ValidationError{
			Field:   "items",
			Message: "items array is required",
		}
	}
	return validateItems(o.Items)
}

// ValidateForPrint checks a bill dispatched to the receipt sink. The payload
// is an already-archived bill, so the priced fields must be present.
func (b *Bill) ValidateForPrint() error {
	if b.SeatNo <= 0 {
		return ValidationError{
			Field:   "seat_no",
			Message: "seat number is required",
		}
	}
	if b.Items == nil {
		return ValidationError{
			Field:   "items",
			Message: "items array is required",
		}
	}
	if !b.hasGrandTotal {
		return ValidationError{
			Field:   "grand_total",
			Message: "grand total is required",
		}
	}
	return nil
}

func validateItems(items []LineItem) error {
	for i, item := range items {
		if item.Quantity < 1 {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be a positive integer",
			}
		}
	}
	return nil
}
