package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, the way the UI stores them.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineItemInput is a line item as entered by the operator or proposed by
// recognition. Price stays invalid (unset) until the operator fills it in.
type LineItemInput struct {
	Name     string              `json:"name"`
	Quantity decimal.Decimal     `json:"quantity"`
	Price    decimal.NullDecimal `json:"price"`
}

// Validate checks a single line; index is reported back in the error.
func (in LineItemInput) Validate(index int) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewItemValidationError(index, "name", "name is required")
	}
	if !in.Quantity.IsPositive() {
		return NewItemValidationError(index, "quantity", "quantity must be greater than zero")
	}
	if !in.Price.Valid {
		return NewItemValidationError(index, "price", "price is not set")
	}
	if in.Price.Decimal.IsNegative() {
		return NewItemValidationError(index, "price", "price cannot be negative")
	}
	return nil
}

func ValidateLineItems(items []LineItemInput) error {
	if len(items) == 0 {
		return NewValidationError("items", "order has no items")
	}
	for i, item := range items {
		if err := item.Validate(i); err != nil {
			return err
		}
	}
	return nil
}
