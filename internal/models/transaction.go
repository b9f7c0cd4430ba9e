package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTransaction is returned when a transaction fails validation.
// Callers should treat it as a client error: nothing was scored.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Location is the geolocation attached to a transaction.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
}

// Transaction is the payment transaction submitted for scoring.
// Optional numeric fields are pointers: nil means "not provided",
// which is not the same as zero. Amount is required; a missing or null
// amount decodes with Valid false and fails Validate.
type Transaction struct {
	TransactionID string              `json:"transaction_id"`
	Amount        decimal.NullDecimal `json:"amount"`
	Currency      string              `json:"currency"`
	PaymentMethod string              `json:"payment_method"`
	CustomerID    string              `json:"customer_id"`
	MerchantID    string              `json:"merchant_id"`
	Timestamp     string              `json:"timestamp"`

	IPAddress                 string           `json:"ip_address,omitempty"`
	DeviceID                  string           `json:"device_id,omitempty"`
	Location                  *Location        `json:"location,omitempty"`
	PreviousTransactionsCount *int             `json:"previous_transactions_count,omitempty"`
	AverageTransactionAmount  *decimal.Decimal `json:"average_transaction_amount,omitempty"`
	UserAccountAgeDays        *int             `json:"user_account_age_days,omitempty"`
}

// timestampLayouts are tried in order when parsing Transaction.Timestamp.
// Layouts without an offset are read as UTC so the hour is kept as written.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp, keeping its encoded offset.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrInvalidTransaction, value)
}

// ParsedTimestamp returns the transaction time in its encoded offset.
func (t *Transaction) ParsedTimestamp() (time.Time, error) {
	return ParseTimestamp(t.Timestamp)
}

// Validate checks required fields and value ranges. Every returned error
// wraps ErrInvalidTransaction.
func (t *Transaction) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"transaction_id", t.TransactionID},
		{"currency", t.Currency},
		{"payment_method", t.PaymentMethod},
		{"customer_id", t.CustomerID},
		{"merchant_id", t.MerchantID},
		{"timestamp", t.Timestamp},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidTransaction, field.name)
		}
	}

	if !t.Amount.Valid {
		return fmt.Errorf("%w: amount is required", ErrInvalidTransaction)
	}
	if t.Amount.Decimal.IsNegative() {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidTransaction)
	}

	if _, err := t.ParsedTimestamp(); err != nil {
		return err
	}

	if t.PreviousTransactionsCount != nil && *t.PreviousTransactionsCount < 0 {
		return fmt.Errorf("%w: previous_transactions_count must be non-negative", ErrInvalidTransaction)
	}
	if t.UserAccountAgeDays != nil && *t.UserAccountAgeDays < 0 {
		return fmt.Errorf("%w: user_account_age_days must be non-negative", ErrInvalidTransaction)
	}
	if t.AverageTransactionAmount != nil && t.AverageTransactionAmount.IsNegative() {
		return fmt.Errorf("%w: average_transaction_amount must be non-negative", ErrInvalidTransaction)
	}
	if loc := t.Location; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return fmt.Errorf("%w: location out of range", ErrInvalidTransaction)
		}
	}

	return nil
}
