package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validTransaction() Transaction {
	return Transaction{
		TransactionID: "txn_1",
		Amount:        decimal.NewNullDecimal(decimal.NewFromInt(200)),
		Currency:      "USD",
		PaymentMethod: "card",
		CustomerID:    "cus_1",
		MerchantID:    "mer_1",
		Timestamp:     "2024-03-01T14:30:00Z",
	}
}

func TestParseTimestamp_KeepsEncodedOffset(t *testing.T) {
	tests := []struct {
		in   string
		hour int
	}{
		{"2024-03-01T14:30:00Z", 14},
		{"2024-03-01T14:30:00+05:30", 14},
		{"2024-03-01T23:59:59.123456-08:00", 23},
		{"2024-03-01T09:15:00", 9},
		{"2024-03-01 09:15:00", 9},
		{"2024-03-01T09:15", 9},
		{"2024-03-01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.hour, ts.Hour())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2024-13-01T00:00:00Z", "01/03/2024"} {
		_, err := ParseTimestamp(in)
		assert.ErrorIs(t, err, ErrInvalidTransaction, in)
	}
}

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr string
	}{
		{"valid", func(tx *Transaction) {}, ""},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.NewNullDecimal(decimal.Zero) }, ""},
		{"missing amount", func(tx *Transaction) { tx.Amount = decimal.NullDecimal{} }, "amount is required"},
		{"missing id", func(tx *Transaction) { tx.TransactionID = "" }, "transaction_id is required"},
		{"missing currency", func(tx *Transaction) { tx.Currency = " " }, "currency is required"},
		{"missing merchant", func(tx *Transaction) { tx.MerchantID = "" }, "merchant_id is required"},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewNullDecimal(decimal.NewFromInt(-1)) }, "amount must be non-negative"},
		{"bad timestamp", func(tx *Transaction) { tx.Timestamp = "not-a-date" }, "not ISO-8601"},
		{"negative count", func(tx *Transaction) { tx.PreviousTransactionsCount = intPtr(-1) }, "previous_transactions_count"},
		{"negative age", func(tx *Transaction) { tx.UserAccountAgeDays = intPtr(-3) }, "user_account_age_days"},
		{"bad location", func(tx *Transaction) { tx.Location = &Location{Latitude: 91} }, "location out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransaction)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTransaction_DecodeKeepsAbsentOptionals(t *testing.T) {
	body := `{
		"transaction_id": "txn_2",
		"amount": 1000,
		"currency": "EUR",
		"payment_method": "card",
		"customer_id": "c",
		"merchant_id": "m",
		"timestamp": "2024-03-01T10:00:00",
		"previous_transactions_count": 0
	}`

	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(body), &tx))

	require.True(t, tx.Amount.Valid)
	assert.True(t, tx.Amount.Decimal.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, tx.PreviousTransactionsCount)
	assert.Equal(t, 0, *tx.PreviousTransactionsCount)
	assert.Nil(t, tx.UserAccountAgeDays)
	assert.Nil(t, tx.AverageTransactionAmount)
	assert.Nil(t, tx.Location)
}

func TestTransaction_DecodeMissingAmountIsInvalid(t *testing.T) {
	for name, amount := range map[string]string{
		"absent": ``,
		"null":   `"amount": null,`,
	} {
		t.Run(name, func(t *testing.T) {
			body := `{
				"transaction_id": "txn_3",
				` + amount + `
				"currency": "USD",
				"payment_method": "card",
				"customer_id": "c",
				"merchant_id": "m",
				"timestamp": "2024-03-01T10:00:00Z"
			}`

			var tx Transaction
			require.NoError(t, json.Unmarshal([]byte(body), &tx))
			assert.False(t, tx.Amount.Valid)

			err := tx.Validate()
			assert.ErrorIs(t, err, ErrInvalidTransaction)
			assert.ErrorContains(t, err, "amount is required")
		})
	}
}

func TestScoringResult_Outcome(t *testing.T) {
	assert.Equal(t, OutcomeFraud, (&ScoringResult{IsFraudulent: true}).Outcome())
	assert.Equal(t, OutcomeLegitimate, (&ScoringResult{}).Outcome())
}
