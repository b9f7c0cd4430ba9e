package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

func intPtr(v int) *int { return &v }

func newTransaction(amount string, previous, accountAge *int) *models.Transaction {
	return &models.Transaction{
		TransactionID:             "txn_test",
		Amount:                    decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Currency:                  "USD",
		PaymentMethod:             "credit_card",
		CustomerID:                "cus_1",
		MerchantID:                "mer_1",
		Timestamp:                 "2024-03-01T14:30:00Z",
		PreviousTransactionsCount: previous,
		UserAccountAgeDays:        accountAge,
	}
}
