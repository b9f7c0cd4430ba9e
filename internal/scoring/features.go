package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// Feature names produced by FeatureEngineer.
const (
	FeatureAmount          = "amount"
	FeatureHourOfDay       = "hour_of_day"
	FeatureIsHighAmount    = "is_high_amount"
	FeatureIsNewCustomer   = "is_new_customer"
	FeaturePreviousCount   = "previous_transactions_count"
	FeatureAccountAgeDays  = "account_age_days"
	FeatureAmountToAverage = "amount_to_average_ratio"
	FeatureHasDeviceID     = "has_device_id"
	FeatureHasIPAddress    = "has_ip_address"
	FeatureHasLocation     = "has_location"
)

const (
	highAmountThreshold        = 1000
	newCustomerMinTransactions = 3
)

var highAmount = decimal.NewFromInt(highAmountThreshold)

// FeatureSet maps feature names to values. A feature whose inputs were not
// provided is absent from the set rather than zero.
type FeatureSet map[string]float64

// Get returns the named feature and whether it is present.
func (f FeatureSet) Get(name string) (float64, bool) {
	v, ok := f[name]
	return v, ok
}

// FeatureEngineer derives model features from a raw transaction.
type FeatureEngineer struct{}

// NewFeatureEngineer creates a feature engineer.
func NewFeatureEngineer() *FeatureEngineer {
	return &FeatureEngineer{}
}

// Engineer builds the feature set for tx. The only failure is an
// unparseable timestamp.
func (e *FeatureEngineer) Engineer(tx *models.Transaction) (FeatureSet, error) {
	ts, err := tx.ParsedTimestamp()
	if err != nil {
		return nil, err
	}

	features := FeatureSet{
		FeatureAmount:        tx.Amount.Decimal.InexactFloat64(),
		FeatureHourOfDay:     float64(ts.Hour()),
		FeatureIsHighAmount:  boolFeature(tx.Amount.Decimal.GreaterThan(highAmount)),
		FeatureIsNewCustomer: boolFeature(isNewCustomer(tx)),
		FeatureHasDeviceID:   boolFeature(tx.DeviceID != ""),
		FeatureHasIPAddress:  boolFeature(tx.IPAddress != ""),
		FeatureHasLocation:   boolFeature(tx.Location != nil),
	}

	if tx.PreviousTransactionsCount != nil {
		features[FeaturePreviousCount] = float64(*tx.PreviousTransactionsCount)
	}
	if tx.UserAccountAgeDays != nil {
		features[FeatureAccountAgeDays] = float64(*tx.UserAccountAgeDays)
	}
	if avg := tx.AverageTransactionAmount; avg != nil && avg.IsPositive() {
		features[FeatureAmountToAverage] = tx.Amount.Decimal.Div(*avg).InexactFloat64()
	}

	return features, nil
}

// isNewCustomer treats an unknown history the same as a short one.
func isNewCustomer(tx *models.Transaction) bool {
	return tx.PreviousTransactionsCount == nil || *tx.PreviousTransactionsCount < newCustomerMinTransactions
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
