package scoring

import (
	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// Risk factor messages.
const (
	FactorHighAmount    = "Unusually high transaction amount"
	FactorNewCustomer   = "New customer with limited history"
	FactorRecentAccount = "Recently created account"
)

const recentAccountDays = 7

// Rule inspects a transaction and optionally yields a risk factor.
type Rule func(tx *models.Transaction, probability float64) (string, bool)

// Explainer evaluates its rules in order; every rule runs regardless of the
// others.
type Explainer struct {
	rules []Rule
}

// NewExplainer creates an explainer with the default rules.
func NewExplainer() *Explainer {
	return &Explainer{rules: DefaultRules()}
}

// NewExplainerWithRules creates an explainer with custom rules.
func NewExplainerWithRules(rules ...Rule) *Explainer {
	return &Explainer{rules: rules}
}

// DefaultRules returns the built-in rules in evaluation order. None of them
// look at the probability.
func DefaultRules() []Rule {
	return []Rule{
		highAmountRule,
		newCustomerRule,
		recentAccountRule,
	}
}

// Explain returns the triggered risk factors in rule order. The result is
// never nil.
func (e *Explainer) Explain(tx *models.Transaction, probability float64) []string {
	factors := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		if factor, ok := rule(tx, probability); ok {
			factors = append(factors, factor)
		}
	}
	return factors
}

func highAmountRule(tx *models.Transaction, _ float64) (string, bool) {
	return FactorHighAmount, tx.Amount.Decimal.GreaterThan(highAmount)
}

// newCustomerRule only fires on a known short history; unlike the
// is_new_customer feature, a missing count is not reported.
func newCustomerRule(tx *models.Transaction, _ float64) (string, bool) {
	c := tx.PreviousTransactionsCount
	return FactorNewCustomer, c != nil && *c < newCustomerMinTransactions
}

func recentAccountRule(tx *models.Transaction, _ float64) (string, bool) {
	age := tx.UserAccountAgeDays
	return FactorRecentAccount, age != nil && *age < recentAccountDays
}
