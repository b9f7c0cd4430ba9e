package scoring

import "math"

// DefaultThreshold is the probability above which a transaction is flagged.
const DefaultThreshold = 0.6

// truncationTolerance absorbs binary float error so that e.g. 0.29*100
// (28.999999999999996) truncates to 29, not 28.
const truncationTolerance = 1e-9

// DecisionPolicy turns a probability into a verdict and a 0-100 risk score.
type DecisionPolicy struct {
	Threshold float64
}

// NewDecisionPolicy creates a policy with the given threshold.
func NewDecisionPolicy(threshold float64) DecisionPolicy {
	return DecisionPolicy{Threshold: threshold}
}

// Decide flags the transaction when probability is strictly above the
// threshold. The risk score truncates probability*100 and is clamped to
// [0, 100].
func (p DecisionPolicy) Decide(probability float64) (bool, int) {
	fraudulent := probability > p.Threshold

	score := int(math.Floor(probability*100 + truncationTolerance))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return fraudulent, score
}
