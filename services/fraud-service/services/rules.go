package services

import (
	"github.com/paygate/backend/services/fraud-service/models"
	"github.com/shopspring/decimal"
)

// Rule adds Weight to the risk score when Applies holds. Rules are independent,
// so an amount above 10000 also trips the 1000 rule.
type Rule struct {
	Name    string
	Weight  decimal.Decimal
	Applies func(req *models.CheckRequest) bool
}

var (
	BaseScore = decimal.RequireFromString("0.1")

	largeAmount     = decimal.NewFromInt(1000)
	veryLargeAmount = decimal.NewFromInt(10000)
)

func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "amount above 1000",
			Weight:  decimal.RequireFromString("0.3"),
			Applies: func(r *models.CheckRequest) bool { return r.Amount.GreaterThan(largeAmount) },
		},
		{
			Name:    "amount above 10000",
			Weight:  decimal.RequireFromString("0.4"),
			Applies: func(r *models.CheckRequest) bool { return r.Amount.GreaterThan(veryLargeAmount) },
		},
		{
			Name:    "no customer email",
			Weight:  decimal.RequireFromString("0.1"),
			Applies: func(r *models.CheckRequest) bool { return r.CustomerEmail == "" },
		},
	}
}

// Score sums the base score and every matching rule, capped at 1.
func Score(req *models.CheckRequest, rules []Rule) (decimal.Decimal, []string) {
	score := BaseScore
	var matched []string
	for _, rule := range rules {
		if rule.Applies(req) {
			score = score.Add(rule.Weight)
			matched = append(matched, rule.Name)
		}
	}
	return decimal.Min(score, decimal.NewFromInt(1)), matched
}
