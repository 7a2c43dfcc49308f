package backtest

import "github.com/shopspring/decimal"

// Approximate prize tables for the built-in lotteries. Fixed tiers use the official
// amounts; pari-mutuel tiers use long-run averages, so results are indicative only.
var referencePaytables = map[string][]string{
	"megasena":  {"", "", "", "", "1000", "50000", "50000000"},
	"lotofacil": {"", "", "", "", "", "", "", "", "", "", "", "6", "12", "30", "1500", "1500000"},
	"quina":     {"", "", "3", "100", "7000", "8000000"},
	"duplasena": {"", "", "", "3", "150", "6000", "3000000"},
	"timemania": {"", "", "", "3.50", "10.50", "1500", "40000", "3000000"},
}

// ReferencePaytable returns the approximate paytable of a built-in lottery.
// Configured paytables take precedence.
func ReferencePaytable(lotteryID string) (Paytable, bool) {
	payouts, ok := referencePaytables[lotteryID]
	if !ok {
		return nil, false
	}

	var table Paytable
	for matches, raw := range payouts {
		if raw == "" {
			continue
		}
		table = append(table, PrizeTier{Matches: matches, Payout: decimal.RequireFromString(raw)})
	}
	return table, true
}
