package report

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	cashInTypes = map[string]bool{
		"cashflow in":            true,
		"deposit":                true,
		"cashflow in (internal)": true,
		"sell":                   true,
		"redemption":             true,
		"expire":                 true,
	}
	cashOutTypes = map[string]bool{
		"buy":                             true,
		"cashflow out":                    true,
		"cashflow out (internal)":         true,
		"management fee":                  true,
		"subscription":                    true,
		"exercise subscription right (c)": true,
	}
)

// Summary holds USD cash-flow totals for a set of transactions.
type Summary struct {
	CashIn  decimal.Decimal
	CashOut decimal.Decimal
}

// NetFlow is cash in minus cash out.
func (s Summary) NetFlow() decimal.Decimal {
	return s.CashIn.Sub(s.CashOut)
}

// Summarize totals NotionalPriceUSD by cash direction. Types outside both
// sets are ignored.
func Summarize(txs []FlatTransaction) Summary {
	s := Summary{CashIn: decimal.Zero, CashOut: decimal.Zero}
	for _, tx := range txs {
		t := strings.ToLower(tx.TypeName)
		amount := decimal.NewFromFloat(tx.NotionalPriceUSD)
		switch {
		case cashInTypes[t]:
			s.CashIn = s.CashIn.Add(amount)
		case cashOutTypes[t]:
			s.CashOut = s.CashOut.Add(amount)
		}
	}
	return s
}

func writeSummary(b *strings.Builder, s Summary) {
	b.WriteString("\nSummary (USD),,,\n")
	fmt.Fprintf(b, "Total Cash In:,,,%q\n", formatUSD(s.CashIn))
	fmt.Fprintf(b, "Total Cash Out:,,,%q\n", formatUSD(s.CashOut))
	fmt.Fprintf(b, "Net Flow:,,,%q\n", formatUSD(s.NetFlow()))
}

// formatUSD renders an amount as $#,##0.00, rounding half to even.
func formatUSD(d decimal.Decimal) string {
	cents := d.RoundBank(2).Shift(2).IntPart()
	return money.New(cents, "USD").Display()
}
