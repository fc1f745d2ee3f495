package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	rawHeader = "portfolio,security,isin,currency,quantity,unit_price,trade_amount,type,trade_date,settlement_date\n"

	// The spacing inside this header is relied on by existing consumers.
	humanHeader = "Portfolio Short Name,Security Name,ISIN,Currency Code,Quantity,Unit Price,Trade Amount,Notional (USD), Target FX Rate, Notional (Target), Type Name,Transaction Date,Settlement Date\n"

	byteOrderMark = "\uFEFF"

	isoDate   = "2006-01-02"
	humanDate = "02-Jan-2006"
)

// RenderRaw writes one row per transaction in input order. Numbers carry
// exactly two decimals, rounded half away from zero.
func RenderRaw(txs []FlatTransaction) string {
	var b strings.Builder
	b.WriteString(rawHeader)
	for _, tx := range txs {
		writeRow(&b,
			sanitize(tx.PortfolioShortName),
			sanitize(tx.SecurityName),
			sanitize(tx.SecurityISIN),
			sanitize(tx.CurrencyCode),
			fixed(tx.Quantity),
			fixed(tx.UnitPrice),
			fixed(tx.TradeAmount),
			sanitize(tx.TypeName),
			sanitize(tx.TransactionDate),
			sanitize(tx.SettlementDate),
		)
	}
	return b.String()
}

// RenderHuman writes the review-friendly variant: BOM, sorted rows, formatted
// dates and a USD cash-flow summary computed over txs in its original order.
// txs is not modified.
func RenderHuman(txs []FlatTransaction) string {
	var b strings.Builder
	b.WriteString(byteOrderMark)
	b.WriteString(humanHeader)

	for _, tx := range sortedForReview(txs) {
		qty, price, amount := "", "", ""
		notionalUSD, fxTarget, notionalTarget := "", "", ""
		if !skipsAmounts(tx.TypeName) {
			qty = bankers(tx.Quantity)
			price = bankers(tx.UnitPrice)
			amount = bankers(tx.TradeAmount)
			notionalUSD = bankers(tx.NotionalPriceUSD)
			fxTarget = bankers(tx.TargetFXValue)
			notionalTarget = bankers(tx.NotionalPriceTarget)
		}
		writeRow(&b,
			sanitize(tx.PortfolioShortName),
			sanitize(tx.SecurityName),
			sanitize(tx.SecurityISIN),
			sanitize(tx.CurrencyCode),
			qty,
			price,
			amount,
			notionalUSD,
			fxTarget,
			notionalTarget,
			sanitize(tx.TypeName),
			formatDate(tx.TransactionDate),
			formatDate(tx.SettlementDate),
		)
	}

	writeSummary(&b, Summarize(txs))
	return b.String()
}

func writeRow(b *strings.Builder, cols ...string) {
	b.WriteString(strings.Join(cols, ","))
	b.WriteByte('\n')
}

// sortedForReview orders by type name (case-insensitive) then transaction
// date, with empty values last in both keys.
func sortedForReview(txs []FlatTransaction) []FlatTransaction {
	out := make([]FlatTransaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareEmptyLast(strings.ToLower(out[i].TypeName), strings.ToLower(out[j].TypeName)); c != 0 {
			return c < 0
		}
		return compareEmptyLast(out[i].TransactionDate, out[j].TransactionDate) < 0
	})
	return out
}

func compareEmptyLast(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return strings.Compare(a, b)
}

// skipsAmounts reports whether a transaction type carries no meaningful amount.
func skipsAmounts(typeName string) bool {
	return strings.EqualFold(typeName, "Split") || strings.EqualFold(typeName, "Add Contract")
}

// sanitize strips commas; values are never quoted.
func sanitize(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func fixed(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

func bankers(f float64) string {
	return decimal.NewFromFloat(f).StringFixedBank(2)
}

// formatDate turns 2025-06-01 into 01-Jun-2025, or "" when s is not an ISO date.
func formatDate(s string) string {
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return ""
	}
	return t.Format(humanDate)
}
