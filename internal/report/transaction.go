// Package report turns portfolio transactions from the data API into CSV.
package report

// FlatTransaction is one transaction row with its currency-converted values.
// Text fields are never absent: missing source values are "".
type FlatTransaction struct {
	PortfolioShortName  string  `json:"portfolio_short_name"`
	SecurityName        string  `json:"security_name"`
	SecurityISIN        string  `json:"security_isin"`
	CurrencyCode        string  `json:"currency_code"`
	Quantity            float64 `json:"quantity"`
	UnitPrice           float64 `json:"unit_price"`
	TradeAmount         float64 `json:"trade_amount"`
	TypeName            string  `json:"type_name"`
	TransactionDate     string  `json:"transaction_date"`
	SettlementDate      string  `json:"settlement_date"`
	NotionalPriceUSD    float64 `json:"notional_price_usd"`
	TargetFXValue       float64 `json:"target_fx_value"`
	NotionalPriceTarget float64 `json:"notional_price_target"`
}

// newFlatTransaction fills the derived notional fields from the FX rates.
func newFlatTransaction(tx FlatTransaction, fxUSD, fxTarget float64) FlatTransaction {
	tx.NotionalPriceUSD = tx.UnitPrice * fxUSD * tx.TradeAmount
	tx.TargetFXValue = fxTarget
	tx.NotionalPriceTarget = tx.UnitPrice * fxTarget * tx.TradeAmount
	return tx
}
