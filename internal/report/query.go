package report

// transactionsQuery fetches settled ("OK") transactions for the given
// portfolios, with FX rates to USD and to the requested target currency.
// Empty startDate/endDate leave that side of the window open.
const transactionsQuery = `query Transactions($ids: [Long], $startDate: String, $endDate: String, $targetCurrency: String) {
  portfoliosByIds(ids: $ids) {
    transactions(status: "OK", startDate: $startDate, endDate: $endDate) {
      portfolio: parentPortfolio {
        shortName
      }
      security {
        name
        isinCode
      }
      currency {
        code: securityCode
      }
      quantity: amount
      unitPrice: unitPriceView
      tradeAmount
      type {
        name: typeName
      }
      transactionDate
      settlementDate
      fxUSD: fxRate(quoteCurrency: "USD")
      fxTarget: fxRate(quoteCurrency: $targetCurrency)
    }
  }
}`

type transactionsVariables struct {
	IDs            []int64 `json:"ids"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	TargetCurrency string  `json:"targetCurrency"`
}

func (r Request) variables() transactionsVariables {
	return transactionsVariables{
		IDs:            []int64{r.PortfolioID},
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		TargetCurrency: r.TargetCurrency,
	}
}
