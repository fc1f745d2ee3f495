package report

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const sampleResponse = `{
  "data": {
    "portfoliosByIds": [
      {
        "transactions": [
          {
            "portfolio": {"shortName": "Growth"},
            "security": {"name": "Acme, Inc.", "isinCode": "US0000000001"},
            "currency": {"code": "USD"},
            "quantity": 10,
            "unitPrice": 12.5,
            "tradeAmount": 125,
            "type": {"name": "Buy"},
            "transactionDate": "2025-06-01",
            "settlementDate": "2025-06-03",
            "fxUSD": 1,
            "fxTarget": 0.5
          },
          {
            "portfolio": null,
            "security": {"name": null, "isinCode": 12345},
            "quantity": "7.5",
            "unitPrice": "abc",
            "tradeAmount": true,
            "type": {"name": "Split"},
            "transactionDate": "2025-06-02",
            "fxUSD": null
          }
        ]
      }
    ]
  }
}`

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParse_FullRow(t *testing.T) {
	txs, err := Parse([]byte(sampleResponse))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}

	tx := txs[0]
	if tx.PortfolioShortName != "Growth" {
		t.Errorf("expected portfolio Growth, got %q", tx.PortfolioShortName)
	}
	if tx.SecurityName != "Acme, Inc." {
		t.Errorf("expected security name to keep its comma, got %q", tx.SecurityName)
	}
	if tx.SecurityISIN != "US0000000001" || tx.CurrencyCode != "USD" || tx.TypeName != "Buy" {
		t.Errorf("unexpected text fields: %+v", tx)
	}
	if tx.TransactionDate != "2025-06-01" || tx.SettlementDate != "2025-06-03" {
		t.Errorf("unexpected dates: %q %q", tx.TransactionDate, tx.SettlementDate)
	}
	if tx.Quantity != 10 || tx.UnitPrice != 12.5 || tx.TradeAmount != 125 {
		t.Errorf("unexpected amounts: %+v", tx)
	}
	if !approx(tx.NotionalPriceUSD, 1562.5) {
		t.Errorf("expected USD notional 1562.5, got %v", tx.NotionalPriceUSD)
	}
	if !approx(tx.TargetFXValue, 0.5) {
		t.Errorf("expected target fx 0.5, got %v", tx.TargetFXValue)
	}
	if !approx(tx.NotionalPriceTarget, 781.25) {
		t.Errorf("expected target notional 781.25, got %v", tx.NotionalPriceTarget)
	}
}

func TestParse_MissingAndOddLeaves(t *testing.T) {
	txs, err := Parse([]byte(sampleResponse))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tx := txs[1]

	if tx.PortfolioShortName != "" {
		t.Errorf("expected null portfolio to give empty name, got %q", tx.PortfolioShortName)
	}
	if tx.SecurityName != "" {
		t.Errorf("expected null security name to give empty string, got %q", tx.SecurityName)
	}
	if tx.SecurityISIN != "12345" {
		t.Errorf("expected numeric isin rendered as text, got %q", tx.SecurityISIN)
	}
	if tx.CurrencyCode != "" || tx.SettlementDate != "" {
		t.Errorf("expected missing fields to be empty, got %q %q", tx.CurrencyCode, tx.SettlementDate)
	}
	if tx.Quantity != 7.5 {
		t.Errorf("expected numeric string quantity 7.5, got %v", tx.Quantity)
	}
	if tx.UnitPrice != 0 || tx.TradeAmount != 0 {
		t.Errorf("expected non-numeric amounts to coerce to 0, got %v %v", tx.UnitPrice, tx.TradeAmount)
	}
	if tx.NotionalPriceUSD != 0 || tx.TargetFXValue != 0 || tx.NotionalPriceTarget != 0 {
		t.Errorf("expected zero derived values, got %+v", tx)
	}
}

func TestParse_EmptyTransactions(t *testing.T) {
	txs, err := Parse([]byte(`{"data":{"portfoliosByIds":[{"transactions":[]}]}}`))
	if err != nil {
		t.Fatalf("expected empty transaction list to parse, got %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("expected no transactions, got %d", len(txs))
	}
}

func TestParse_UsesFirstPortfolioOnly(t *testing.T) {
	raw := `{"data":{"portfoliosByIds":[
		{"transactions":[{"type":{"name":"Buy"}}]},
		{"transactions":[{"type":{"name":"Sell"}},{"type":{"name":"Sell"}}]}
	]}}`
	txs, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(txs) != 1 || txs[0].TypeName != "Buy" {
		t.Errorf("expected the first portfolio's single Buy, got %+v", txs)
	}
}

func TestParse_BadShape(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"data":`},
		{"not an object", `[1,2,3]`},
		{"empty object", `{}`},
		{"null data", `{"data":null}`},
		{"missing portfolios", `{"data":{}}`},
		{"empty portfolios", `{"data":{"portfoliosByIds":[]}}`},
		{"missing transactions", `{"data":{"portfoliosByIds":[{}]}}`},
		{"null transactions", `{"data":{"portfoliosByIds":[{"transactions":null}]}}`},
		{"transactions not a list", `{"data":{"portfoliosByIds":[{"transactions":{"a":1}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			var parseErr *TransactionParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *TransactionParseError, got %T (%v)", err, err)
			}
		})
	}
}

func TestParse_GraphQLErrors(t *testing.T) {
	raw := `{"errors":[{"message":"Access denied for portfolio 42"}],"data":null}`
	_, err := Parse([]byte(raw))

	var parseErr *TransactionParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *TransactionParseError, got %T", err)
	}
	if !strings.Contains(err.Error(), "Access denied for portfolio 42") {
		t.Errorf("expected the data api message in the error, got %q", err.Error())
	}
}
