package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// TransactionParseError reports a data API payload that is not valid JSON or
// does not have the data.portfoliosByIds[0].transactions shape.
type TransactionParseError struct {
	Reason string
	Err    error
}

func (e *TransactionParseError) Error() string {
	if e.Err == nil {
		return "failed to parse transactions: " + e.Reason
	}
	return fmt.Sprintf("failed to parse transactions: %s: %v", e.Reason, e.Err)
}

func (e *TransactionParseError) Unwrap() error { return e.Err }

// pathFunc is a compiled JSONPath expression.
type pathFunc func(context.Context, interface{}) (interface{}, error)

func mustPath(path string) pathFunc {
	eval, err := jsonpath.New(path)
	if err != nil {
		panic(fmt.Sprintf("invalid JSONPath %q: %v", path, err))
	}
	return pathFunc(eval)
}

var (
	transactionsPath = mustPath("$.data.portfoliosByIds[0].transactions")

	portfolioPath       = mustPath("$.portfolio.shortName")
	securityNamePath    = mustPath("$.security.name")
	securityISINPath    = mustPath("$.security.isinCode")
	currencyPath        = mustPath("$.currency.code")
	quantityPath        = mustPath("$.quantity")
	unitPricePath       = mustPath("$.unitPrice")
	tradeAmountPath     = mustPath("$.tradeAmount")
	typeNamePath        = mustPath("$.type.name")
	transactionDatePath = mustPath("$.transactionDate")
	settlementDatePath  = mustPath("$.settlementDate")
	fxUSDPath           = mustPath("$.fxUSD")
	fxTargetPath        = mustPath("$.fxTarget")
)

// Parse flattens the transactions of the first portfolio in a data API
// response. A missing or null leaf becomes "" (text) or 0 (numbers), and a
// non-numeric value at a numeric field becomes 0; only a wrong overall
// shape fails the parse.
func Parse(raw []byte) ([]FlatTransaction, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &TransactionParseError{Reason: "response is not valid JSON", Err: err}
	}

	ctx := context.Background()
	found, err := transactionsPath(ctx, doc)
	if err != nil {
		if msg := graphQLErrorMessage(doc); msg != "" {
			return nil, &TransactionParseError{Reason: "data api reported an error: " + msg}
		}
		return nil, &TransactionParseError{Reason: "missing data.portfoliosByIds[0].transactions", Err: err}
	}

	rows, ok := found.([]interface{})
	if !ok {
		return nil, &TransactionParseError{Reason: fmt.Sprintf("transactions is %T, not a list", found)}
	}

	result := make([]FlatTransaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, flatten(ctx, row))
	}
	return result, nil
}

func flatten(ctx context.Context, row interface{}) FlatTransaction {
	tx := FlatTransaction{
		PortfolioShortName: textAt(ctx, portfolioPath, row),
		SecurityName:       textAt(ctx, securityNamePath, row),
		SecurityISIN:       textAt(ctx, securityISINPath, row),
		CurrencyCode:       textAt(ctx, currencyPath, row),
		Quantity:           numberAt(ctx, quantityPath, row),
		UnitPrice:          numberAt(ctx, unitPricePath, row),
		TradeAmount:        numberAt(ctx, tradeAmountPath, row),
		TypeName:           textAt(ctx, typeNamePath, row),
		TransactionDate:    textAt(ctx, transactionDatePath, row),
		SettlementDate:     textAt(ctx, settlementDatePath, row),
	}
	return newFlatTransaction(tx, numberAt(ctx, fxUSDPath, row), numberAt(ctx, fxTargetPath, row))
}

func textAt(ctx context.Context, path pathFunc, row interface{}) string {
	v, err := path(ctx, row)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func numberAt(ctx context.Context, path pathFunc, row interface{}) float64 {
	v, err := path(ctx, row)
	if err != nil {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// graphQLErrorMessage returns the first entry of a GraphQL "errors" array.
func graphQLErrorMessage(doc interface{}) string {
	root, ok := doc.(map[string]interface{})
	if !ok {
		return ""
	}
	errs, ok := root["errors"].([]interface{})
	if !ok || len(errs) == 0 {
		return ""
	}
	first, ok := errs[0].(map[string]interface{})
	if !ok {
		return ""
	}
	msg, _ := first["message"].(string)
	return msg
}
