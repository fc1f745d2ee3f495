package report

import (
	"strconv"
	"strings"
	"time"
)

// ValidCurrencies lists the accepted target currencies, in display order.
var ValidCurrencies = []string{"USD", "EUR", "GBP", "JPY", "AUD", "CAD", "CHF", "CNY", "SEK", "NZD"}

// DefaultCurrency is used when no target currency is given.
const DefaultCurrency = "USD"

// ValidationError is a bad report parameter. Its message is safe to return
// to the caller verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Request identifies one report: a portfolio, an optional inclusive date
// window and the currency the target notional is converted into.
type Request struct {
	PortfolioID    int64
	StartDate      string // YYYY-MM-DD or ""
	EndDate        string // YYYY-MM-DD or ""
	TargetCurrency string // upper case
}

// NewRequest validates raw parameters in the order the report endpoint has
// always checked them: portfolio id, date format, date order, currency.
func NewRequest(portfolioID, startDate, endDate, targetCurrency string) (Request, error) {
	portfolioID = strings.TrimSpace(portfolioID)
	if portfolioID == "" {
		return Request{}, &ValidationError{Field: "portfolioId", Message: "portfolioId is required."}
	}
	id, err := strconv.ParseInt(portfolioID, 10, 64)
	if err != nil {
		return Request{}, &ValidationError{Field: "portfolioId", Message: "portfolioId must be an integer."}
	}

	var start, end time.Time
	if startDate != "" {
		if start, err = time.Parse(isoDate, startDate); err != nil {
			return Request{}, &ValidationError{Field: "startDate", Message: "Dates must be in ISO format (YYYY-MM-DD)."}
		}
	}
	if endDate != "" {
		if end, err = time.Parse(isoDate, endDate); err != nil {
			return Request{}, &ValidationError{Field: "endDate", Message: "Dates must be in ISO format (YYYY-MM-DD)."}
		}
	}
	if startDate != "" && endDate != "" && end.Before(start) {
		return Request{}, &ValidationError{Field: "endDate", Message: "endDate must not be before startDate."}
	}

	if targetCurrency == "" {
		targetCurrency = DefaultCurrency
	}
	currency := strings.ToUpper(targetCurrency)
	if !IsValidCurrency(currency) {
		return Request{}, &ValidationError{
			Field:   "targetCurrency",
			Message: "Invalid targetCurrency. Accepted values are: [" + strings.Join(ValidCurrencies, ", ") + "]",
		}
	}

	return Request{
		PortfolioID:    id,
		StartDate:      startDate,
		EndDate:        endDate,
		TargetCurrency: currency,
	}, nil
}

// IsValidCurrency reports whether code (any case) is an accepted currency.
func IsValidCurrency(code string) bool {
	for _, c := range ValidCurrencies {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Filename returns the attachment name for the raw or summary variant.
func (r Request) Filename(pretty bool) string {
	kind := "raw"
	if pretty {
		kind = "summary"
	}
	return "portfolio_" + strconv.FormatInt(r.PortfolioID, 10) + "_" + kind + ".csv"
}

func (r Request) cacheKey() []string {
	return []string{strconv.FormatInt(r.PortfolioID, 10), r.StartDate, r.EndDate, r.TargetCurrency}
}
