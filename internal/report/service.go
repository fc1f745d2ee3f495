package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/theflapjack/fa-report/internal/cache"
	"github.com/theflapjack/fa-report/internal/client"
	"github.com/theflapjack/fa-report/internal/common"
)

// TokenSource supplies bearer tokens for the data API.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, username, password string) (string, error)
	Invalidate()
}

// QueryClient sends a GraphQL query and returns the raw response body.
type QueryClient interface {
	SendQuery(ctx context.Context, query string, variables interface{}, accessToken string) ([]byte, error)
}

// Service fetches a portfolio's transactions and renders them as CSV.
type Service struct {
	tokens   TokenSource
	client   QueryClient
	username string
	password string
	cache    *cache.Cache[[]FlatTransaction]
	logger   *common.Logger
}

// NewService wires a report service. txCache may be nil to disable caching.
func NewService(tokens TokenSource, qc QueryClient, username, password string, txCache *cache.Cache[[]FlatTransaction], logger *common.Logger) *Service {
	if txCache == nil {
		txCache = cache.New[[]FlatTransaction](0, 1)
	}
	return &Service{
		tokens:   tokens,
		client:   qc,
		username: username,
		password: password,
		cache:    txCache,
		logger:   logger,
	}
}

// Transactions returns the flattened transactions for req, from the cache
// when an identical request was answered recently. The returned slice is
// owned by the caller.
func (s *Service) Transactions(ctx context.Context, req Request) ([]FlatTransaction, error) {
	key := cache.MakeKey(req.cacheKey()...)
	if txs, ok := s.cache.Get(key); ok {
		s.logger.Debug().Int64("portfolio_id", req.PortfolioID).Int("transactions", len(txs)).Msg("transactions served from cache")
		return clone(txs), nil
	}

	start := time.Now()
	token, err := s.tokens.ValidAccessToken(ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	body, err := s.client.SendQuery(ctx, transactionsQuery, req.variables(), token)
	if err != nil {
		var apiErr *client.DataAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			// The provider revoked the token early; the next request logs in again.
			s.tokens.Invalidate()
		}
		return nil, err
	}

	txs, err := Parse(body)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, clone(txs))
	s.logger.Info().
		Int64("portfolio_id", req.PortfolioID).
		Str("start_date", req.StartDate).
		Str("end_date", req.EndDate).
		Str("target_currency", req.TargetCurrency).
		Int("transactions", len(txs)).
		Dur("duration", time.Since(start)).
		Msg("transactions fetched")
	return txs, nil
}

// GenerateCSV renders the raw CSV for req.
func (s *Service) GenerateCSV(ctx context.Context, req Request) (string, error) {
	txs, err := s.Transactions(ctx, req)
	if err != nil {
		return "", err
	}
	return RenderRaw(txs), nil
}

// GenerateHumanCSV renders the sorted CSV with its cash-flow summary.
func (s *Service) GenerateHumanCSV(ctx context.Context, req Request) (string, error) {
	txs, err := s.Transactions(ctx, req)
	if err != nil {
		return "", err
	}
	return RenderHuman(txs), nil
}

// Generate renders the human variant when pretty is set, the raw one otherwise.
func (s *Service) Generate(ctx context.Context, req Request, pretty bool) (string, error) {
	if pretty {
		return s.GenerateHumanCSV(ctx, req)
	}
	return s.GenerateCSV(ctx, req)
}

// InvalidatePortfolio drops every cached transaction set for a portfolio and
// returns how many were removed.
func (s *Service) InvalidatePortfolio(portfolioID int64) int {
	return s.cache.InvalidatePrefix(cache.MakeKey(strconv.FormatInt(portfolioID, 10), ""))
}

func clone(txs []FlatTransaction) []FlatTransaction {
	out := make([]FlatTransaction, len(txs))
	copy(out, txs)
	return out
}
