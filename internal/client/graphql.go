package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/theflapjack/fa-report/internal/common"
	"github.com/theflapjack/fa-report/internal/config"
)

// maxResponseSize caps how much of a GraphQL response is read (16MB).
const maxResponseSize = 16 << 20

// DataAPIError reports a failed GraphQL call. StatusCode is zero when the
// request never got an HTTP response (network failure or timeout).
type DataAPIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DataAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("data api returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("data api request failed: %v", e.Err)
}

func (e *DataAPIError) Unwrap() error { return e.Err }

// graphQLRequest is the POST body envelope.
type graphQLRequest struct {
	Query     string      `json:"query"`
	Variables interface{} `json:"variables"`
}

// GraphQLClient posts queries to the financial data API.
type GraphQLClient struct {
	url        string
	httpClient *http.Client
	logger     *common.Logger
}

// NewGraphQLClient creates a client targeting the given GraphQL endpoint.
func NewGraphQLClient(url string, timeout time.Duration, logger *common.Logger) *GraphQLClient {
	return &GraphQLClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SendQuery posts {"query": query, "variables": variables} with the bearer
// token and returns the raw response body. variables may be any value
// encoding/json accepts, including json.RawMessage.
func (c *GraphQLClient) SendQuery(ctx context.Context, query string, variables interface{}, accessToken string) ([]byte, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, &DataAPIError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &DataAPIError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", config.UserAgent())

	c.logger.Debug().
		Str("token_suffix", common.TokenSuffix(accessToken)).
		Int("bytes", len(payload)).
		Msg("sending GraphQL query")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("GraphQL request failed")
		return nil, &DataAPIError{Err: fmt.Errorf("failed to reach data api: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &DataAPIError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Dur("duration", time.Since(start)).
			Msg("GraphQL API error")
		return nil, &DataAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug().Int("bytes", len(body)).Dur("duration", time.Since(start)).Msg("GraphQL response received")
	return body, nil
}
