// Package backend is the HTTP client for the contest aggregation service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
)

// DefaultBaseURL is where the aggregation service listens in development.
const DefaultBaseURL = "http://127.0.0.1:5001/api"

// Client reads contest views from the aggregation service and reports
// confirmed bets back to it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g. "http://127.0.0.1:5001/api".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetStatus returns the cached contest status.
func (c *Client) GetStatus(ctx context.Context) (domain.ContestStatus, error) {
	var rec StatusRecord
	if err := c.getJSON(ctx, "/status", &rec); err != nil {
		return domain.ContestStatus{}, fmt.Errorf("backend: get status: %w", err)
	}
	st, err := rec.ToDomain()
	if err != nil {
		return domain.ContestStatus{}, fmt.Errorf("backend: %w", err)
	}
	return st, nil
}

// GetTeams returns every team ordered by id.
func (c *Client) GetTeams(ctx context.Context) ([]domain.Team, error) {
	var recs []TeamRecord
	if err := c.getJSON(ctx, "/teams", &recs); err != nil {
		return nil, fmt.Errorf("backend: get teams: %w", err)
	}
	teams := make([]domain.Team, 0, len(recs))
	for i := range recs {
		t, err := recs[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// GetStats returns participation totals.
func (c *Client) GetStats(ctx context.Context) (domain.Stats, error) {
	var rec StatsRecord
	if err := c.getJSON(ctx, "/stats", &rec); err != nil {
		return domain.Stats{}, fmt.Errorf("backend: get stats: %w", err)
	}
	s, err := rec.ToDomain()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("backend: %w", err)
	}
	return s, nil
}

// GetLeaderboard returns the top bettors.
func (c *Client) GetLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var recs []LeaderboardRecord
	if err := c.getJSON(ctx, "/leaderboard", &recs); err != nil {
		return nil, fmt.Errorf("backend: get leaderboard: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(recs))
	for i := range recs {
		e, err := recs[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("backend: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// RecordBet reports a confirmed bet.
func (c *Client) RecordBet(ctx context.Context, bet domain.BetRecord) error {
	teamID := bet.TeamID
	req := RecordBetRequest{
		UserAddress: bet.UserAddress,
		TeamID:      &teamID,
		Amount:      bet.AmountWei.String(),
		TxHash:      bet.TxHash,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("backend: record bet: marshal: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "/record_bet", body); err != nil {
		return fmt.Errorf("backend: record bet: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w: %v", path, domain.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	bodyStr := strings.TrimSpace(string(body))
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
