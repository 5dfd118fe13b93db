package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/withdraw"
	"github.com/hotornot-games/wager-gateway/internal/app/metrics"
	"github.com/hotornot-games/wager-gateway/internal/app/signing"
)

// VoteForward is the body posted to the worker's vote endpoint.
type VoteForward struct {
	Request          wager.VoteRequest  `json:"request"`
	FetchedSentiment wager.Sentiment    `json:"fetched_sentiment"`
	Signature        signing.Signature  `json:"signature"`
	PostCreator      *account.Principal `json:"post_creator,omitempty"`
}

// WithdrawForward is the body posted to the worker's withdraw endpoint.
type WithdrawForward struct {
	Request   withdraw.Request  `json:"request"`
	Signature signing.Signature `json:"signature"`
}

type voteResponse struct {
	GameResult wager.GameResult `json:"game_result"`
}

// WorkerClient talks to the settlement worker. Every call is forwarded at
// most once; the worker owns idempotency.
type WorkerClient struct {
	client *http.Client
	base   *url.URL
	tokens TokenSource
}

// NewWorkerClient constructs a client for the worker at base.
func NewWorkerClient(client *http.Client, base string, tokens TokenSource) (*WorkerClient, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, fmt.Errorf("worker base url required")
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse worker base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WorkerClient{client: client, base: parsed, tokens: tokens}, nil
}

func (c *WorkerClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal worker request: %w", err)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("worker path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.ResolveReference(ref).String(), bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveWorkerCall(path, time.Since(start), err == nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

// workerFailure drains the response body into a WorkerError.
func workerFailure(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &WorkerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Vote forwards a signed vote and returns the worker's authoritative
// result unchanged.
func (c *WorkerClient) Vote(ctx context.Context, sender account.Principal, fwd VoteForward) (wager.GameResult, error) {
	resp, err := c.post(ctx, "vote/"+url.PathEscape(string(sender)), fwd)
	if err != nil {
		return wager.GameResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wager.GameResult{}, workerFailure(resp)
	}

	var out voteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return wager.GameResult{}, &TransportError{Err: fmt.Errorf("decode vote response: %w", err)}
	}
	// A 200 without a game_result leaves the union empty; treat it like
	// any other undecodable response rather than handing out a result
	// that is neither a win nor a loss.
	if out.GameResult.Win == nil && out.GameResult.Loss == nil {
		return wager.GameResult{}, &TransportError{Err: fmt.Errorf("decode vote response: missing game_result")}
	}
	return out.GameResult, nil
}

// Withdraw forwards a signed withdrawal. Success is an empty 200.
func (c *WorkerClient) Withdraw(ctx context.Context, fwd WithdrawForward) error {
	resp, err := c.post(ctx, "withdraw", fwd)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return workerFailure(resp)
	}
	return nil
}

// Balance fetches the read-only balance snapshot for a principal. No
// authentication: the endpoint is principal-scoped and read-only.
func (c *WorkerClient) Balance(ctx context.Context, principal account.Principal) (withdraw.SatsBalanceInfo, error) {
	ref, err := url.Parse("balance/" + url.PathEscape(string(principal)))
	if err != nil {
		return withdraw.SatsBalanceInfo{}, fmt.Errorf("worker path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.ResolveReference(ref).String(), nil)
	if err != nil {
		return withdraw.SatsBalanceInfo{}, fmt.Errorf("build balance request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return withdraw.SatsBalanceInfo{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return withdraw.SatsBalanceInfo{}, workerFailure(resp)
	}

	var info withdraw.SatsBalanceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return withdraw.SatsBalanceInfo{}, &TransportError{Err: fmt.Errorf("decode balance response: %w", err)}
	}
	return info, nil
}
