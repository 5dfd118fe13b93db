// Package sentiment resolves the hot-or-not oracle signal for a post
// before a vote is forwarded to the settlement worker.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/pkg/logger"
)

// Resolver fetches the evaluator's sentiment for a post. An unavailable
// signal is reported as SentimentUnknown, never substituted with a
// guessed value; the gateway decides what Unknown means.
type Resolver interface {
	Resolve(ctx context.Context, p post.Post) (wager.Sentiment, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, p post.Post) (wager.Sentiment, error)

func (f ResolverFunc) Resolve(ctx context.Context, p post.Post) (wager.Sentiment, error) {
	return f(ctx, p)
}

// HTTPResolver queries the sentiment evaluator over HTTP by content UID.
type HTTPResolver struct {
	client   *http.Client
	endpoint *url.URL
	apiKey   string
	log      *logger.Logger
}

// NewHTTPResolver constructs a resolver using the provided endpoint.
func NewHTTPResolver(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*HTTPResolver, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("sentiment endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse sentiment endpoint: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("sentiment-resolver")
	}
	return &HTTPResolver{
		client:   client,
		endpoint: parsed,
		apiKey:   strings.TrimSpace(apiKey),
		log:      log,
	}, nil
}

func (r *HTTPResolver) Resolve(ctx context.Context, p post.Post) (wager.Sentiment, error) {
	requestURL := *r.endpoint
	q := requestURL.Query()
	q.Set("video_id", p.UID)
	requestURL.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return wager.SentimentUnknown, fmt.Errorf("build sentiment request: %w", err)
	}
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return wager.SentimentUnknown, fmt.Errorf("sentiment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wager.SentimentUnknown, fmt.Errorf("sentiment evaluator status %d", resp.StatusCode)
	}

	// A null "hot" means the evaluator has no verdict for this content
	// yet; that is reported as Unknown, not defaulted.
	var payload struct {
		Hot *bool `json:"hot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return wager.SentimentUnknown, fmt.Errorf("decode sentiment response: %w", err)
	}

	if payload.Hot == nil {
		r.log.WithField("uid", p.UID).Warn("sentiment evaluator returned no verdict")
		return wager.SentimentUnknown, nil
	}
	if *payload.Hot {
		return wager.SentimentHot, nil
	}
	return wager.SentimentNot, nil
}
