package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
)

func TestHTTPResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer eval-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		switch r.URL.Query().Get("video_id") {
		case "uid-hot":
			w.Write([]byte(`{"hot": true}`))
		case "uid-not":
			w.Write([]byte(`{"hot": false}`))
		case "uid-none":
			w.Write([]byte(`{"hot": null}`))
		default:
			t.Errorf("unexpected video_id %q", r.URL.Query().Get("video_id"))
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	resolver, err := NewHTTPResolver(server.Client(), server.URL, "eval-key", nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	cases := map[string]wager.Sentiment{
		"uid-hot":  wager.SentimentHot,
		"uid-not":  wager.SentimentNot,
		"uid-none": wager.SentimentUnknown,
	}
	for uid, want := range cases {
		got, err := resolver.Resolve(context.Background(), post.Post{UID: uid})
		if err != nil {
			t.Fatalf("resolve %s: %v", uid, err)
		}
		if got != want {
			t.Fatalf("resolve %s: got %q, want %q", uid, got, want)
		}
	}
}

func TestHTTPResolverErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resolver, err := NewHTTPResolver(server.Client(), server.URL, "", nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	got, err := resolver.Resolve(context.Background(), post.Post{UID: "uid-1"})
	if err == nil {
		t.Fatal("expected non-200 evaluator response to error")
	}
	if got != wager.SentimentUnknown {
		t.Fatalf("errored resolve must report Unknown, got %q", got)
	}

	if _, err := NewHTTPResolver(nil, "   ", "", nil); err == nil {
		t.Fatal("expected empty endpoint to be rejected")
	}
}
