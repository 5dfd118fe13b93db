package httpapi

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	app "github.com/hotornot-games/wager-gateway/internal/app"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/withdraw"
	"github.com/hotornot-games/wager-gateway/internal/app/signing"
	"github.com/hotornot-games/wager-gateway/internal/middleware"
)

type apiFixture struct {
	handler  http.Handler
	identity *signing.Identity
	acct     account.Account
	target   post.Target
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/vote/"):
			w.Write([]byte(`{"game_result":{"Win":{"win_amt":45}}}`))
		case r.URL.Path == "/withdraw":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("insufficient reserve"))
		case strings.HasPrefix(r.URL.Path, "/balance/"):
			w.Write([]byte(`{"balance":320,"airdropped":100}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(worker.Close)

	application, err := app.New(app.Stores{}, app.Config{
		WorkerURL:   worker.URL,
		WorkerToken: "worker-token",
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	identity, err := signing.NewIdentity(priv)
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}

	acct, err := application.Accounts.CreateAccount(context.Background(), account.Account{
		Principal: identity.Principal(),
		Owner:     "alice",
		Session:   account.SessionRegistered,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	target := post.Target{Canister: "canister-a", PostID: 7}
	if _, err := application.Posts.CreatePost(context.Background(), post.Post{
		Canister: target.Canister,
		PostID:   target.PostID,
		UID:      "uid-7",
		Creator:  "p-creator",
	}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	return &apiFixture{
		handler:  NewHandler(application),
		identity: identity,
		acct:     acct,
		target:   target,
	}
}

func (f *apiFixture) votePayload(t *testing.T, amount uint64) []byte {
	t.Helper()
	req, err := wager.NewVoteRequest(f.target, amount, wager.Hot)
	if err != nil {
		t.Fatalf("new vote request: %v", err)
	}
	sig, err := signing.SignVote(f.identity, req)
	if err != nil {
		t.Fatalf("sign vote: %v", err)
	}
	raw, err := json.Marshal(map[string]any{
		"sender":    f.identity.Principal(),
		"request":   req,
		"signature": sig,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
}

func TestVoteEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vote", bytes.NewReader(f.votePayload(t, 50))))
	if rec.Code != http.StatusOK {
		t.Fatalf("vote status %d: %s", rec.Code, rec.Body)
	}

	var out struct {
		GameResult wager.GameResult `json:"game_result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.GameResult.Won() || out.GameResult.Win.WinAmount != 45 {
		t.Fatalf("unexpected result: %+v", out.GameResult)
	}
}

func TestVoteEndpointCallerMismatch(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/vote", bytes.NewReader(f.votePayload(t, 50)))
	req = req.WithContext(middleware.WithCallerPrincipal(req.Context(), "someone-else"))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for caller mismatch, got %d", rec.Code)
	}
}

func TestVoteEndpointInvalidStake(t *testing.T) {
	f := newAPIFixture(t)

	payload := map[string]any{
		"sender": f.identity.Principal(),
		"request": wager.VoteRequest{
			PostCanister: f.target.Canister,
			PostID:       f.target.PostID,
			VoteAmount:   75,
			Direction:    wager.Hot,
		},
		"signature": signing.Signature{},
	}
	raw, _ := json.Marshal(payload)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vote", bytes.NewReader(raw)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for off-tier stake, got %d: %s", rec.Code, rec.Body)
	}
}

func TestVoteEndpointRejectsUnknownFields(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/vote", strings.NewReader(`{"sender":"x","bogus":1}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestVoteEndpointMethod(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vote", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestWithdrawEndpointRelaysWorkerFailure(t *testing.T) {
	f := newAPIFixture(t)

	wreq, err := withdraw.NewRequest(f.identity.Principal(), 500)
	if err != nil {
		t.Fatalf("new withdrawal: %v", err)
	}
	sig, err := signing.SignWithdraw(f.identity, wreq)
	if err != nil {
		t.Fatalf("sign withdrawal: %v", err)
	}
	raw, _ := json.Marshal(map[string]any{
		"receiver_account": f.acct.ID,
		"request":          wreq,
		"signature":        sig,
	})

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/withdraw", bytes.NewReader(raw)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected relayed 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "worker error[500]: insufficient reserve") {
		t.Fatalf("worker failure text not relayed verbatim: %s", rec.Body)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balance/"+string(f.identity.Principal()), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status %d: %s", rec.Code, rec.Body)
	}

	var info withdraw.SatsBalanceInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if info.Balance != 320 || info.Airdropped != 100 {
		t.Fatalf("unexpected snapshot: %+v", info)
	}
}

func TestGamesEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/"+string(f.identity.Principal()), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("games status %d: %s", rec.Code, rec.Body)
	}
	var infos []wager.GameInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode games: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no participation yet, got %d", len(infos))
	}

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/"+string(f.identity.Principal())+"/canister-a/7", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unsettled game, got %d", rec.Code)
	}
}
