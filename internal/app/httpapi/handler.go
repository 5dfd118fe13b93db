package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	app "github.com/hotornot-games/wager-gateway/internal/app"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/withdraw"
	"github.com/hotornot-games/wager-gateway/internal/app/services/gateway"
	"github.com/hotornot-games/wager-gateway/internal/app/signing"
	"github.com/hotornot-games/wager-gateway/internal/app/storage"
	"github.com/hotornot-games/wager-gateway/internal/middleware"
)

// handler bundles the gateway's HTTP endpoints.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the wagering REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/vote", h.vote)
	mux.HandleFunc("/withdraw", h.withdraw)
	mux.HandleFunc("/balance/", h.balance)
	mux.HandleFunc("/games/", h.games)
	mux.HandleFunc("/healthz", h.health)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) vote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Sender    account.Principal `json:"sender"`
		Request   wager.VoteRequest `json:"request"`
		Signature signing.Signature `json:"signature"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The bearer token and the claimed sender must agree when the
	// request came through the authenticated surface.
	if caller := middleware.CallerPrincipal(r.Context()); caller != "" && caller != string(payload.Sender) {
		writeError(w, http.StatusUnauthorized, gateway.ErrUnauthorized)
		return
	}

	result, err := h.app.Gateway.SubmitVote(r.Context(), payload.Sender, payload.Request, payload.Signature)
	if err != nil {
		relayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		GameResult wager.GameResult `json:"game_result"`
	}{GameResult: result})
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		ReceiverAccount string            `json:"receiver_account"`
		Request         withdraw.Request  `json:"request"`
		Signature       signing.Signature `json:"signature"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if caller := middleware.CallerPrincipal(r.Context()); caller != "" && caller != string(payload.Request.Receiver) {
		writeError(w, http.StatusUnauthorized, gateway.ErrUnauthorized)
		return
	}

	if err := h.app.Gateway.SubmitWithdrawal(r.Context(), payload.ReceiverAccount, payload.Request, payload.Signature); err != nil {
		relayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	principal := strings.Trim(strings.TrimPrefix(r.URL.Path, "/balance"), "/")
	if principal == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	info, err := h.app.Balance.Fetch(r.Context(), account.Principal(principal))
	if err != nil {
		relayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *handler) games(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/games"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	principal := account.Principal(parts[0])

	if len(parts) == 1 {
		infos, err := h.app.Games.ListGameInfo(r.Context(), principal)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, infos)
		return
	}

	if len(parts) != 3 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	postID, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	info, err := h.app.Games.GetGameInfo(r.Context(), principal, post.Target{Canister: parts[1], PostID: postID})
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// relayError maps gateway errors onto HTTP statuses. Worker failures are
// relayed with their own status and verbatim body.
func relayError(w http.ResponseWriter, err error) {
	var workerErr *gateway.WorkerError
	var transportErr *gateway.TransportError
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, wager.ErrInvalidStake),
		errors.Is(err, withdraw.ErrInvalidAmount),
		errors.Is(err, gateway.ErrSentimentUnavailable),
		errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &workerErr):
		writeError(w, workerErr.Status, err)
	case errors.As(err, &transportErr):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
