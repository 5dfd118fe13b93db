// Package game tracks the lifecycle of a single Hot-or-Not round: from
// stake selection, through the in-flight wager, to the settled result.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/signing"
	"github.com/hotornot-games/wager-gateway/internal/app/storage"
	"github.com/hotornot-games/wager-gateway/pkg/logger"
)

var (
	// ErrBetInFlight is returned when a stake is placed while a wager is
	// already awaiting its result. The second placement is a no-op.
	ErrBetInFlight = errors.New("a wager is already in flight for this round")

	// ErrRoundSettled is returned when a stake is placed on a round that
	// already has a settled result.
	ErrRoundSettled = errors.New("round is already settled")
)

// State is the client-visible lifecycle state of one round.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingResult State = "awaiting_result"
	StateWon            State = "won"
	StateLost           State = "lost"
)

// View is a snapshot of a round for display.
type View struct {
	State State `json:"state"`

	// Stake placed this round; zero while idle.
	Stake uint64 `json:"stake,omitempty"`

	// Payout is the displayed total on a win: amount won plus the
	// returned stake.
	Payout uint64 `json:"payout,omitempty"`

	// Lost is the displayed amount on a loss.
	Lost uint64 `json:"lost,omitempty"`

	// CreatorReward is the share of the stake credited to the post
	// creator on a settled round.
	CreatorReward uint64 `json:"creator_reward,omitempty"`
}

// Submitter forwards a signed vote and returns the authoritative result.
// The gateway service satisfies this.
type Submitter interface {
	SubmitVote(ctx context.Context, sender account.Principal, req wager.VoteRequest, sig signing.Signature) (wager.GameResult, error)
}

// Round is the state machine for one (principal, target) wager. Each
// round owns its own "can place bet" flag, so concurrent rounds (for
// example, multiple tabs) do not interfere.
type Round struct {
	id       string
	target   post.Target
	identity *signing.Identity
	submit   Submitter
	games    storage.GameStore
	log      *logger.Logger

	mu       sync.Mutex
	state    State
	inFlight bool
	view     View
}

// NewRound creates an idle round for the given target, signing with the
// given identity.
func NewRound(target post.Target, identity *signing.Identity, submit Submitter, games storage.GameStore, log *logger.Logger) *Round {
	if log == nil {
		log = logger.NewDefault("game-round")
	}
	return &Round{
		id:       uuid.NewString(),
		target:   target,
		identity: identity,
		submit:   submit,
		games:    games,
		log:      log.WithField("round", target.String()),
		state:    StateIdle,
		view:     View{State: StateIdle},
	}
}

// ID returns the round's instance identifier.
func (r *Round) ID() string { return r.id }

// State returns the current lifecycle state.
func (r *Round) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// CanPlaceBet reports whether a new stake may be placed right now. It is
// false for the entire interval between a wager's submission and its
// terminal response, and false forever once the round is settled.
func (r *Round) CanPlaceBet() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateIdle && !r.inFlight
}

// View returns the current display snapshot.
func (r *Round) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Begin checks for a previously settled result for this target. Stored
// settlement truth always wins over a new stake prompt: a settled round
// short-circuits straight to Won or Lost.
func (r *Round) Begin(ctx context.Context) (View, error) {
	info, err := r.games.GetGameInfo(ctx, r.identity.Principal(), r.target)
	if errors.Is(err, storage.ErrNotFound) {
		return r.View(), nil
	}
	if err != nil {
		return View{}, fmt.Errorf("load participation: %w", err)
	}

	stake, result, err := info.Vote()
	if err != nil {
		// A creator-reward record reaching a round view means the caller
		// mixed up participation kinds; surface it, never render it.
		return View{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyResultLocked(stake, result)
	return r.view, nil
}

// PlaceBet signs and submits one wager. Exactly one wager may be in
// flight; a second call while awaiting the result returns ErrBetInFlight
// without side effects. Any error returns the round to Idle with the
// flag re-armed, since the stake was not charged.
func (r *Round) PlaceBet(ctx context.Context, amount uint64, dir wager.Direction) (View, error) {
	req, err := wager.NewVoteRequest(r.target, amount, dir)
	if err != nil {
		return View{}, err
	}

	r.mu.Lock()
	switch {
	case r.inFlight:
		r.mu.Unlock()
		return View{}, ErrBetInFlight
	case r.state == StateWon || r.state == StateLost:
		r.mu.Unlock()
		return View{}, ErrRoundSettled
	case r.state == StateAwaitingResult:
		r.mu.Unlock()
		return View{}, ErrBetInFlight
	}
	r.inFlight = true
	r.state = StateAwaitingResult
	r.view = View{State: StateAwaitingResult, Stake: amount}
	r.mu.Unlock()

	sig, err := signing.SignVote(r.identity, req)
	if err != nil {
		// No partial request leaves the process when signing fails.
		r.reset()
		return View{}, err
	}

	result, err := r.submit.SubmitVote(ctx, r.identity.Principal(), req, sig)
	if err != nil {
		r.log.WithError(err).Warn("wager failed")
		r.reset()
		return View{}, err
	}

	r.record(ctx, req, result)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	r.applyResultLocked(amount, result)
	return r.view, nil
}

// reset returns the round to the pre-bet state after a failure. The
// stake was not charged; the error is surfaced by the caller.
func (r *Round) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	r.state = StateIdle
	r.view = View{State: StateIdle}
}

func (r *Round) applyResultLocked(stake uint64, result wager.GameResult) {
	if result.Won() {
		r.state = StateWon
		r.view = View{
			State:         StateWon,
			Stake:         stake,
			Payout:        result.Win.WinAmount + stake,
			CreatorReward: wager.CreatorReward(stake),
		}
		return
	}
	r.state = StateLost
	r.view = View{
		State:         StateLost,
		Stake:         stake,
		Lost:          result.Loss.LoseAmount,
		CreatorReward: wager.CreatorReward(stake),
	}
}

// record persists the settled participation so re-entering this round
// later short-circuits to the stored result.
func (r *Round) record(ctx context.Context, req wager.VoteRequest, result wager.GameResult) {
	info := wager.GameInfo{
		Kind:         wager.GameInfoVote,
		Principal:    r.identity.Principal(),
		PostCanister: req.PostCanister,
		PostID:       req.PostID,
		VoteAmount:   req.VoteAmount,
		Result:       &result,
	}
	if _, err := r.games.PutGameInfo(ctx, info); err != nil {
		r.log.WithError(err).Warn("record participation")
	}
}
