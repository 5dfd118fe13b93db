// Package gateway implements the trusted verifier between clients and the
// settlement worker: it checks ownership, session state, and request
// signatures, then forwards signed requests over the service-
// authenticated channel and relays the worker's authoritative answer.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/withdraw"
	"github.com/hotornot-games/wager-gateway/internal/app/metrics"
	"github.com/hotornot-games/wager-gateway/internal/app/services/sentiment"
	"github.com/hotornot-games/wager-gateway/internal/app/signing"
	"github.com/hotornot-games/wager-gateway/internal/app/storage"
	"github.com/hotornot-games/wager-gateway/pkg/logger"
)

// SentimentPolicy decides what happens when the oracle signal is
// unavailable. The signal is never silently defaulted to a guessed
// direction.
type SentimentPolicy string

const (
	// SentimentForwardUnknown forwards the explicit Unknown marker and
	// lets the worker decide. This is the default.
	SentimentForwardUnknown SentimentPolicy = "unknown"

	// SentimentReject fails the vote when no signal is available.
	SentimentReject SentimentPolicy = "reject"
)

// ErrSentimentUnavailable is returned under SentimentReject when the
// oracle signal could not be fetched.
var ErrSentimentUnavailable = errors.New("sentiment signal unavailable")

// Service is the verifier/gateway.
type Service struct {
	accounts storage.AccountStore
	posts    storage.PostStore
	resolver sentiment.Resolver
	worker   *WorkerClient
	policy   SentimentPolicy
	log      *logger.Logger
}

// New constructs a gateway service.
func New(accounts storage.AccountStore, posts storage.PostStore, worker *WorkerClient, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("gateway")
	}
	return &Service{
		accounts: accounts,
		posts:    posts,
		worker:   worker,
		policy:   SentimentForwardUnknown,
		log:      log,
	}
}

// WithSentiment attaches the oracle resolver and the unavailability
// policy.
func (s *Service) WithSentiment(resolver sentiment.Resolver, policy SentimentPolicy) {
	s.resolver = resolver
	if policy != "" {
		s.policy = policy
	}
}

// Worker exposes the underlying worker client for read-only queries.
func (s *Service) Worker() *WorkerClient { return s.worker }

// authorize loads the account for the claimed principal and checks the
// session. Every failure collapses into ErrUnauthorized; details go to
// the log, not the caller.
func (s *Service) authorize(ctx context.Context, claimed account.Principal, action string) (account.Account, error) {
	acct, err := s.accounts.GetAccountByPrincipal(ctx, claimed)
	if err != nil {
		s.log.WithError(err).
			WithField("principal", claimed).
			WithField("action", action).
			Warn("account lookup failed")
		return account.Account{}, fmt.Errorf("%w to %s", ErrUnauthorized, action)
	}
	if !acct.Registered() {
		s.log.WithField("principal", claimed).
			WithField("session", acct.Session).
			WithField("action", action).
			Warn("session not registered")
		return account.Account{}, fmt.Errorf("%w to %s", ErrUnauthorized, action)
	}
	return acct, nil
}

func (s *Service) fetchSentiment(ctx context.Context, p post.Post) (wager.Sentiment, error) {
	if s.resolver == nil {
		if s.policy == SentimentReject {
			return "", ErrSentimentUnavailable
		}
		return wager.SentimentUnknown, nil
	}
	verdict, err := s.resolver.Resolve(ctx, p)
	if err != nil {
		s.log.WithError(err).WithField("uid", p.UID).Warn("sentiment fetch failed")
		if s.policy == SentimentReject {
			return "", fmt.Errorf("%w: %v", ErrSentimentUnavailable, err)
		}
		return wager.SentimentUnknown, nil
	}
	return verdict, nil
}

// SubmitVote validates and forwards one signed wager, returning the
// worker's GameResult unchanged.
func (s *Service) SubmitVote(ctx context.Context, sender account.Principal, req wager.VoteRequest, sig signing.Signature) (wager.GameResult, error) {
	if !wager.ValidStake(req.VoteAmount) {
		return wager.GameResult{}, fmt.Errorf("%w: %d", wager.ErrInvalidStake, req.VoteAmount)
	}

	target, err := s.posts.GetPost(ctx, req.Target())
	if err != nil {
		return wager.GameResult{}, fmt.Errorf("vote target: %w", err)
	}

	if _, err := s.authorize(ctx, sender, "wager"); err != nil {
		return wager.GameResult{}, err
	}

	if !signing.VerifyVote(req, sig, sender) {
		s.log.WithField("principal", sender).
			WithField("target", req.Target()).
			Warn("vote signature rejected")
		return wager.GameResult{}, fmt.Errorf("%w to wager", ErrUnauthorized)
	}

	verdict, err := s.fetchSentiment(ctx, target)
	if err != nil {
		return wager.GameResult{}, err
	}

	creator := target.Creator
	fwd := VoteForward{
		Request:          req,
		FetchedSentiment: verdict,
		Signature:        sig,
		PostCreator:      &creator,
	}

	result, err := s.worker.Vote(ctx, sender, fwd)
	if err != nil {
		metrics.CountVote("error")
		return wager.GameResult{}, err
	}

	if result.Won() {
		metrics.CountVote("win")
	} else {
		metrics.CountVote("loss")
	}
	s.log.WithField("principal", sender).
		WithField("target", req.Target()).
		WithField("amount", req.VoteAmount).
		WithField("won", result.Won()).
		Info("vote settled")
	return result, nil
}

// SubmitWithdrawal validates and forwards one signed withdrawal. The
// receiver named in the request must be the registered owner of the
// receiving account; a mismatch is a security-relevant hard rejection.
func (s *Service) SubmitWithdrawal(ctx context.Context, receiverAccount string, req withdraw.Request, sig signing.Signature) error {
	if req.Amount == 0 {
		return withdraw.ErrInvalidAmount
	}

	acct, err := s.accounts.GetAccount(ctx, receiverAccount)
	if err != nil {
		s.log.WithError(err).WithField("account", receiverAccount).Warn("withdrawal account lookup failed")
		return fmt.Errorf("%w to withdraw", ErrUnauthorized)
	}
	if acct.Principal != req.Receiver {
		s.log.WithField("owner", acct.Principal).
			WithField("receiver", req.Receiver).
			Error("withdrawal principal mismatch")
		return fmt.Errorf("%w to withdraw", ErrUnauthorized)
	}
	if !acct.Registered() {
		s.log.WithField("principal", acct.Principal).
			WithField("session", acct.Session).
			Warn("withdrawal for unregistered session")
		return fmt.Errorf("%w to withdraw", ErrUnauthorized)
	}

	if !signing.VerifyWithdraw(req, sig, req.Receiver) {
		s.log.WithField("receiver", req.Receiver).Warn("withdrawal signature rejected")
		return fmt.Errorf("%w to withdraw", ErrUnauthorized)
	}

	if err := s.worker.Withdraw(ctx, WithdrawForward{Request: req, Signature: sig}); err != nil {
		metrics.CountWithdrawal("error")
		return err
	}

	metrics.CountWithdrawal("ok")
	s.log.WithField("receiver", req.Receiver).
		WithField("amount", req.Amount).
		Info("withdrawal accepted by worker")
	return nil
}
