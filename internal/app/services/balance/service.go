// Package balance reads Sats balance snapshots and drives the withdrawal
// flow: choose an amount, sign, submit, and land on a success or failure
// display.
package balance

import (
	"context"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/withdraw"
	"github.com/hotornot-games/wager-gateway/internal/app/signing"
	"github.com/hotornot-games/wager-gateway/pkg/logger"
)

// Fetcher reads the authoritative balance snapshot for a principal. The
// worker client satisfies this.
type Fetcher interface {
	Balance(ctx context.Context, principal account.Principal) (withdraw.SatsBalanceInfo, error)
}

// Submitter forwards a signed withdrawal. The gateway service satisfies
// this.
type Submitter interface {
	SubmitWithdrawal(ctx context.Context, receiverAccount string, req withdraw.Request, sig signing.Signature) error
}

// FlowState is the terminal display state of one withdrawal attempt.
type FlowState string

const (
	FlowSuccess FlowState = "success"
	FlowFailure FlowState = "failure"
)

// FlowResult is what the presentation layer renders after a withdrawal
// attempt. Balance is the re-fetched snapshot; it is never derived by
// locally decrementing, since only the worker knows the post-settlement
// balance.
type FlowResult struct {
	State   FlowState                 `json:"state"`
	Amount  uint64                    `json:"amount"`
	Message string                    `json:"message,omitempty"`
	Balance *withdraw.SatsBalanceInfo `json:"balance,omitempty"`
}

// Service drives balance reads and withdrawals.
type Service struct {
	fetcher Fetcher
	submit  Submitter
	log     *logger.Logger
}

// New constructs a balance service.
func New(fetcher Fetcher, submit Submitter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("balance")
	}
	return &Service{fetcher: fetcher, submit: submit, log: log}
}

// Fetch reads the current snapshot for a principal.
func (s *Service) Fetch(ctx context.Context, principal account.Principal) (withdraw.SatsBalanceInfo, error) {
	return s.fetcher.Balance(ctx, principal)
}

// Withdraw signs and submits one withdrawal for the identity's principal.
// A zero amount is rejected before any request is constructed, signed,
// or sent. Submission failures are not retried; they surface as a
// failure display carrying the verbatim error text, and each retry
// requires explicit re-initiation by the user.
func (s *Service) Withdraw(ctx context.Context, receiverAccount string, identity *signing.Identity, amount uint64) (FlowResult, error) {
	req, err := withdraw.NewRequest(identity.Principal(), amount)
	if err != nil {
		return FlowResult{}, err
	}

	sig, err := signing.SignWithdraw(identity, req)
	if err != nil {
		return FlowResult{}, err
	}

	if err := s.submit.SubmitWithdrawal(ctx, receiverAccount, req, sig); err != nil {
		s.log.WithError(err).
			WithField("receiver", req.Receiver).
			WithField("amount", amount).
			Warn("withdrawal failed")
		return FlowResult{
			State:   FlowFailure,
			Amount:  amount,
			Message: err.Error(),
			Balance: s.refetch(ctx, req.Receiver),
		}, nil
	}

	return FlowResult{
		State:   FlowSuccess,
		Amount:  amount,
		Balance: s.refetch(ctx, req.Receiver),
	}, nil
}

// refetch re-queries the snapshot after a settlement attempt. A fetch
// failure leaves the balance unknown rather than stale or guessed.
func (s *Service) refetch(ctx context.Context, principal account.Principal) *withdraw.SatsBalanceInfo {
	info, err := s.fetcher.Balance(ctx, principal)
	if err != nil {
		s.log.WithError(err).WithField("principal", principal).Warn("balance refetch failed")
		return nil
	}
	return &info
}
