package balance

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/withdraw"
	"github.com/hotornot-games/wager-gateway/internal/app/signing"
)

type fetcherFunc func(ctx context.Context, principal account.Principal) (withdraw.SatsBalanceInfo, error)

func (f fetcherFunc) Balance(ctx context.Context, principal account.Principal) (withdraw.SatsBalanceInfo, error) {
	return f(ctx, principal)
}

type submitterFunc func(ctx context.Context, receiverAccount string, req withdraw.Request, sig signing.Signature) error

func (f submitterFunc) SubmitWithdrawal(ctx context.Context, receiverAccount string, req withdraw.Request, sig signing.Signature) error {
	return f(ctx, receiverAccount, req, sig)
}

func testIdentity(t *testing.T) *signing.Identity {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	identity, err := signing.NewIdentity(priv)
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	return identity
}

func TestFetch(t *testing.T) {
	svc := New(fetcherFunc(func(_ context.Context, principal account.Principal) (withdraw.SatsBalanceInfo, error) {
		if principal != "alice" {
			t.Errorf("unexpected principal %q", principal)
		}
		return withdraw.SatsBalanceInfo{Balance: 320, Airdropped: 100}, nil
	}), nil, nil)

	info, err := svc.Fetch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.Balance != 320 || info.Airdropped != 100 {
		t.Fatalf("unexpected snapshot: %+v", info)
	}
}

func TestWithdrawSuccess(t *testing.T) {
	identity := testIdentity(t)

	submitted := false
	svc := New(
		fetcherFunc(func(context.Context, account.Principal) (withdraw.SatsBalanceInfo, error) {
			return withdraw.SatsBalanceInfo{Balance: 200}, nil
		}),
		submitterFunc(func(_ context.Context, receiverAccount string, req withdraw.Request, sig signing.Signature) error {
			submitted = true
			if receiverAccount != "acct-1" {
				t.Errorf("unexpected account %q", receiverAccount)
			}
			if !signing.VerifyWithdraw(req, sig, identity.Principal()) {
				t.Error("submitted signature does not verify")
			}
			return nil
		}),
		nil,
	)

	result, err := svc.Withdraw(context.Background(), "acct-1", identity, 120)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !submitted {
		t.Fatal("withdrawal not submitted")
	}
	if result.State != FlowSuccess || result.Amount != 120 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Balance == nil || result.Balance.Balance != 200 {
		t.Fatalf("balance not refetched: %+v", result.Balance)
	}
}

func TestWithdrawZeroAmountBlockedBeforeSubmission(t *testing.T) {
	svc := New(nil, submitterFunc(func(context.Context, string, withdraw.Request, signing.Signature) error {
		t.Error("zero-amount withdrawal reached submission")
		return nil
	}), nil)

	_, err := svc.Withdraw(context.Background(), "acct-1", testIdentity(t), 0)
	if !errors.Is(err, withdraw.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestWithdrawFailureDisplay(t *testing.T) {
	identity := testIdentity(t)

	svc := New(
		fetcherFunc(func(context.Context, account.Principal) (withdraw.SatsBalanceInfo, error) {
			return withdraw.SatsBalanceInfo{Balance: 75}, nil
		}),
		submitterFunc(func(context.Context, string, withdraw.Request, signing.Signature) error {
			return errors.New("worker error[500]: insufficient reserve")
		}),
		nil,
	)

	result, err := svc.Withdraw(context.Background(), "acct-1", identity, 500)
	if err != nil {
		t.Fatalf("withdraw flow should land on a failure display, got error %v", err)
	}
	if result.State != FlowFailure {
		t.Fatalf("unexpected state %q", result.State)
	}
	if result.Message != "worker error[500]: insufficient reserve" {
		t.Fatalf("failure message not verbatim: %q", result.Message)
	}
	if result.Balance == nil || result.Balance.Balance != 75 {
		t.Fatalf("balance not refetched after failure: %+v", result.Balance)
	}
}

func TestWithdrawRefetchFailureLeavesBalanceUnknown(t *testing.T) {
	svc := New(
		fetcherFunc(func(context.Context, account.Principal) (withdraw.SatsBalanceInfo, error) {
			return withdraw.SatsBalanceInfo{}, errors.New("worker unreachable")
		}),
		submitterFunc(func(context.Context, string, withdraw.Request, signing.Signature) error {
			return nil
		}),
		nil,
	)

	result, err := svc.Withdraw(context.Background(), "acct-1", testIdentity(t), 10)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if result.State != FlowSuccess || result.Balance != nil {
		t.Fatalf("expected success with unknown balance, got %+v", result)
	}
}
