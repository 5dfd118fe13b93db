package storage

import (
	"context"
	"errors"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
)

// ErrNotFound is wrapped by all store implementations when a lookup
// misses.
var ErrNotFound = errors.New("not found")

// AccountStore persists account records and their session state.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	GetAccountByPrincipal(ctx context.Context, principal account.Principal) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
}

// PostStore resolves wager targets to posts and their creators.
type PostStore interface {
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	GetPost(ctx context.Context, target post.Target) (post.Post, error)
	ListPosts(ctx context.Context, canister string) ([]post.Post, error)
}

// GameStore persists settled participation records. A stored record for a
// (principal, target) pair means the round is already settled and must not
// accept a new stake.
type GameStore interface {
	PutGameInfo(ctx context.Context, info wager.GameInfo) (wager.GameInfo, error)
	GetGameInfo(ctx context.Context, principal account.Principal, target post.Target) (wager.GameInfo, error)
	ListGameInfo(ctx context.Context, principal account.Principal) ([]wager.GameInfo, error)
}
