package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is
// safe for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu                  sync.RWMutex
	nextID              int64
	accounts            map[string]account.Account
	accountsByPrincipal map[account.Principal]string
	posts               map[string]post.Post
	games               map[string]wager.GameInfo
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.GameStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:              1,
		accounts:            make(map[string]account.Account),
		accountsByPrincipal: make(map[account.Principal]string),
		posts:               make(map[string]post.Post),
		games:               make(map[string]wager.GameInfo),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func postKey(t post.Target) string {
	return fmt.Sprintf("%s/%d", t.Canister, t.PostID)
}

func gameKey(p account.Principal, t post.Target) string {
	return fmt.Sprintf("%s|%s/%d", p, t.Canister, t.PostID)
}

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s already exists", acct.ID)
	}
	if acct.Principal != "" {
		if _, exists := s.accountsByPrincipal[acct.Principal]; exists {
			return account.Account{}, fmt.Errorf("principal %s already registered", acct.Principal)
		}
	}
	if acct.Session == "" {
		acct.Session = account.SessionAnonymous
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.accounts[acct.ID] = acct
	if acct.Principal != "" {
		s.accountsByPrincipal[acct.Principal] = acct.ID
	}
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrNotFound)
	}

	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	if original.Principal != acct.Principal {
		delete(s.accountsByPrincipal, original.Principal)
		if acct.Principal != "" {
			s.accountsByPrincipal[acct.Principal] = acct.ID
		}
	}
	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) GetAccountByPrincipal(_ context.Context, principal account.Principal) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountsByPrincipal[principal]
	if !ok {
		return account.Account{}, fmt.Errorf("principal %s: %w", principal, storage.ErrNotFound)
	}
	return s.accounts[id], nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// PostStore implementation ----------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := postKey(p.Target())
	if _, exists := s.posts[key]; exists {
		return post.Post{}, fmt.Errorf("post %s already exists", key)
	}
	p.CreatedAt = time.Now().UTC()
	s.posts[key] = p
	return p, nil
}

func (s *Store) GetPost(_ context.Context, target post.Target) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[postKey(target)]
	if !ok {
		return post.Post{}, fmt.Errorf("post %s: %w", target, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListPosts(_ context.Context, canister string) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]post.Post, 0)
	for _, p := range s.posts {
		if p.Canister == canister {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PostID < result[j].PostID })
	return result, nil
}

// GameStore implementation ----------------------------------------------------

func (s *Store) PutGameInfo(_ context.Context, info wager.GameInfo) (wager.GameInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := post.Target{Canister: info.PostCanister, PostID: info.PostID}
	s.games[gameKey(info.Principal, target)] = info
	return info, nil
}

func (s *Store) GetGameInfo(_ context.Context, principal account.Principal, target post.Target) (wager.GameInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.games[gameKey(principal, target)]
	if !ok {
		return wager.GameInfo{}, fmt.Errorf("game %s %s: %w", principal, target, storage.ErrNotFound)
	}
	return info, nil
}

func (s *Store) ListGameInfo(_ context.Context, principal account.Principal) ([]wager.GameInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]wager.GameInfo, 0)
	for _, info := range s.games {
		if info.Principal == principal {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PostCanister != result[j].PostCanister {
			return result[i].PostCanister < result[j].PostCanister
		}
		return result[i].PostID < result[j].PostID
	})
	return result, nil
}
