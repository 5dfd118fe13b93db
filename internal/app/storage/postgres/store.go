package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.GameStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL using the given DSN and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema contains the DDL for the gateway's tables.
const Schema = `
CREATE TABLE IF NOT EXISTS hon_accounts (
	id         TEXT PRIMARY KEY,
	principal  TEXT NOT NULL UNIQUE,
	owner      TEXT NOT NULL,
	session    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS hon_posts (
	canister   TEXT NOT NULL,
	post_id    BIGINT NOT NULL,
	uid        TEXT NOT NULL,
	creator    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (canister, post_id)
);

CREATE TABLE IF NOT EXISTS hon_games (
	principal   TEXT NOT NULL,
	canister    TEXT NOT NULL,
	post_id     BIGINT NOT NULL,
	kind        TEXT NOT NULL,
	vote_amount BIGINT NOT NULL DEFAULT 0,
	game_result JSONB,
	reward      BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (principal, canister, post_id)
);
`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return err
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.Session == "" {
		acct.Session = account.SessionAnonymous
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hon_accounts (id, principal, owner, session, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, acct.ID, acct.Principal, acct.Owner, acct.Session, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE hon_accounts
		SET principal = $2, owner = $3, session = $4, updated_at = $5
		WHERE id = $1
	`, acct.ID, acct.Principal, acct.Owner, acct.Session, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) scanAccount(row *sql.Row, what string) (account.Account, error) {
	var acct account.Account
	if err := row.Scan(&acct.ID, &acct.Principal, &acct.Owner, &acct.Session, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return account.Account{}, notFound(err, what)
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, principal, owner, session, created_at, updated_at
		FROM hon_accounts
		WHERE id = $1
	`, id)
	return s.scanAccount(row, "account "+id)
}

func (s *Store) GetAccountByPrincipal(ctx context.Context, principal account.Principal) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, principal, owner, session, created_at, updated_at
		FROM hon_accounts
		WHERE principal = $1
	`, principal)
	return s.scanAccount(row, "principal "+string(principal))
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, principal, owner, session, created_at, updated_at
		FROM hon_accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		var acct account.Account
		if err := rows.Scan(&acct.ID, &acct.Principal, &acct.Owner, &acct.Session, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

// --- PostStore --------------------------------------------------------------

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	p.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hon_posts (canister, post_id, uid, creator, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.Canister, p.PostID, p.UID, p.Creator, p.CreatedAt)
	if err != nil {
		return post.Post{}, err
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, target post.Target) (post.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT canister, post_id, uid, creator, created_at
		FROM hon_posts
		WHERE canister = $1 AND post_id = $2
	`, target.Canister, target.PostID)

	var p post.Post
	if err := row.Scan(&p.Canister, &p.PostID, &p.UID, &p.Creator, &p.CreatedAt); err != nil {
		return post.Post{}, notFound(err, "post "+target.String())
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, canister string) ([]post.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT canister, post_id, uid, creator, created_at
		FROM hon_posts
		WHERE canister = $1
		ORDER BY post_id
	`, canister)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []post.Post
	for rows.Next() {
		var p post.Post
		if err := rows.Scan(&p.Canister, &p.PostID, &p.UID, &p.Creator, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- GameStore --------------------------------------------------------------

func (s *Store) PutGameInfo(ctx context.Context, info wager.GameInfo) (wager.GameInfo, error) {
	var resultRaw []byte
	if info.Result != nil {
		raw, err := json.Marshal(info.Result)
		if err != nil {
			return wager.GameInfo{}, err
		}
		resultRaw = raw
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hon_games (principal, canister, post_id, kind, vote_amount, game_result, reward)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (principal, canister, post_id)
		DO UPDATE SET kind = $4, vote_amount = $5, game_result = $6, reward = $7
	`, info.Principal, info.PostCanister, info.PostID, info.Kind, info.VoteAmount, resultRaw, info.RewardAmount)
	if err != nil {
		return wager.GameInfo{}, err
	}
	return info, nil
}

func scanGameInfo(scan func(dest ...any) error) (wager.GameInfo, error) {
	var (
		info      wager.GameInfo
		resultRaw []byte
	)
	if err := scan(&info.Principal, &info.PostCanister, &info.PostID, &info.Kind, &info.VoteAmount, &resultRaw, &info.RewardAmount); err != nil {
		return wager.GameInfo{}, err
	}
	if len(resultRaw) > 0 {
		var result wager.GameResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return wager.GameInfo{}, err
		}
		info.Result = &result
	}
	return info, nil
}

func (s *Store) GetGameInfo(ctx context.Context, principal account.Principal, target post.Target) (wager.GameInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT principal, canister, post_id, kind, vote_amount, game_result, reward
		FROM hon_games
		WHERE principal = $1 AND canister = $2 AND post_id = $3
	`, principal, target.Canister, target.PostID)

	info, err := scanGameInfo(row.Scan)
	if err != nil {
		return wager.GameInfo{}, notFound(err, "game "+target.String())
	}
	return info, nil
}

func (s *Store) ListGameInfo(ctx context.Context, principal account.Principal) ([]wager.GameInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT principal, canister, post_id, kind, vote_amount, game_result, reward
		FROM hon_games
		WHERE principal = $1
		ORDER BY canister, post_id
	`, principal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []wager.GameInfo
	for rows.Next() {
		info, err := scanGameInfo(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	return result, rows.Err()
}
