package account

import "time"

// Principal is the opaque unique identifier for an account owner. It is
// derived from the account's signing key and is stable across sessions.
type Principal string

func (p Principal) String() string { return string(p) }

// SessionType classifies how far an account has progressed through
// onboarding. Only registered sessions may wager or withdraw.
type SessionType string

const (
	SessionAnonymous  SessionType = "anonymous"
	SessionRegistered SessionType = "registered"
)

// Account represents a user account known to the gateway. The gateway is
// not the system of record for balances, only for ownership and session
// state.
type Account struct {
	ID        string
	Principal Principal
	Owner     string
	Session   SessionType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Registered reports whether the account may transact.
func (a Account) Registered() bool {
	return a.Session == SessionRegistered
}
