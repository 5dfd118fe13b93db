// Package wager defines the canonical vote request model: the exact data a
// user signs when staking on a Hot-or-Not round, and the settlement results
// the worker produces for it.
package wager

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
)

var (
	// ErrInvalidStake is returned when a vote is constructed with an
	// amount outside the enumerated stake tiers.
	ErrInvalidStake = errors.New("stake amount is not an allowed tier")

	// ErrNotAVote is returned when a game result is requested from a
	// creator-reward record.
	ErrNotAVote = errors.New("game info record is not a vote participation")
)

// StakeTier is one of the fixed wager sizes. Arbitrary amounts are
// rejected before signing.
type StakeTier uint64

const (
	Stake50  StakeTier = 50
	Stake100 StakeTier = 100
	Stake200 StakeTier = 200
)

// Tiers lists the allowed stakes in ascending order.
func Tiers() []StakeTier {
	return []StakeTier{Stake50, Stake100, Stake200}
}

// ValidStake reports whether amount equals one of the enumerated tiers.
func ValidStake(amount uint64) bool {
	switch StakeTier(amount) {
	case Stake50, Stake100, Stake200:
		return true
	}
	return false
}

// Next returns the tier after t, wrapping around.
func (t StakeTier) Next() StakeTier {
	switch t {
	case Stake50:
		return Stake100
	case Stake100:
		return Stake200
	default:
		return Stake50
	}
}

// Prev returns the tier before t, wrapping around.
func (t StakeTier) Prev() StakeTier {
	switch t {
	case Stake50:
		return Stake200
	case Stake200:
		return Stake100
	default:
		return Stake50
	}
}

// Direction is the user's binary choice on a round.
type Direction string

const (
	Hot Direction = "hot"
	Not Direction = "not"
)

func (d Direction) valid() bool { return d == Hot || d == Not }

// Sentiment is the oracle signal attached to a forwarded vote. Unknown is
// an explicit marker for an unavailable signal; the gateway never
// substitutes a guessed value.
type Sentiment string

const (
	SentimentHot     Sentiment = "hot"
	SentimentNot     Sentiment = "not"
	SentimentUnknown Sentiment = "unknown"
)

// VoteRequest is the signed payload for one wager. It is immutable after
// construction; changing any field invalidates the signature.
type VoteRequest struct {
	PostCanister string    `json:"post_canister"`
	PostID       uint64    `json:"post_id"`
	VoteAmount   uint64    `json:"vote_amount"`
	Direction    Direction `json:"direction"`
}

// NewVoteRequest validates the stake tier and direction at construction,
// before anything is signed or sent.
func NewVoteRequest(target post.Target, amount uint64, dir Direction) (VoteRequest, error) {
	if !ValidStake(amount) {
		return VoteRequest{}, fmt.Errorf("%w: %d", ErrInvalidStake, amount)
	}
	if !dir.valid() {
		return VoteRequest{}, fmt.Errorf("invalid direction %q", dir)
	}
	if target.Canister == "" {
		return VoteRequest{}, fmt.Errorf("vote target canister is required")
	}
	return VoteRequest{
		PostCanister: target.Canister,
		PostID:       target.PostID,
		VoteAmount:   amount,
		Direction:    dir,
	}, nil
}

// Target returns the content target the vote applies to.
func (r VoteRequest) Target() post.Target {
	return post.Target{Canister: r.PostCanister, PostID: r.PostID}
}

const voteCanonicalPrefix = "hon:vote:v1"

// CanonicalBytes produces the single stable byte encoding of the request
// used for signing and verification. Fields are length-prefixed and
// written in a fixed order so the encoding is identical across processes.
func (r VoteRequest) CanonicalBytes() []byte {
	var buf bytes.Buffer
	writeCanonicalString(&buf, voteCanonicalPrefix)
	writeCanonicalString(&buf, r.PostCanister)
	writeCanonicalUint64(&buf, r.PostID)
	writeCanonicalUint64(&buf, r.VoteAmount)
	writeCanonicalString(&buf, string(r.Direction))
	return buf.Bytes()
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	writeCanonicalUint64(buf, uint64(len(s)))
	buf.WriteString(s)
}

func writeCanonicalUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

// GameResult is the worker's authoritative outcome for one settled round.
// It is a tagged union: exactly one of Win or Loss.
type GameResult struct {
	Win  *Win
	Loss *Loss
}

// Win carries the amount won on top of the returned stake.
type Win struct {
	WinAmount uint64 `json:"win_amt"`
}

// Loss carries the amount lost.
type Loss struct {
	LoseAmount uint64 `json:"lose_amt"`
}

// Won reports whether the result is a win.
func (g GameResult) Won() bool { return g.Win != nil }

// MarshalJSON emits the worker wire form {"Win":{"win_amt":N}} or
// {"Loss":{"lose_amt":N}}.
func (g GameResult) MarshalJSON() ([]byte, error) {
	switch {
	case g.Win != nil && g.Loss == nil:
		return json.Marshal(map[string]*Win{"Win": g.Win})
	case g.Loss != nil && g.Win == nil:
		return json.Marshal(map[string]*Loss{"Loss": g.Loss})
	}
	return nil, fmt.Errorf("game result must be exactly one of Win or Loss")
}

// UnmarshalJSON accepts the worker wire form.
func (g *GameResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Win  *Win  `json:"Win"`
		Loss *Loss `json:"Loss"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if (raw.Win == nil) == (raw.Loss == nil) {
		return fmt.Errorf("game result must be exactly one of Win or Loss")
	}
	g.Win = raw.Win
	g.Loss = raw.Loss
	return nil
}

// GameInfoKind discriminates participation records.
type GameInfoKind string

const (
	GameInfoVote          GameInfoKind = "vote"
	GameInfoCreatorReward GameInfoKind = "creator_reward"
)

// GameInfo is a historical participation record for a (principal, target)
// pair: either a settled vote or a creator reward credit.
type GameInfo struct {
	Kind         GameInfoKind      `json:"kind"`
	Principal    account.Principal `json:"principal"`
	PostCanister string            `json:"post_canister"`
	PostID       uint64            `json:"post_id"`

	// Vote participation fields, valid only when Kind is GameInfoVote.
	VoteAmount uint64      `json:"vote_amount,omitempty"`
	Result     *GameResult `json:"game_result,omitempty"`

	// Reward amount, valid only when Kind is GameInfoCreatorReward.
	RewardAmount uint64 `json:"reward_amount,omitempty"`
}

// Vote returns the stake and result of a vote participation record.
// Accessing the result of a creator-reward record is a programming error
// and fails loudly rather than returning zero values.
func (g GameInfo) Vote() (uint64, GameResult, error) {
	if g.Kind != GameInfoVote || g.Result == nil {
		return 0, GameResult{}, fmt.Errorf("%w: kind=%s", ErrNotAVote, g.Kind)
	}
	return g.VoteAmount, *g.Result, nil
}

// CreatorReward computes the share of a stake credited to the post
// creator on a settled round.
func CreatorReward(stake uint64) uint64 {
	return (stake * 2) / 10
}
