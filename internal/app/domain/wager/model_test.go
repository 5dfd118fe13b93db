package wager

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/post"
)

func TestValidStake(t *testing.T) {
	for _, tier := range Tiers() {
		if !ValidStake(uint64(tier)) {
			t.Fatalf("tier %d rejected", tier)
		}
	}
	for _, amount := range []uint64{0, 1, 49, 51, 99, 150, 201, 1000} {
		if ValidStake(amount) {
			t.Fatalf("amount %d accepted", amount)
		}
	}
}

func TestStakeTierCycle(t *testing.T) {
	if Stake50.Next() != Stake100 || Stake100.Next() != Stake200 || Stake200.Next() != Stake50 {
		t.Fatal("next cycle broken")
	}
	if Stake50.Prev() != Stake200 || Stake200.Prev() != Stake100 || Stake100.Prev() != Stake50 {
		t.Fatal("prev cycle broken")
	}
}

func TestNewVoteRequestValidation(t *testing.T) {
	target := post.Target{Canister: "canister-a", PostID: 7}

	if _, err := NewVoteRequest(target, 75, Hot); err == nil {
		t.Fatal("expected off-tier stake to be rejected")
	}
	if _, err := NewVoteRequest(target, 100, Direction("sideways")); err == nil {
		t.Fatal("expected invalid direction to be rejected")
	}
	if _, err := NewVoteRequest(post.Target{}, 100, Hot); err == nil {
		t.Fatal("expected empty canister to be rejected")
	}

	req, err := NewVoteRequest(target, 200, Not)
	if err != nil {
		t.Fatalf("new vote request: %v", err)
	}
	if req.Target() != target {
		t.Fatalf("target round-trip mismatch: %v", req.Target())
	}
}

func TestCanonicalBytesStable(t *testing.T) {
	target := post.Target{Canister: "canister-a", PostID: 42}
	req, err := NewVoteRequest(target, 50, Hot)
	if err != nil {
		t.Fatalf("new vote request: %v", err)
	}

	first := req.CanonicalBytes()
	second := req.CanonicalBytes()
	if !bytes.Equal(first, second) {
		t.Fatal("canonical encoding is not stable")
	}

	mutated := req
	mutated.VoteAmount = 100
	if bytes.Equal(first, mutated.CanonicalBytes()) {
		t.Fatal("amount change did not alter canonical encoding")
	}

	mutated = req
	mutated.Direction = Not
	if bytes.Equal(first, mutated.CanonicalBytes()) {
		t.Fatal("direction change did not alter canonical encoding")
	}

	mutated = req
	mutated.PostID = 43
	if bytes.Equal(first, mutated.CanonicalBytes()) {
		t.Fatal("post id change did not alter canonical encoding")
	}
}

func TestCanonicalBytesFieldBoundaries(t *testing.T) {
	// "ab" + "c" must not encode identically to "a" + "bc".
	a := VoteRequest{PostCanister: "ab", PostID: 1, VoteAmount: 50, Direction: Hot}
	b := VoteRequest{PostCanister: "a", PostID: 1, VoteAmount: 50, Direction: Hot}
	if bytes.Equal(a.CanonicalBytes(), b.CanonicalBytes()) {
		t.Fatal("length prefixing failed to separate fields")
	}
}

func TestGameResultJSON(t *testing.T) {
	win := GameResult{Win: &Win{WinAmount: 45}}
	raw, err := json.Marshal(win)
	if err != nil {
		t.Fatalf("marshal win: %v", err)
	}
	if string(raw) != `{"Win":{"win_amt":45}}` {
		t.Fatalf("unexpected win wire form: %s", raw)
	}

	loss := GameResult{Loss: &Loss{LoseAmount: 200}}
	raw, err = json.Marshal(loss)
	if err != nil {
		t.Fatalf("marshal loss: %v", err)
	}
	if string(raw) != `{"Loss":{"lose_amt":200}}` {
		t.Fatalf("unexpected loss wire form: %s", raw)
	}

	var decoded GameResult
	if err := json.Unmarshal([]byte(`{"Win":{"win_amt":45}}`), &decoded); err != nil {
		t.Fatalf("unmarshal win: %v", err)
	}
	if !decoded.Won() || decoded.Win.WinAmount != 45 {
		t.Fatalf("decoded win mismatch: %+v", decoded)
	}

	if err := json.Unmarshal([]byte(`{}`), &decoded); err == nil {
		t.Fatal("expected empty result to be rejected")
	}
	if err := json.Unmarshal([]byte(`{"Win":{"win_amt":1},"Loss":{"lose_amt":1}}`), &decoded); err == nil {
		t.Fatal("expected dual-variant result to be rejected")
	}
	if _, err := json.Marshal(GameResult{}); err == nil {
		t.Fatal("expected empty result marshal to fail")
	}
}

func TestGameInfoVote(t *testing.T) {
	result := GameResult{Loss: &Loss{LoseAmount: 100}}
	info := GameInfo{
		Kind:       GameInfoVote,
		VoteAmount: 100,
		Result:     &result,
	}

	stake, got, err := info.Vote()
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if stake != 100 || got.Won() {
		t.Fatalf("unexpected vote record: stake=%d won=%v", stake, got.Won())
	}

	reward := GameInfo{Kind: GameInfoCreatorReward, RewardAmount: 10}
	if _, _, err := reward.Vote(); err == nil {
		t.Fatal("expected creator-reward record to fail loudly")
	}
}

func TestCreatorReward(t *testing.T) {
	cases := map[uint64]uint64{50: 10, 100: 20, 200: 40}
	for stake, want := range cases {
		if got := CreatorReward(stake); got != want {
			t.Fatalf("creator reward for %d: got %d, want %d", stake, got, want)
		}
	}
}
