package post

import (
	"fmt"
	"time"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
)

// Target identifies a single piece of content a wager can be placed on:
// the canister hosting the post plus the post's index within it.
type Target struct {
	Canister string
	PostID   uint64
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%d", t.Canister, t.PostID)
}

// Post is the gateway's view of a content post. UID is the content
// identifier used by the sentiment evaluator.
type Post struct {
	Canister  string
	PostID    uint64
	UID       string
	Creator   account.Principal
	CreatedAt time.Time
}

// Target returns the wager target for this post.
func (p Post) Target() Target {
	return Target{Canister: p.Canister, PostID: p.PostID}
}
