// Package withdraw defines the signed withdrawal request model and the
// balance snapshot it is gated on.
package withdraw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
)

// ErrInvalidAmount is returned when a withdrawal is constructed with a
// zero amount. Validation happens before anything is signed or sent.
var ErrInvalidAmount = errors.New("withdrawal amount must be positive")

// Request is the signed payload for one withdrawal of accumulated Sats
// credit. Immutable after construction; any field change invalidates the
// signature.
type Request struct {
	Receiver account.Principal `json:"receiver"`
	Amount   uint64            `json:"amount"`
}

// NewRequest validates the amount and receiver at construction.
func NewRequest(receiver account.Principal, amount uint64) (Request, error) {
	if amount == 0 {
		return Request{}, ErrInvalidAmount
	}
	if receiver == "" {
		return Request{}, fmt.Errorf("withdrawal receiver is required")
	}
	return Request{Receiver: receiver, Amount: amount}, nil
}

const withdrawCanonicalPrefix = "hon:withdraw:v1"

// CanonicalBytes produces the stable byte encoding used for signing and
// verification.
func (r Request) CanonicalBytes() []byte {
	var buf bytes.Buffer
	writeString(&buf, withdrawCanonicalPrefix)
	writeString(&buf, string(r.Receiver))
	writeUint64(&buf, r.Amount)
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint64(buf, uint64(len(s)))
	buf.WriteString(s)
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

// SatsBalanceInfo is the worker's read-only balance snapshot for a
// principal. It is re-fetched after every settlement, never decremented
// locally.
type SatsBalanceInfo struct {
	Balance    uint64 `json:"balance"`
	Airdropped uint64 `json:"airdropped"`
}
