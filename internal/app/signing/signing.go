// Package signing binds canonical wager and withdrawal requests to an
// account identity. Signatures are ed25519 over the request's canonical
// bytes; verification is a pure function of (request, signature, claimed
// principal).
package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/hotornot-games/wager-gateway/internal/app/domain/account"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/wager"
	"github.com/hotornot-games/wager-gateway/internal/app/domain/withdraw"
)

// ErrIdentityUnavailable is returned when signing is requested without
// usable key material, e.g. an unauthenticated caller.
var ErrIdentityUnavailable = errors.New("identity key material unavailable")

var hkdfSalt = []byte("hon-wager-signer")

// Identity is a signing capability bound to exactly one principal. It is
// borrowed per request and never serialized.
type Identity struct {
	priv      ed25519.PrivateKey
	principal account.Principal
}

// NewIdentity wraps existing ed25519 key material.
func NewIdentity(priv ed25519.PrivateKey) (*Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: bad private key length %d", ErrIdentityUnavailable, len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{priv: priv, principal: PrincipalFor(pub)}, nil
}

// DeriveIdentity derives a per-user identity from a master seed via HKDF.
// The same (seed, user) pair always yields the same keypair.
func DeriveIdentity(masterSeed []byte, user string) (*Identity, error) {
	if len(masterSeed) == 0 {
		return nil, fmt.Errorf("%w: master seed is required", ErrIdentityUnavailable)
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrIdentityUnavailable)
	}

	reader := hkdf.New(sha256.New, masterSeed, hkdfSalt, []byte("hon-identity-"+user))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, fmt.Errorf("derive identity: %w", err)
	}
	return NewIdentity(ed25519.NewKeyFromSeed(seed))
}

// Principal returns the principal this identity signs for.
func (i *Identity) Principal() account.Principal {
	if i == nil {
		return ""
	}
	return i.principal
}

// Public returns the identity's public key.
func (i *Identity) Public() ed25519.PublicKey {
	return i.priv.Public().(ed25519.PublicKey)
}

// PrincipalFor derives the principal identifier from a public key.
func PrincipalFor(pub ed25519.PublicKey) account.Principal {
	sum := sha256.Sum256(pub)
	return account.Principal(hex.EncodeToString(sum[:]))
}

// Signature is an opaque signature over one canonical request, carrying
// the signer's public key so the verifier can check the principal
// binding.
type Signature struct {
	Sig       []byte `json:"sig"`
	PublicKey []byte `json:"public_key"`
}

func (i *Identity) sign(canonical []byte) (Signature, error) {
	if i == nil || len(i.priv) != ed25519.PrivateKeySize {
		return Signature{}, ErrIdentityUnavailable
	}
	return Signature{
		Sig:       ed25519.Sign(i.priv, canonical),
		PublicKey: append([]byte(nil), i.Public()...),
	}, nil
}

// SignVote signs a vote request's canonical bytes.
func SignVote(identity *Identity, req wager.VoteRequest) (Signature, error) {
	return identity.sign(req.CanonicalBytes())
}

// SignWithdraw signs a withdrawal request's canonical bytes.
func SignWithdraw(identity *Identity, req withdraw.Request) (Signature, error) {
	return identity.sign(req.CanonicalBytes())
}

// Verify checks that sig was produced over canonical by the key bound to
// the claimed principal.
func Verify(canonical []byte, sig Signature, claimed account.Principal) bool {
	if len(sig.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	pub := ed25519.PublicKey(sig.PublicKey)
	if PrincipalFor(pub) != claimed {
		return false
	}
	return ed25519.Verify(pub, canonical, sig.Sig)
}

// VerifyVote checks a vote request signature.
func VerifyVote(req wager.VoteRequest, sig Signature, claimed account.Principal) bool {
	return Verify(req.CanonicalBytes(), sig, claimed)
}

// VerifyWithdraw checks a withdrawal request signature.
func VerifyWithdraw(req withdraw.Request, sig Signature, claimed account.Principal) bool {
	return Verify(req.CanonicalBytes(), sig, claimed)
}
