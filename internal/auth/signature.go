package auth

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"hatchery/pkg/domain"
)

// Signature authenticates requests signed with a secp256k1 key. The account
// is the lowercase hex address of the signing key, and every (account, nonce)
// pair is accepted at most once.
type Signature struct {
	nonces NonceStore
}

var _ domain.Authenticator = (*Signature)(nil)

// NewSignature returns an authenticator recording nonces in store. A nil store
// selects an in-memory one.
func NewSignature(store NonceStore) *Signature {
	if store == nil {
		store = NewMemoryNonceStore()
	}
	return &Signature{nonces: store}
}

// Authenticate verifies req.Signature over RequestDigest(req) and consumes
// the nonce.
func (s *Signature) Authenticate(ctx context.Context, req domain.Request) (domain.AccountID, error) {
	if !common.IsHexAddress(string(req.Account)) {
		return "", fmt.Errorf("account %q is not an address: %w", req.Account, domain.ErrUnauthenticated)
	}
	if len(req.Signature) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, domain.ErrUnauthenticated)
	}
	pub, err := crypto.SigToPub(RequestDigest(req), req.Signature)
	if err != nil {
		return "", fmt.Errorf("recover signer: %v: %w", err, domain.ErrUnauthenticated)
	}
	signer := crypto.PubkeyToAddress(*pub)
	if signer != common.HexToAddress(string(req.Account)) {
		return "", fmt.Errorf("signed by %s, not %s: %w", signer.Hex(), req.Account, domain.ErrUnauthenticated)
	}
	account := AccountFromAddress(signer)
	if err := s.nonces.UseNonce(ctx, account, req.Nonce); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	return account, nil
}

// RequestDigest is keccak256 over the account, namespace and body, each
// prefixed with its uvarint length, followed by the nonce as 8 big-endian
// bytes. The framing keeps every field boundary fixed, so no other split of
// the same bytes yields the same digest.
func RequestDigest(req domain.Request) []byte {
	buf := make([]byte, 0, len(req.Account)+len(req.Namespace)+len(req.Body)+3*binary.MaxVarintLen64+8)
	buf = appendField(buf, []byte(req.Account))
	buf = appendField(buf, []byte(req.Namespace))
	buf = binary.BigEndian.AppendUint64(buf, req.Nonce)
	buf = appendField(buf, req.Body)
	return crypto.Keccak256(buf)
}

func appendField(buf, field []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(field)))
	return append(buf, field...)
}

// Sign fills req.Account from key and sets req.Signature.
func Sign(key *ecdsa.PrivateKey, req domain.Request) (domain.Request, error) {
	req.Account = AccountFromAddress(crypto.PubkeyToAddress(key.PublicKey))
	sig, err := crypto.Sign(RequestDigest(req), key)
	if err != nil {
		return domain.Request{}, fmt.Errorf("sign request: %w", err)
	}
	req.Signature = sig
	return req, nil
}

// AccountFromAddress renders addr as a lowercase 0x-prefixed account id.
func AccountFromAddress(addr common.Address) domain.AccountID {
	return domain.AccountID(strings.ToLower(addr.Hex()))
}
