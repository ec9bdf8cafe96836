// Package identity implements the cryptographic identity model: identifiers
// derived from signed change histories, attested attributes, and the services
// (credential issuance, key management) built on top of them.
//
// An identity is defined entirely by its change history, an append-only chain
// of signed key rotations. The identifier is derived from the first link of
// the chain and never changes, no matter how many times the key material is
// rotated afterwards.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/fxamacker/cbor/v2"
)

// identifierLen is the number of digest bytes kept in an identifier.
const identifierLen = 20

var identifierRe = regexp.MustCompile(`^I[0-9a-f]{40}$`)

// Identifier is the opaque, globally unique handle of an identity.
// It is derived from the first change of the identity's change history and
// is immutable for the lifetime of the identity.
type Identifier string

// String returns the textual form of the identifier.
func (i Identifier) String() string { return string(i) }

// ParseIdentifier validates the textual form of an identifier.
func ParseIdentifier(s string) (Identifier, error) {
	if !identifierRe.MatchString(s) {
		return "", fmt.Errorf("invalid identifier %q", s)
	}
	return Identifier(s), nil
}

// ChangeData is the signed payload of a single change: the public key
// introduced by the rotation and the time it was created.
type ChangeData struct {
	PublicKey []byte `cbor:"public_key"`
	CreatedAt int64  `cbor:"created_at"`
}

// Change is one link of a change history: a new public key, self-signed by
// that key, and countersigned by the previous key (absent on the first link).
type Change struct {
	Data              ChangeData `cbor:"data"`
	SelfSignature     []byte     `cbor:"self_signature"`
	PreviousSignature []byte     `cbor:"previous_signature,omitempty"`
}

// ChangeHistory is the ordered, append-only chain of signed key rotations
// that defines an identity. It round-trips bit-for-bit through Export and
// ImportChangeHistory.
type ChangeHistory struct {
	Changes []Change
}

// Export serializes the change history to its canonical binary form.
func (h ChangeHistory) Export() ([]byte, error) {
	data, err := cbor.Marshal(h.Changes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change history: %w", err)
	}
	return data, nil
}

// ImportChangeHistory decodes a change history from its binary form.
func ImportChangeHistory(data []byte) (ChangeHistory, error) {
	var changes []Change
	if err := cbor.Unmarshal(data, &changes); err != nil {
		return ChangeHistory{}, fmt.Errorf("failed to decode change history: %w", err)
	}
	if len(changes) == 0 {
		return ChangeHistory{}, fmt.Errorf("change history is empty")
	}
	return ChangeHistory{Changes: changes}, nil
}

// Identifier derives the identity's identifier from the first change.
// Later rotations extend the chain but never alter this value.
func (h ChangeHistory) Identifier() (Identifier, error) {
	if len(h.Changes) == 0 {
		return "", fmt.Errorf("change history is empty")
	}
	data, err := cbor.Marshal(h.Changes[0].Data)
	if err != nil {
		return "", fmt.Errorf("failed to encode first change: %w", err)
	}
	sum := sha256.Sum256(data)
	return Identifier("I" + hex.EncodeToString(sum[:identifierLen])), nil
}

// PublicKey returns the latest public key of the chain.
func (h ChangeHistory) PublicKey() []byte {
	if len(h.Changes) == 0 {
		return nil
	}
	return h.Changes[len(h.Changes)-1].Data.PublicKey
}

// Equal reports whether two change histories have the same canonical encoding.
func (h ChangeHistory) Equal(other ChangeHistory) bool {
	a, err1 := h.Export()
	b, err2 := other.Export()
	return err1 == nil && err2 == nil && string(a) == string(b)
}

// Identity is a verified identity: an identifier together with the change
// history it was derived from. Instances are only produced by the Identities
// service after the chain signatures have been checked.
type Identity struct {
	identifier    Identifier
	changeHistory ChangeHistory
}

// Identifier returns the identity's immutable identifier.
func (i *Identity) Identifier() Identifier { return i.identifier }

// ChangeHistory returns the identity's change history.
func (i *Identity) ChangeHistory() ChangeHistory { return i.changeHistory }

// PublicKey returns the identity's latest public key.
func (i *Identity) PublicKey() []byte { return i.changeHistory.PublicKey() }
