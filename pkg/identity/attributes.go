package identity

import "time"

// AttributesEntry is the full set of attested attributes for one subject.
// There is one entry per subject, not one per attribute: replacing the entry
// replaces every attribute at once, and Added is refreshed on each replace.
//
// An entry with an empty attribute map is a valid state, distinct from the
// subject having no entry at all.
type AttributesEntry struct {
	// Attrs maps attribute names to raw attribute values. Keys and values
	// are arbitrary byte strings; names are kept as Go strings so they can
	// index the map.
	Attrs map[string][]byte

	// Added is when this entry was last written.
	Added time.Time

	// Expires is when the attestation lapses, if ever.
	Expires *time.Time

	// AttestedBy is the identity that vouched for the whole entry.
	// It is the subject itself for self-attested attributes.
	AttestedBy *Identifier
}

// IsExpired reports whether the entry's attestation has lapsed at the
// given instant. Entries without an expiry never lapse.
func (e AttributesEntry) IsExpired(now time.Time) bool {
	return e.Expires != nil && now.After(*e.Expires)
}

// IdentityAttributes pairs a subject with its attributes entry, as returned
// by list operations.
type IdentityAttributes struct {
	Identifier Identifier
	Entry      AttributesEntry
}
