// Package store persists the local trust state in a single embedded SQLite
// database.
//
// The store manages several domain entities:
//
//   - Identities: change-history chains keyed by identifier
//   - Attributes: attested attribute entries with provenance and expiry
//   - Purpose keys: per-identity derived key attestations
//   - Named entities: name-to-record registries with a single default
//   - Enrollment: which identities completed enrollment
//   - Policies: Cedar policy text per resource and action
//
// All typed repositories share one connection pool and one schema, and every
// invariant-critical mutation is scoped to a database transaction rather
// than an application-level lock.
//
// # Usage
//
// Open a store with [Open] and close it when done:
//
//	db, err := store.Open(filepath.Join(dir, "database.sqlite3"))
//	if err != nil {
//		return err
//	}
//	defer db.Close()
package store
