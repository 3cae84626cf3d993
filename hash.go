// Fingerprinting for log fields.
//
// Logging a raw key or API-key identifier would leak secret-shaped
// data into the log stream. Every log call that would otherwise carry
// one instead carries fingerprint(), a 16 hex character xxh3 digest —
// the same "fast, non-cryptographic digest formatted as 16 hex chars"
// construction folio's hash.go used for its xxh3 branch, repurposed
// here from content-addressing to log redaction.
package alexdb

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// fingerprint returns a 16 hex character xxh3 digest of s, safe to log
// in place of a key or other sensitive string.
func fingerprint(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(s))
}

// fingerprintID is fingerprint for a UUID-shaped identifier (API keys,
// record ids) without allocating an intermediate string conversion
// beyond the UUID's own canonical form.
func fingerprintID(id uuid.UUID) string {
	return fmt.Sprintf("%016x", xxh3.Hash(id[:]))
}
