package star

import "github.com/google/uuid"

// RequestIDGenerator produces the request_id attached to every statement a
// Browser operation logs. Implemented by UUIDv7Generator (production) and
// testutil.FixedIDGenerator (tests).
type RequestIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
