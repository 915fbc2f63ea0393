package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid"
)

// ULID generates a string representation of a ULID.
func ULID() string {
	now := time.Now()
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// Valid reports whether id parses as a ULID.
func Valid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}
