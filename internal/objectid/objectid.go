// Package objectid implements content-addressed object identity: a
// lowercase-hex SHA-256 digest with a fan-out split used to shard the object
// database directory tree.
package objectid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/telos-vcs/telos/internal/telerr"
)

const (
	hexLen    = 64
	shortLen  = 8
	fanOutLen = 2
)

// ID is a 256-bit content digest surfaced as a 64-character lowercase hex
// string. The zero value is not a valid ID.
type ID struct {
	hex string
}

// Hash computes the ID of bytes directly (no canonicalization).
func Hash(data []byte) ID {
	sum := sha256.Sum256(data)
	return ID{hex: hex.EncodeToString(sum[:])}
}

// Parse validates s as a 64-character hex string, case-insensitively, and
// returns the normalized lowercase ID.
func Parse(s string) (ID, error) {
	if len(s) != hexLen {
		return ID{}, telerr.Wrap(fmt.Sprintf("length %d, want %d", len(s), hexLen), telerr.ErrInvalidObjectId)
	}
	lower := strings.ToLower(s)
	for _, c := range lower {
		if !isHexDigit(c) {
			return ID{}, telerr.Wrap(fmt.Sprintf("non-hex character %q", c), telerr.ErrInvalidObjectId)
		}
	}
	return ID{hex: lower}, nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

// IsValid reports whether id is non-zero.
func (id ID) IsValid() bool { return id.hex != "" }

// String returns the full 64-character lowercase hex form.
func (id ID) String() string { return id.hex }

// Short returns the first 8 characters, suitable for display.
func (id ID) Short() string {
	if len(id.hex) < shortLen {
		return id.hex
	}
	return id.hex[:shortLen]
}

// FanOut splits the id into its two-character shard directory name and the
// remaining 62-character file name.
func (id ID) FanOut() (dir, file string) {
	if len(id.hex) < fanOutLen {
		return id.hex, ""
	}
	return id.hex[:fanOutLen], id.hex[fanOutLen:]
}

// HasPrefix reports whether id's hex form starts with prefix (already
// expected to be lowercase).
func (id ID) HasPrefix(prefix string) bool {
	return strings.HasPrefix(id.hex, prefix)
}

// MarshalText implements encoding.TextMarshaler so ID can be used directly
// as a JSON string value.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.hex), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string decodes
// to the zero ID, mirroring MarshalText, so an unset id field round-trips.
func (id *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = ID{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
