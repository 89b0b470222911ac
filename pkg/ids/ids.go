// Package ids implements the identifiers used throughout the knowledge graph.
// Spaces, entities, properties, types, relations and edits are all named by a
// "dashless UUID": 16 bytes rendered as 32 lowercase hexadecimal characters.
package ids

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ID uniquely identifies a space or a graph element.
type ID uuid.UUID

// Nil is the zero ID. It is never a valid space or entity.
var Nil ID

var ErrInvalid = errors.New("invalid id")

// New generates a new random ID.
func New() ID {
	return ID(uuid.New())
}

// Parse parses the 32 character lowercase hex form of an ID.
func Parse(s string) (ID, error) {
	if len(s) != 32 {
		return Nil, fmt.Errorf("%w %q: expected 32 hex characters, got %d", ErrInvalid, s, len(s))
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return Nil, fmt.Errorf("%w %q: must be lowercase hexadecimal", ErrInvalid, s)
		}
	}
	var id ID
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return Nil, fmt.Errorf("%w %q: %w", ErrInvalid, s, err)
	}
	return id, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// constants and tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromUUID converts a dashed UUID string into an ID.
func FromUUID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return ID(u), nil
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ID) IsNil() bool {
	return id == Nil
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts the dashless form and, since some APIs render ids as
// standard UUIDs, the dashed form too.
func (id *ID) UnmarshalText(b []byte) error {
	parse := Parse
	if len(b) == 36 {
		parse = FromUUID
	}
	parsed, err := parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer so IDs can be stored as text columns.
func (id ID) Value() (driver.Value, error) {
	if id.IsNil() {
		return nil, nil
	}
	return id.String(), nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = Nil
		return nil
	case string:
		return id.UnmarshalText([]byte(v))
	case []byte:
		return id.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into ids.ID", src)
	}
}
