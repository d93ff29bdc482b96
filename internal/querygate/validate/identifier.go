package validate

import (
	"fmt"
)

// MaxIdentifierLength is the longest identifier accepted, in bytes. Postgres
// truncates longer names, so two accepted names never collide.
const MaxIdentifierLength = 63

// Identifier validates a schema, table, column, index or database name.
//
// Callers interpolate accepted names directly into statement text, so this is
// the only line of defense for structural operations. Rules, in order:
//   - the name is not empty
//   - it is at most MaxIdentifierLength bytes
//   - every byte is an ASCII letter, an ASCII digit or '_'
//   - it does not start with a digit
func Identifier(name string) error {
	if name == "" {
		return identifierErr(name, "identifier cannot be empty")
	}
	if len(name) > MaxIdentifierLength {
		return identifierErr(name, fmt.Sprintf("identifier cannot be longer than %d characters", MaxIdentifierLength))
	}
	for i := 0; i < len(name); i++ {
		if !isIdentByte(name[i]) {
			return identifierErr(name, fmt.Sprintf("invalid identifier '%s': only alphanumeric and underscore allowed", name))
		}
	}
	if name[0] >= '0' && name[0] <= '9' {
		return identifierErr(name, fmt.Sprintf("invalid identifier '%s': cannot start with a digit", name))
	}
	return nil
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// IsIdentifier reports whether name passes Identifier.
func IsIdentifier(name string) bool {
	return Identifier(name) == nil
}

func identifierErr(name, reason string) error {
	return &Error{Kind: KindIdentifier, Input: name, Reason: reason}
}
