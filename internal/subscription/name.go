package subscription

import (
	"errors"
	"strings"

	"github.com/rivo/uniseg"
)

// ErrInvalidName indicates a subscriber name is not valid.
var ErrInvalidName = errors.New("invalid subscriber name")

// maxNameGraphemes limits names to 256 user-perceived characters. A
// character built from combining marks counts as one, no matter how
// many runes it takes.
const maxNameGraphemes = 256

// forbiddenNameRunes are characters we don't accept in names because
// they commonly show up in injection attempts.
const forbiddenNameRunes = `/()"<>\{}`

// Name is the name a subscriber signed up with.
type Name string

// ParseName parses the given string and checks if it's acceptable as a
// subscriber name.
func ParseName(raw string) (Name, error) {
	if strings.TrimSpace(raw) == "" {
		return Name(""), ErrInvalidName
	}

	if uniseg.GraphemeClusterCount(raw) > maxNameGraphemes {
		return Name(""), ErrInvalidName
	}

	if strings.ContainsAny(raw, forbiddenNameRunes) {
		return Name(""), ErrInvalidName
	}

	return Name(raw), nil
}

func (n *Name) UnmarshalText(text []byte) error {
	name, err := ParseName(string(text))
	if err != nil {
		return err
	}

	*n = name

	return nil
}
