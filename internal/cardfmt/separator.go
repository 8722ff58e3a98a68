package cardfmt

import (
	"errors"
	"fmt"
	"strings"
)

// Separator selects how a record is rendered back to text.
type Separator int

const (
	Pipe Separator = iota
	Space
	Comma
	Colon
	Pretty
)

var ErrUnknownSeparator = errors.New("unknown separator")

var separatorNames = map[Separator]string{
	Pipe:   "pipe",
	Space:  "space",
	Comma:  "comma",
	Colon:  "colon",
	Pretty: "pretty",
}

// ParseSeparator accepts pipe, space, comma, colon or pretty (case-insensitive).
// An empty name selects Pipe.
func ParseSeparator(name string) (Separator, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Pipe, nil
	}
	for sep, s := range separatorNames {
		if s == n {
			return sep, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeparator, name)
}

func (s Separator) String() string {
	if n, ok := separatorNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Separator(%d)", int(s))
}

// Delimiter is the text placed between fields.
func (s Separator) Delimiter() string {
	switch s {
	case Space:
		return " "
	case Comma:
		return ","
	case Colon:
		return ":"
	case Pretty:
		return " | "
	default:
		return "|"
	}
}

func (s Separator) groupsNumber() bool { return s == Pretty }

// Names lists the accepted separator names in declaration order.
func Names() []string {
	return []string{"pipe", "space", "comma", "colon", "pretty"}
}
