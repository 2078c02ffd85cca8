package codegen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidComponentName is returned for names that are not identifiers
var ErrInvalidComponentName = errors.New("invalid component name")

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// CheckComponentName rejects names that cannot be exported as is
func CheckComponentName(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidComponentName, name)
	}
	return nil
}

// ComponentName turns name into an identifier. Words are joined with their
// first letters upper-cased, so "my scene" becomes "MyScene". A name with
// nothing usable becomes DefaultComponentName.
func ComponentName(name string) string {
	if identifier.MatchString(name) {
		return name
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'))
	})
	if len(words) == 0 {
		return DefaultComponentName
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
