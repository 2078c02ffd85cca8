package codegen

import (
	"errors"
	"fmt"
	"strings"
)

// Region markers. Both are matched against trimmed lines.
const (
	FenceStart = "// BEGIN GENERATED:"
	FenceEnd   = "// END GENERATED"
)

var (
	// ErrMalformedFence reports nested, unterminated, unmatched or
	// duplicated region markers
	ErrMalformedFence = errors.New("malformed generated region")
	// ErrMissingRegion reports a generated region the target file lacks
	ErrMissingRegion = errors.New("generated region missing from file")
)

// Region locates one fenced region by line index. Start is the BEGIN
// marker line and End the END marker line.
type Region struct {
	Name  string
	Start int
	End   int
}

// Regions parses the fenced regions of text in order of appearance
func Regions(text string) ([]Region, error) {
	return regions(strings.Split(text, "\n"))
}

func regions(lines []string) ([]Region, error) {
	var (
		out  []Region
		open *Region
		seen = make(map[string]bool)
	)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, FenceStart):
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, FenceStart))
			if open != nil {
				return nil, fmt.Errorf("%w: region %q opened at line %d inside %q", ErrMalformedFence, name, i+1, open.Name)
			}
			if name == "" {
				return nil, fmt.Errorf("%w: unnamed region at line %d", ErrMalformedFence, i+1)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: duplicate region %q at line %d", ErrMalformedFence, name, i+1)
			}
			seen[name] = true
			open = &Region{Name: name, Start: i}
		case trimmed == FenceEnd:
			if open == nil {
				return nil, fmt.Errorf("%w: end marker without begin at line %d", ErrMalformedFence, i+1)
			}
			open.End = i
			out = append(out, *open)
			open = nil
		}
	}
	if open != nil {
		return nil, fmt.Errorf("%w: region %q is not terminated", ErrMalformedFence, open.Name)
	}
	return out, nil
}

// Splice replaces every fenced region of existing with the region of the
// same name from generated. Text outside fences and regions that generated
// does not produce are kept as they are. Splicing the same generated text
// twice gives the same result as splicing it once.
func Splice(existing, generated string) (string, error) {
	genLines := strings.Split(generated, "\n")
	genRegions, err := regions(genLines)
	if err != nil {
		return "", fmt.Errorf("generated text: %w", err)
	}
	oldLines := strings.Split(existing, "\n")
	oldRegions, err := regions(oldLines)
	if err != nil {
		return "", err
	}

	fresh := make(map[string][]string, len(genRegions))
	for _, r := range genRegions {
		fresh[r.Name] = genLines[r.Start : r.End+1]
	}
	present := make(map[string]bool, len(oldRegions))
	for _, r := range oldRegions {
		present[r.Name] = true
	}
	for _, r := range genRegions {
		if !present[r.Name] {
			return "", fmt.Errorf("%w: %q", ErrMissingRegion, r.Name)
		}
	}

	out := make([]string, 0, len(oldLines))
	next := 0
	for _, r := range oldRegions {
		out = append(out, oldLines[next:r.Start]...)
		if body, ok := fresh[r.Name]; ok {
			out = append(out, body...)
		} else {
			out = append(out, oldLines[r.Start:r.End+1]...)
		}
		next = r.End + 1
	}
	out = append(out, oldLines[next:]...)
	return strings.Join(out, "\n"), nil
}
