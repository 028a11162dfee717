// Package runid derives default logical names and run identifiers from an
// explicitly supplied program identifier.
package runid

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TimeLayout is the UTC suffix appended to generated run ids.
const TimeLayout = "20060102_150405"

// Fallback is used when no usable program name can be derived.
const Fallback = "main"

// Program turns a program path (typically os.Args[0]) into a stable identifier:
// the file stem with diacritics stripped and anything outside [A-Za-z0-9._-]
// replaced by an underscore.
func Program(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return Fallback
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return Fallback
	}

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), stem)
	if err != nil {
		stripped = stem
	}

	var b strings.Builder
	for _, r := range stripped {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if strings.Trim(b.String(), "_") == "" {
		return Fallback
	}
	return b.String()
}

// New returns "<program>_<YYYYmmdd_HHMMSS>" using the UTC form of now.
func New(program string, now time.Time) string {
	if program == "" {
		program = Fallback
	}
	return program + "_" + now.UTC().Format(TimeLayout)
}

// DefaultName is the logical name used when none is configured.
func DefaultName() string {
	if len(os.Args) == 0 {
		return Fallback
	}
	return Program(os.Args[0])
}
