package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reservedChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	invalidChars  = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	underscores   = regexp.MustCompile(`_+`)
)

// SafeFilename folds s to a portable file name: accents are stripped, spaces
// become underscores and anything outside [A-Za-z0-9._-] is removed.
func SafeFilename(s string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	s = reservedChars.ReplaceAllString(s, "")
	s = invalidChars.ReplaceAllString(s, "")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_.")
}

// fileStem maps a symbol to its cache file stem. Symbols that survive SafeFilename
// unchanged are used as is; lossy ones ("^GSPC", "GC=F") get a short hash suffix
// so that two symbols never share a file.
func fileStem(symbol string) string {
	safe := SafeFilename(symbol)
	if safe == symbol && safe != "" {
		return safe
	}
	sum := sha1.Sum([]byte(symbol))
	suffix := hex.EncodeToString(sum[:4])
	if safe == "" {
		return suffix
	}
	return safe + "-" + suffix
}
