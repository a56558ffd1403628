// Package signature fingerprints error lines so that recurrences of the same
// problem share one history cache entry.
package signature

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"

	"github.com/steveyegge/oaiguard/internal/types"
)

// Applied in declaration order. Numbers must run after IPs and hex literals,
// otherwise their digits would be consumed first.
var (
	leadingTimestampRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}\.\d{3}\s+`)
	ipv4Regex             = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	hexRegex              = regexp.MustCompile(`0x[0-9A-Fa-f]+`)
	numberRegex           = regexp.MustCompile(`\b\d+\b`)
	singleQuotedRegex     = regexp.MustCompile(`'[^']+'`)
	doubleQuotedRegex     = regexp.MustCompile(`"[^"]+"`)
)

// Normalize strips volatile substrings (timestamp, IPs, hex, numbers, quoted
// strings) from a log line.
func Normalize(line string) string {
	x := leadingTimestampRegex.ReplaceAllString(line, "")
	x = ipv4Regex.ReplaceAllString(x, "<IP>")
	x = hexRegex.ReplaceAllString(x, "<HEX>")
	x = numberRegex.ReplaceAllString(x, "<NUM>")
	x = singleQuotedRegex.ReplaceAllString(x, "'<STR>'")
	x = doubleQuotedRegex.ReplaceAllString(x, `"<STR>"`)
	return x
}

// Compute returns the SHA-1 hex digest of the normalized line.
func Compute(line string) types.Signature {
	sum := sha1.Sum([]byte(Normalize(line)))
	return types.Signature(hex.EncodeToString(sum[:]))
}
