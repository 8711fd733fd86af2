// Package blocklist implements the reverse-label suffix trie domains are
// checked against, plus the normalisation rules and file-loading convention
// shared by insertion and lookup.
package blocklist

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"

	"github.com/blazskufca/dnsfilter/internal/dnserr"
)

// MaxLabelLength is the longest a single label may be after normalisation.
const MaxLabelLength = 63

// Normalize applies the domain normalisation rules common to insertion and
// lookup: trim ASCII whitespace, lowercase ASCII letters, strip trailing
// dots, then reject anything left malformed. Unicode domains are additionally
// passed through idna.ToASCII so a label written in its native script and one
// written as punycode normalise to the same key; a domain that is already
// plain ASCII is unaffected by this step.
func Normalize(domain string) (string, error) {
	s := strings.TrimFunc(domain, isASCIISpace)
	s = strings.ToLower(s)
	s = strings.TrimRight(s, ".")

	if s == "" {
		return "", fmt.Errorf("%w: empty domain", dnserr.ErrInvalidDomain)
	}

	if ascii, err := idna.ToASCII(s); err == nil {
		s = ascii
	}

	if strings.HasPrefix(s, ".") {
		return "", fmt.Errorf("%w: %q starts with a dot", dnserr.ErrInvalidDomain, domain)
	}
	if strings.Contains(s, "..") {
		return "", fmt.Errorf("%w: %q has adjacent dots", dnserr.ErrInvalidDomain, domain)
	}

	for _, label := range strings.Split(s, ".") {
		if len(label) > MaxLabelLength {
			return "", fmt.Errorf("%w: label %q in %q exceeds %d octets", dnserr.ErrInvalidDomain, label, domain, MaxLabelLength)
		}
	}

	return s, nil
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}
