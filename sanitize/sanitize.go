// Package sanitize provides the outbound string hygiene applied to checkpoint
// payloads: URL reduction policies for the referer field and markup snippet
// truncation for element fallbacks. All functions degrade to a safe value —
// never an error — because they run inside best-effort dispatch paths.
package sanitize

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// URLPolicy selects how much of a URL survives sanitisation.
type URLPolicy string

const (
	// PolicyPath keeps scheme, host and path. Query and fragment are dropped
	// because they routinely carry identifiers. The default.
	PolicyPath URLPolicy = "path"
	// PolicyOrigin keeps scheme and host only.
	PolicyOrigin URLPolicy = "origin"
	// PolicyFull keeps everything except credentials and fragment.
	PolicyFull URLPolicy = "full"
)

// Valid reports whether p is a known policy.
func (p URLPolicy) Valid() bool {
	switch p {
	case PolicyPath, PolicyOrigin, PolicyFull:
		return true
	}
	return false
}

// URL reduces raw according to policy. Unparsable input yields the empty
// string; embedded credentials are always removed.
func URL(raw string, policy URLPolicy) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	u.User = nil
	u.Fragment = ""

	switch policy {
	case PolicyOrigin:
		u.Path, u.RawQuery = "", ""
	case PolicyFull:
		// credentials and fragment already stripped
	default: // PolicyPath and anything unrecognised
		u.RawQuery = ""
	}
	return u.String()
}

// snippetPolicy strips scripts, event handlers and other active content while
// keeping enough structure to recognise the element.
var snippetPolicy = bluemonday.UGCPolicy()

// Snippet sanitises a markup fragment and truncates it to max runes. Used as
// the last-resort label when an element resolves to neither target nor source.
func Snippet(markup string, max int) string {
	if max <= 0 {
		max = 100
	}
	clean := strings.TrimSpace(snippetPolicy.Sanitize(markup))
	runes := []rune(clean)
	if len(runes) > max {
		return string(runes[:max])
	}
	return clean
}

// SameOrigin reports whether two URLs share scheme and host. Unparsable input
// is never same-origin.
func SameOrigin(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host && ua.Host != ""
}
