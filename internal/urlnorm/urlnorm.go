// Package urlnorm canonicalizes URLs for duplicate comparison.
package urlnorm

import (
	"net/url"
	"strings"
)

// trackingParams 比较时剔除的跟踪参数 / query parameters stripped before
// comparison. utm_* is matched by prefix.
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"ref":    {},
	"s":      {},
	"t":      {},
	"si":     {},
	"igshid": {},
}

// Normalize 规范化 URL：小写、去 www.、剔除跟踪参数、去末尾斜杠。
// Normalize canonicalizes a URL for equality comparison: lowercase, strip a
// leading "www.", drop tracking query parameters (keeping survivors in their
// original relative order), and strip a trailing slash. Malformed input is
// never an error; it falls back to a lowercased, trimmed copy of the input.
func Normalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	parsed, err := url.Parse(lowered)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return lowered
	}

	host := strings.TrimPrefix(parsed.Host, "www.")
	path := strings.TrimRight(parsed.Path, "/")
	query := filterQuery(parsed.RawQuery)

	out := parsed.Scheme + "://" + host + path
	if query != "" {
		out += "?" + query
	}
	return out
}

// filterQuery drops tracking parameters and re-encodes the survivors,
// preserving their relative order.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		value := ""
		hasValue := false
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key, value = pair[:i], pair[i+1:]
			hasValue = true
		}
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			decodedKey = key
		}
		if isTrackingParam(decodedKey) {
			continue
		}
		encoded := url.QueryEscape(decodedKey)
		if hasValue {
			decodedValue, err := url.QueryUnescape(value)
			if err != nil {
				decodedValue = value
			}
			encoded += "=" + url.QueryEscape(decodedValue)
		}
		kept = append(kept, encoded)
	}
	return strings.Join(kept, "&")
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := trackingParams[key]
	return ok
}
