// Package urlkey produces stable keys for fetched URLs. Audit events and
// metrics carry the key instead of (or alongside) the raw URL so log
// pipelines can correlate fetches of the same resource across spelling
// variants.
package urlkey

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Normalize converts a URL to canonical form: lowercased scheme and host,
// default ports stripped, sorted query, fragment dropped. Invalid input is
// returned unchanged so keys are still stable for it.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	if u.Path == "" {
		u.Path = "/"
	}
	u.RawQuery = sortQuery(u.RawQuery)
	u.Fragment = ""

	return u.String()
}

// Key returns the XXHash64 of the normalized URL as a fixed-width hex string.
func Key(rawURL string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(Normalize(rawURL)))
}

func sortQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := values[k]
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}
