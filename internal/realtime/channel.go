package realtime

import "strings"

// ChannelKey returns the canonical conversation channel name for a pair of
// users. The pair is unordered: both participants compute the identical key
// because identifiers are sorted lexicographically before joining.
func ChannelKey(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if b < a {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}
