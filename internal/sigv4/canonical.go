package sigv4

import (
	"net/url"
	"sort"
	"strings"
)

// CanonicalRequest is the newline-joined tuple SigV4 hashes to produce the
// third line of the string-to-sign. Headers is a pre-signed-headers view:
// only the names in SignedHeaderNames are canonicalized, in the order given.
type CanonicalRequest struct {
	Method           string
	URI              string
	Query            url.Values
	Headers          map[string]string // lowercase name -> raw value
	SignedHeaderNames []string          // lowercase names, canonicalization order
	PayloadHash      string
}

// Build assembles the canonical request string per AWS SigV4: method,
// canonical URI, canonical query, canonical headers, signed headers list,
// payload hash, each on its own line.
func (c CanonicalRequest) Build() string {
	var b strings.Builder
	b.WriteString(c.Method)
	b.WriteByte('\n')
	b.WriteString(canonicalURI(c.URI))
	b.WriteByte('\n')
	b.WriteString(canonicalQueryString(c.Query))
	b.WriteByte('\n')
	b.WriteString(canonicalHeaders(c.Headers, c.SignedHeaderNames))
	b.WriteByte('\n')
	b.WriteString(strings.Join(c.SignedHeaderNames, ";"))
	b.WriteByte('\n')
	b.WriteString(c.PayloadHash)
	return b.String()
}

// Hash returns the lowercase hex SHA-256 of the built canonical request.
func (c CanonicalRequest) Hash() string {
	return SHA256Hex([]byte(c.Build()))
}

// canonicalURI percent-encodes each path segment per RFC 3986, leaving the
// "/" separators untouched. An empty path becomes "/". Callers are expected
// to pass already-decoded path segments; this never double-encodes because it
// is the only encoding step in the pipeline.
func canonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = rfc3986Escape(seg)
	}
	return strings.Join(segments, "/")
}

// rfc3986Escape percent-encodes a string the way SigV4 canonicalization
// requires: unreserved characters pass through untouched, everything else
// (including space, which net/url.QueryEscape would encode as "+" rather
// than "%20") is escaped as %XX with uppercase hex digits.
func rfc3986Escape(s string) string {
	const hextable = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hextable[c>>4])
		b.WriteByte(hextable[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}

// canonicalQueryString sorts query parameters by name, then by value, and
// RFC-3986-encodes both names and values (never net/url.QueryEscape, which
// encodes space as "+" instead of the "%20" SigV4 canonicalization
// requires). A missing value becomes an empty string after "=". An empty
// query returns "".
func canonicalQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	var pairs []string
	for _, name := range names {
		values := append([]string(nil), query[name]...)
		sort.Strings(values)
		if len(values) == 0 {
			pairs = append(pairs, rfc3986Escape(name)+"=")
			continue
		}
		for _, v := range values {
			pairs = append(pairs, rfc3986Escape(name)+"="+rfc3986Escape(v))
		}
	}
	return strings.Join(pairs, "&")
}

// canonicalHeaders renders the canonical-headers block: for each name in
// order, "name:trimmed-collapsed-value\n". The blank line that follows in the
// full canonical request template is the caller's responsibility (Build adds
// it implicitly via the next \n-joined section), not this function's.
func canonicalHeaders(headers map[string]string, order []string) string {
	var b strings.Builder
	for _, name := range order {
		value := collapseWhitespace(headers[name])
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	return b.String()
}

func collapseWhitespace(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// SignedHeaderNames returns the canonicalization order for a request,
// extending BaseSignedHeaders with the security-token header when a session
// token is present.
func SignedHeaderNames(hasSessionToken bool) []string {
	names := append([]string(nil), BaseSignedHeaders...)
	if hasSessionToken {
		names = append(names, HeaderXAmzSecurity)
		sort.Strings(names)
		return names
	}
	return names
}
