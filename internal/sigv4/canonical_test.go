package sigv4

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A query value containing a space must canonicalize to %20, not the "+"
// net/url.QueryEscape would produce — SigV4 canonicalization follows RFC
// 3986, which reserves "+" as a literal character.
func TestCanonicalQueryStringEncodesSpaceAsPercent20(t *testing.T) {
	got := canonicalQueryString(url.Values{"prefix": {"my file"}})
	assert.Equal(t, "prefix=my%20file", got)
}

func TestCanonicalQueryStringSortsNamesAndValues(t *testing.T) {
	got := canonicalQueryString(url.Values{
		"b": {"2"},
		"a": {"2", "1"},
	})
	assert.Equal(t, "a=1&a=2&b=2", got)
}

func TestCanonicalQueryStringEmptyValue(t *testing.T) {
	got := canonicalQueryString(url.Values{"uploads": {""}})
	assert.Equal(t, "uploads=", got)
}

func TestCanonicalURIEncodesSpaceAsPercent20(t *testing.T) {
	got := canonicalURI("/my file.txt")
	assert.Equal(t, "/my%20file.txt", got)
}
