// Package xmlutil parses the small set of XML document shapes the S3 API
// returns: bucket listings, multipart upload responses, and error bodies. It
// is deliberately tolerant of namespace prefixes, matching elements by local
// name the way a hand-rolled DOM walk over rapidxml would.
package xmlutil

import "errors"

// ErrMalformed indicates the response body was not well-formed XML, or was
// missing an element this parser requires.
var ErrMalformed = errors.New("xmlutil: malformed or unexpected document")
