package credentials

import (
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// fingerprintSalt scopes the fingerprint derivation so it can never collide with an
// HKDF use elsewhere in the process; it is not a secret.
var fingerprintSalt = []byte("s3sig/credentials/fingerprint/v1")

// Fingerprint derives a short, non-reversible label for a secret key so log
// lines and metric labels can distinguish credential sets without ever
// printing the key itself. It is HKDF (extract, then expand) over the secret, not a MAC: two
// calls with the same secret always agree, which is all a cache key needs.
func Fingerprint(secretKey []byte) string {
	reader := hkdf.New(sha3.New256, secretKey, fingerprintSalt, []byte("fingerprint"))
	out := make([]byte, 8)
	if _, err := io.ReadFull(reader, out); err != nil {
		panic("credentials: hkdf expand failed: " + err.Error())
	}
	return hex.EncodeToString(out)
}
