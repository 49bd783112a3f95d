// Package cryptox implements the signature side of the authentication
// protocol: verifying challenge signatures on the server and deriving the
// client keypairs from a passphrase and salt.
//
// Signatures use combined mode: the signed blob carries the signature and
// the plaintext together, and opening it recovers the plaintext. Public
// keys and signed blobs travel hex-encoded.
package cryptox

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"

	"github.com/dmitrijs2005/keygate/internal/common"
	"golang.org/x/crypto/nacl/sign"
)

// SaltBytes is the salt size handed to clients for key derivation.
const SaltBytes = 16

// VerifySignature reports whether signatureHex is a valid combined-mode
// signature over exactly expectedPlaintext, produced by the holder of
// signingPublicKeyHex.
//
// Every failure mode — malformed hex, wrong key size, broken signature,
// plaintext mismatch — yields false. Callers must not be able to tell the
// causes apart, so nothing is returned besides the boolean and nothing is
// logged here.
func VerifySignature(signingPublicKeyHex, signatureHex, expectedPlaintext string) bool {
	publicKey, err := hex.DecodeString(signingPublicKeyHex)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return false
	}

	signed, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}

	var pk [ed25519.PublicKeySize]byte
	copy(pk[:], publicKey)

	opened, ok := sign.Open(nil, signed, &pk)
	if !ok {
		return false
	}

	return bytes.Equal(opened, []byte(expectedPlaintext))
}

// GenerateSalt returns a fresh random salt, hex-encoded. It is used both at
// signup and to fabricate answers for unknown usernames, so real and fake
// salts must be indistinguishable.
func GenerateSalt() (string, error) {
	return common.MakeRandHexString(SaltBytes)
}
