package cryptox

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/sign"
)

// SigningKeyPair is a client-side signing keypair. The public key is in the
// hex wire encoding the server stores; the private key never leaves the
// client process.
type SigningKeyPair struct {
	PublicKey  string
	PrivateKey *[64]byte
}

// EncryptionKeyPair is the client-side box keypair. The server stores the
// public key but does not use it in the authentication core.
type EncryptionKeyPair struct {
	PublicKey  string
	PrivateKey *[32]byte
}

// DeriveKeyPairs deterministically derives both client keypairs from a
// passphrase and the user's salt. The same passphrase and salt always
// produce the same keys, which is what lets a client re-derive its identity
// from the public salt probe. Argon2id parameters match the key-derivation
// settings used elsewhere in the project.
func DeriveKeyPairs(passphrase []byte, saltHex string) (*SigningKeyPair, *EncryptionKeyPair, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid salt: %w", err)
	}

	keyMaterial := argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 64)

	signPub, signPriv, err := sign.GenerateKey(bytes.NewReader(keyMaterial[:32]))
	if err != nil {
		return nil, nil, fmt.Errorf("deriving signing key: %w", err)
	}

	boxPub, boxPriv, err := box.GenerateKey(bytes.NewReader(keyMaterial[32:]))
	if err != nil {
		return nil, nil, fmt.Errorf("deriving encryption key: %w", err)
	}

	signing := &SigningKeyPair{
		PublicKey:  hex.EncodeToString(signPub[:]),
		PrivateKey: signPriv,
	}
	encryption := &EncryptionKeyPair{
		PublicKey:  hex.EncodeToString(boxPub[:]),
		PrivateKey: boxPriv,
	}

	return signing, encryption, nil
}

// SignChallenge produces the hex-encoded combined-mode signature over the
// challenge that VerifySignature accepts.
func SignChallenge(privateKey *[64]byte, challenge string) string {
	signed := sign.Sign(nil, []byte(challenge), privateKey)
	return hex.EncodeToString(signed)
}
