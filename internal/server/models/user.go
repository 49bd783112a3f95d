// Package models defines the persisted record shapes of the authentication
// service.
package models

// TwoFactorSecret is the shared TOTP secret plus its provisioning URI.
// It is generated at signup and returned to the client exactly once.
type TwoFactorSecret struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// User is the identity record. The salt is opaque to the server: clients use
// it for local key derivation. EncryptionPublicKey is stored but not used by
// the authentication core. Exactly one SigninChallenge is valid at any time;
// it is rotated after each completed authentication.
type User struct {
	ID                  string          `json:"id"`
	Username            string          `json:"username"`
	Salt                string          `json:"salt"`
	SigningPublicKey    string          `json:"signingPublicKey"`
	EncryptionPublicKey string          `json:"encryptionPublicKey"`
	TwoFactorSecret     TwoFactorSecret `json:"twoFactorSecret"`
	TwoFactorEnabled    bool            `json:"twoFactorEnabled"`
	SigninChallenge     string          `json:"signinChallenge"`
	CreatedAt           int64           `json:"createdAt"`
	UpdatedAt           int64           `json:"updatedAt"`
}

// UsernameIndex is the lookup record stored under the username itself,
// pointing at the owning user ID. It is what makes usernames unique.
type UsernameIndex struct {
	UserID string `json:"userId"`
}
