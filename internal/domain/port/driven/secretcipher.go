package driven

import "errors"

// ErrEncryptionKeyNotSet indicates no encryption key is configured. Plaintext
// material passwords are rejected rather than stored in the clear.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured")

// SecretCipher seals material passwords before persistence and opens them
// when a connection needs the plaintext.
type SecretCipher interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}
