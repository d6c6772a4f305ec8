package model

import "errors"

// ErrConflictingPassword indicates a wire payload carried both password and
// encrypted_password. Exactly one of the two may be supplied.
var ErrConflictingPassword = errors.New("only one of password or encrypted_password may be supplied")

// Secret holds a material password in exactly one of two representations:
// plaintext as freshly entered in an edit form, or the opaque ciphertext the
// server persisted. The zero value means "no password set". Construction goes
// through NewPlainSecret or NewSealedSecret so the two cases can never be
// populated at the same time.
type Secret struct {
	plain  string
	sealed string
}

// NewPlainSecret wraps a freshly entered plaintext password.
func NewPlainSecret(plaintext string) Secret {
	return Secret{plain: plaintext}
}

// NewSealedSecret wraps a ciphertext as persisted by the server. The value is
// opaque; it travels on the wire under the encrypted_password key.
func NewSealedSecret(ciphertext string) Secret {
	return Secret{sealed: ciphertext}
}

// IsZero reports whether no password is set in either representation.
func (s Secret) IsZero() bool {
	return s.plain == "" && s.sealed == ""
}

// IsPlain reports whether the secret holds a plaintext password that has not
// been sealed yet.
func (s Secret) IsPlain() bool {
	return s.plain != ""
}

// Plain returns the plaintext password, or "" when the secret is sealed or empty.
func (s Secret) Plain() string {
	return s.plain
}

// Sealed returns the ciphertext, or "" when the secret is plaintext or empty.
func (s Secret) Sealed() string {
	return s.sealed
}

// secretFromWire builds a Secret from the two mutually exclusive wire fields.
// Returns ErrConflictingPassword when both are non-empty.
func secretFromWire(password, encryptedPassword string) (Secret, error) {
	if password != "" && encryptedPassword != "" {
		return Secret{}, ErrConflictingPassword
	}
	if password != "" {
		return NewPlainSecret(password), nil
	}
	return NewSealedSecret(encryptedPassword), nil
}

// wireFields returns the (password, encrypted_password) pair for
// serialization. At most one of the two is non-empty.
func (s Secret) wireFields() (password, encryptedPassword string) {
	return s.plain, s.sealed
}
