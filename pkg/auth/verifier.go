package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Role is the access level granted at login.
type Role string

// Roles.
const (
	RoleAdmin     Role = "admin"
	RoleOutsource Role = "outsource"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOutsource
}

// Sentinel errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthentication     = errors.New("not logged in or session expired")
	ErrAuthorization      = errors.New("insufficient permissions")
)

// Credential is one configured username/password pair.
type Credential struct {
	Username string
	Password string // plaintext or bcrypt hash
}

// Verifier checks login attempts against the admin and outsource pairs.
type Verifier struct {
	pairs []rolePair
}

type rolePair struct {
	role Role
	cred Credential
}

// NewVerifier creates a verifier. The admin pair is consulted first.
func NewVerifier(admin, outsource Credential) *Verifier {
	return &Verifier{pairs: []rolePair{
		{role: RoleAdmin, cred: admin},
		{role: RoleOutsource, cred: outsource},
	}}
}

// Verify returns the role of the first pair matching username and password.
func (v *Verifier) Verify(username, password string) (Role, bool) {
	if username == "" {
		return "", false
	}
	for _, p := range v.pairs {
		if p.cred.Username == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(p.cred.Username), []byte(username)) != 1 {
			continue
		}
		if passwordMatches(p.cred.Password, password) {
			return p.role, true
		}
	}
	return "", false
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func passwordMatches(stored, given string) bool {
	if stored == "" {
		return false
	}
	if IsBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
