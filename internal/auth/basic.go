package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"taxgateway/internal/models"
)

var (
	ErrMissingAuth        = errors.New("authorization header is missing")
	ErrMalformedAuth      = errors.New("authorization header is malformed")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const basicScheme = "Basic"

// Verify extracts the credential pair from a Basic authorization header.
func Verify(header string) (models.Credential, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return models.Credential{}, ErrMissingAuth
	}

	scheme, encoded, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, basicScheme) {
		return models.Credential{}, ErrMalformedAuth
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return models.Credential{}, ErrMalformedAuth
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return models.Credential{}, ErrMalformedAuth
	}

	return models.Credential{Username: username, Password: password}, nil
}

// Authorize compares both fields in constant time. Digests are compared
// instead of raw values so the length of the secret does not leak either.
func Authorize(c models.Credential, username, password string) bool {
	userOK := equal(c.Username, username)
	passOK := equal(c.Password, password)
	return userOK&passOK == 1
}

func equal(a, b string) int {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:])
}

// Header renders a credential back into a Basic authorization header value.
func Header(c models.Credential) string {
	raw := c.Username + ":" + c.Password
	return basicScheme + " " + base64.StdEncoding.EncodeToString([]byte(raw))
}

type Verifier struct {
	username string
	password string
}

func NewVerifier(username, password string) *Verifier {
	return &Verifier{username: username, password: password}
}

func (v *Verifier) Authenticate(header string) (models.Credential, error) {
	cred, err := Verify(header)
	if err != nil {
		return models.Credential{}, err
	}
	if !Authorize(cred, v.username, v.password) {
		return models.Credential{}, ErrInvalidCredentials
	}
	return cred, nil
}
