package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential check errors.
var (
	// ErrNoCredential indicates the request carried no token.
	ErrNoCredential = errors.New("missing credential")
	// ErrBadCredential indicates the token failed verification.
	ErrBadCredential = errors.New("invalid credential")
	// ErrUnknownIdentity indicates a valid token for an identity that is
	// not registered with this server.
	ErrUnknownIdentity = errors.New("unknown identity")
)

// Verifier checks client credentials: HMAC-signed JWTs whose subject is
// the client identity.
type Verifier struct {
	secret     []byte
	identities map[string]struct{}
}

// NewVerifier creates a Verifier for the given signing secret.
// If identities is empty, any identity with a valid token is accepted.
func NewVerifier(secret []byte, identities []string) *Verifier {
	v := &Verifier{secret: secret}
	if len(identities) > 0 {
		v.identities = make(map[string]struct{}, len(identities))
		for _, id := range identities {
			v.identities[id] = struct{}{}
		}
	}
	return v
}

// Verify validates the token and returns the identity it asserts.
// Expired, malformed, or wrongly signed tokens fail with
// ErrBadCredential; a subject outside the registered identity set fails
// with ErrUnknownIdentity.
func (v *Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrNoCredential
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadCredential, err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrBadCredential)
	}

	if v.identities != nil {
		if _, ok := v.identities[subject]; !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownIdentity, subject)
		}
	}
	return subject, nil
}

// IssueToken signs a token asserting the given identity, valid for ttl.
func (v *Verifier) IssueToken(identity string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// credentialFromRequest extracts the bearer token from the Authorization
// header, falling back to the "token" query parameter for clients that
// cannot set headers on a WebSocket handshake.
func credentialFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
