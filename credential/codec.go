// Package credential issues and verifies the signed, time-limited tokens
// that carry identity claims between the blog server and its clients.
// Verification is stateless: everything needed to trust a credential is in
// the credential itself.
package credential

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrInvalidCredential is returned by Verify for every failure mode:
// bad signature, malformed payload, unexpected algorithm, missing claims,
// or expiry. Callers must not be able to distinguish which check failed.
var ErrInvalidCredential = errors.New("invalid or expired credential")

// DefaultTTL is the credential lifetime applied when none is configured.
const DefaultTTL = time.Hour

// Codec signs and verifies credentials for a single shared secret.
type Codec struct {
	signer  Signer
	ttl     time.Duration
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// CodecOption defines a function type to modify the Codec instance.
type CodecOption func(*Codec)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// WithTTL overrides the default credential lifetime.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		c.ttl = ttl
	}
}

// NewCodec creates a Codec signing with the given secret. An empty secret
// is a misconfiguration and fails here, at startup, rather than per request.
func NewCodec(secret string, options ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("[NewCodec] signing secret is required")
	}

	codec := &Codec{
		signer:  NewHMACSigner(secret),
		ttl:     DefaultTTL,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(codec)
	}

	return codec, nil
}

// TTL returns the configured credential lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue stamps the claim with issue and expiry times and returns the signed,
// encoded credential.
func (c *Codec) Issue(claim Claim) (string, error) {
	now := c.nowTime()
	claims := jwtlib.MapClaims{
		"userId":   claim.SubjectID,
		"username": claim.Username,
		"role":     string(claim.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(c.ttl).Unix(),
		"jti":      uuid.New().String(),
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.Issue] signer.Sign")
	}
	return signed, nil
}

// Verify validates the credential's signature and expiry and extracts its
// claim. Any failure returns ErrInvalidCredential; the claim of a rejected
// credential must never be acted upon.
func (c *Codec) Verify(token string) (Claim, error) {
	parsed, err := jwtlib.Parse(token, c.signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwtlib.WithTimeFunc(c.nowTime),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Claim{}, ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claim{}, ErrInvalidCredential
	}

	subjectID, _ := claims["userId"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if subjectID == "" || username == "" {
		return Claim{}, ErrInvalidCredential
	}

	return Claim{
		SubjectID: subjectID,
		Username:  username,
		Role:      ParseRole(role),
	}, nil
}
