// Package middleware provides HTTP middleware for authentication, request
// identification and rate limiting.
package middleware

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the slice of token claims this service consumes. The
// email claim is what maps a caller onto the user directory; everything
// else rides along for logging.
type IdentityClaims struct {
	Subject  string
	Issuer   string
	Audience []string
	// Email is empty when the token carries no email claim.
	Email string
}

// TokenValidator verifies a raw bearer token and extracts identity claims.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (*IdentityClaims, error)
}

// OIDCValidator verifies tokens against an identity provider's signing keys,
// either discovered from the issuer or fetched from a static JWKS URL.
type OIDCValidator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]struct{}
}

// NewOIDCValidator builds a validator by OIDC discovery on the issuer URL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	return &OIDCValidator{
		verifier:       provider.Verifier(&oidc.Config{ClientID: audience}),
		allowedIssuers: issuerAllowlist(allowedIssuers, issuerURL),
	}, nil
}

// NewOIDCValidatorFromJWKS builds a validator from a JWKS URL, skipping
// discovery. Used when the provider exposes keys but no discovery document.
func NewOIDCValidatorFromJWKS(ctx context.Context, jwksURL, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	verifier := oidc.NewVerifier(issuerURL, keySet, &oidc.Config{ClientID: audience})
	return &OIDCValidator{
		verifier:       verifier,
		allowedIssuers: issuerAllowlist(allowedIssuers, issuerURL),
	}, nil
}

func issuerAllowlist(allowed []string, fallback string) map[string]struct{} {
	issuers := make(map[string]struct{}, len(allowed))
	for _, iss := range allowed {
		issuers[iss] = struct{}{}
	}
	if len(issuers) == 0 && fallback != "" {
		issuers[fallback] = struct{}{}
	}
	return issuers
}

func (v *OIDCValidator) Validate(ctx context.Context, rawToken string) (*IdentityClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if _, ok := v.allowedIssuers[idToken.Issuer]; len(v.allowedIssuers) > 0 && !ok {
		return nil, fmt.Errorf("issuer %q not in allowed list", idToken.Issuer)
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&payload); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	return &IdentityClaims{
		Subject:  idToken.Subject,
		Issuer:   idToken.Issuer,
		Audience: idToken.Audience,
		Email:    payload.Email,
	}, nil
}

// HS256Validator verifies tokens signed with a shared secret. Meant for
// local development and the test suite, not production deployments.
type HS256Validator struct {
	secret []byte
}

func NewHS256Validator(secret string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &HS256Validator{secret: []byte(secret)}, nil
}

type hs256Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (v *HS256Validator) Validate(_ context.Context, rawToken string) (*IdentityClaims, error) {
	var claims hs256Claims
	_, err := jwt.ParseWithClaims(rawToken, &claims,
		func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	return &IdentityClaims{
		Subject:  claims.Subject,
		Issuer:   claims.Issuer,
		Audience: []string(claims.Audience),
		Email:    claims.Email,
	}, nil
}
