// Package jwtauth verifies session tokens issued by the identity provider.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrUnauthorizedParty = errors.New("token issued for an unauthorized party")
	ErrMissingSubject    = errors.New("token has no subject")
)

// Claims are the session token claims. Subject is the provider user id.
type Claims struct {
	jwt.RegisteredClaims
	AuthorizedParty string `json:"azp,omitempty"`
	SessionID       string `json:"sid,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	OrgRole         string `json:"org_role,omitempty"`
}

// UserID returns the provider user id the token was issued to.
func (c *Claims) UserID() string {
	return c.Subject
}

// Config holds session token verification configuration.
type Config struct {
	Issuer string // e.g., "https://clerk.example.com"
	// AuthorizedParties lists the origins allowed in the azp claim.
	// Empty accepts any party.
	AuthorizedParties []string
	// JWKSURL defaults to <Issuer>/.well-known/jwks.json.
	JWKSURL string
}

// Verifier checks RS256 session tokens against the issuer's JWKS.
type Verifier struct {
	issuer  string
	parties []string
	jwks    *JWKSCache
	leeway  time.Duration
}

// NewVerifier creates a new session token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	issuer := strings.TrimSuffix(strings.TrimSpace(cfg.Issuer), "/")
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if !strings.HasPrefix(issuer, "https://") && !strings.HasPrefix(issuer, "http://") {
		issuer = "https://" + issuer
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	return &Verifier{
		issuer:  issuer,
		parties: cfg.AuthorizedParties,
		jwks:    NewJWKSCache(jwksURL),
		leeway:  5 * time.Second,
	}, nil
}

// Verify verifies a session token and returns its claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("missing kid in token header")
		}
		return v.jwks.GetKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if claims.AuthorizedParty != "" && len(v.parties) > 0 && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedParty, claims.AuthorizedParty)
	}

	return claims, nil
}

// JWKSCache caches the issuer's signing keys.
type JWKSCache struct {
	url        string
	mu         sync.RWMutex
	keys       map[string]any // kid -> public key
	lastFetch  time.Time
	cacheTTL   time.Duration
	minRefresh time.Duration
	httpClient *http.Client
}

// NewJWKSCache creates a new JWKS cache.
func NewJWKSCache(jwksURL string) *JWKSCache {
	return &JWKSCache{
		url:        jwksURL,
		keys:       make(map[string]any),
		cacheTTL:   10 * time.Minute,
		minRefresh: 30 * time.Second,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetKey returns the public key for the given key ID. An unknown kid
// triggers a refetch so rotated keys are picked up before the TTL expires.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (any, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	needsRefresh := time.Since(c.lastFetch) > c.cacheTTL
	c.mu.RUnlock()

	if ok && !needsRefresh {
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		// A stale key beats no key while the endpoint is unreachable.
		if ok {
			slog.WarnContext(ctx, "JWKS refresh failed, using cached key", "error", err)
			return key, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}

	return key, nil
}

// JWKS represents a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if time.Since(c.lastFetch) < c.minRefresh && len(c.keys) > 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := decodeJSON(resp.Body, &jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	newKeys := make(map[string]any)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || (key.Use != "" && key.Use != "sig") {
			continue
		}

		publicKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			slog.WarnContext(ctx, "failed to parse JWKS key", "kid", key.Kid, "error", err)
			continue
		}

		newKeys[key.Kid] = publicKey
	}

	c.keys = newKeys
	c.lastFetch = time.Now()

	return nil
}
