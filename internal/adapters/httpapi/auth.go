package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// Authenticator holds the shared API token and the admin gate
type Authenticator struct {
	apiToken          string
	adminPassword     string
	adminPasswordHash string
}

// NewAuthenticator creates an authenticator. An empty apiToken enables the
// local-dev bypass: every request passes token auth.
func NewAuthenticator(apiToken, adminPassword, adminPasswordHash string) *Authenticator {
	return &Authenticator{
		apiToken:          apiToken,
		adminPassword:     adminPassword,
		adminPasswordHash: strings.ToLower(adminPasswordHash),
	}
}

// CheckToken verifies the x-api-token header in constant time
func (a *Authenticator) CheckToken(r *http.Request) bool {
	if a.apiToken == "" {
		return true
	}
	supplied := r.Header.Get("x-api-token")
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(a.apiToken)) == 1
}

// CheckAdmin verifies the admin_override password against the configured
// plaintext or SHA-256 gate. With neither configured no request is admin.
func (a *Authenticator) CheckAdmin(password string) bool {
	if password == "" {
		return false
	}
	if a.adminPasswordHash != "" {
		digest := sha256.Sum256([]byte(password))
		supplied := hex.EncodeToString(digest[:])
		return subtle.ConstantTimeCompare([]byte(supplied), []byte(a.adminPasswordHash)) == 1
	}
	if a.adminPassword != "" {
		return subtle.ConstantTimeCompare([]byte(password), []byte(a.adminPassword)) == 1
	}
	return false
}
