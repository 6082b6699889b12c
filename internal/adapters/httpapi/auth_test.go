package httpapi_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/quadrant-go/internal/adapters/httpapi"
)

func TestAuthenticator_EmptyTokenBypasses(t *testing.T) {
	auth := httpapi.NewAuthenticator("", "", "")

	r := httptest.NewRequest("POST", "/move", nil)

	assert.True(t, auth.CheckToken(r))
}

func TestAuthenticator_CheckToken(t *testing.T) {
	auth := httpapi.NewAuthenticator("secret-token", "", "")

	valid := httptest.NewRequest("POST", "/move", nil)
	valid.Header.Set("x-api-token", "secret-token")
	assert.True(t, auth.CheckToken(valid))

	invalid := httptest.NewRequest("POST", "/move", nil)
	invalid.Header.Set("x-api-token", "wrong")
	assert.False(t, auth.CheckToken(invalid))

	missing := httptest.NewRequest("POST", "/move", nil)
	assert.False(t, auth.CheckToken(missing))
}

func TestAuthenticator_CheckAdminPlaintext(t *testing.T) {
	auth := httpapi.NewAuthenticator("", "hunter2", "")

	assert.True(t, auth.CheckAdmin("hunter2"))
	assert.False(t, auth.CheckAdmin("hunter3"))
	assert.False(t, auth.CheckAdmin(""))
}

func TestAuthenticator_CheckAdminHash(t *testing.T) {
	// SHA-256("hunter2")
	digest := "f52fbd32b2b3b86ff88ef6c490628285f482af15ddcb29541f94bcf526a3f6c7"
	auth := httpapi.NewAuthenticator("", "", digest)

	assert.True(t, auth.CheckAdmin("hunter2"))
	assert.False(t, auth.CheckAdmin("hunter3"))
}

func TestAuthenticator_HashTakesPrecedence(t *testing.T) {
	// With both configured the hash wins, so the plaintext value no longer
	// opens the gate unless it hashes to the digest
	digest := "f52fbd32b2b3b86ff88ef6c490628285f482af15ddcb29541f94bcf526a3f6c7"
	auth := httpapi.NewAuthenticator("", "other-password", digest)

	assert.True(t, auth.CheckAdmin("hunter2"))
	assert.False(t, auth.CheckAdmin("other-password"))
}

func TestAuthenticator_NoAdminGateConfigured(t *testing.T) {
	auth := httpapi.NewAuthenticator("", "", "")

	assert.False(t, auth.CheckAdmin("anything"))
}
