// Package auth provides HMAC-based API key authentication for the HTTP API.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrimatch/agrimatch/internal/core/store"
)

// keyNameContextKey is the gin context key carrying the authenticated key name.
const keyNameContextKey = "auth_key_name"

// KeyStore is the credential lookup surface the authenticator needs.
// Implemented by *store.Store.
type KeyStore interface {
	GetAPIKeyByHash(keyHash string) (*store.APIKey, error)
	TouchAPIKey(keyHash string) error
}

// Authenticator validates API keys with HMAC-SHA256. Secrets live in an
// in-memory map keyed by secret_id so lookup never touches the database
// for keys signed by an unknown secret.
type Authenticator struct {
	secrets map[string][]byte
	keys    KeyStore
}

// NewAuthenticator creates an authenticator over the environment secrets
// and a key store.
func NewAuthenticator(secrets map[string][]byte, keys KeyStore) *Authenticator {
	return &Authenticator{secrets: secrets, keys: keys}
}

// Authenticate validates a presented API key and returns the stored key name.
func (a *Authenticator) Authenticate(apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	keyHash := ComputeHMAC(secret, apiKey)

	record, err := a.keys.GetAPIKeyByHash(keyHash)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrInvalidKey
	}
	if record.Revoked != 0 {
		return "", ErrKeyRevoked
	}

	// Throttled to one write per minute per key to keep the hot path
	// read-mostly under steady traffic.
	if shouldTouch(record.LastUsedAt) {
		_ = a.keys.TouchAPIKey(keyHash)
	}

	return record.Name, nil
}

func shouldTouch(lastUsedAt *string) bool {
	if lastUsedAt == nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, *lastUsedAt)
	if err != nil {
		return true
	}
	return time.Since(t) > time.Minute
}

// Middleware returns a gin handler that authenticates every request via
// the X-API-Key header and aborts unauthenticated ones.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingKey.Error()})
			return
		}

		keyName, err := a.Authenticate(apiKey)
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			case errors.Is(err, ErrInvalidKeyFormat), errors.Is(err, ErrUnknownKey), errors.Is(err, ErrInvalidKey):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			default:
				// Database failure; do not leak whether the key exists.
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			}
			return
		}

		c.Set(keyNameContextKey, keyName)
		c.Next()
	}
}

// KeyNameFromContext returns the authenticated key name, or empty string.
func KeyNameFromContext(c *gin.Context) string {
	if v, ok := c.Get(keyNameContextKey); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}
