package auth

import "errors"

// Authentication failure modes, distinguished so the HTTP layer can map
// them to status codes. Missing/malformed/unknown keys all answer 401 and
// never confirm whether a key exists; revocation answers 403 because the
// key is real but blocked.
var (
	ErrMissingKey       = errors.New("API key required in X-API-Key header")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
)
