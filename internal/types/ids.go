package types

import (
	"time"

	"github.com/google/uuid"
)

// SubsidyID identifies a subsidy program. UUIDv7 time-ordering keeps
// sequential inserts clustered in B-tree indexes.
type SubsidyID string

// MatchRunID identifies one persisted evaluation run of a business
// against the full program catalog.
type MatchRunID string

// NewSubsidyID generates a UUIDv7 subsidy identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSubsidyID() SubsidyID {
	return SubsidyID(uuid.Must(uuid.NewV7()).String())
}

// NewMatchRunID generates a UUIDv7 match run identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewMatchRunID() MatchRunID {
	return MatchRunID(uuid.Must(uuid.NewV7()).String())
}

// ParseMatchRunID validates and converts a string to MatchRunID.
// Rejects malformed UUIDs before they reach a query.
func ParseMatchRunID(s string) (MatchRunID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return MatchRunID(s), nil
}

// MatchRunTime extracts the timestamp embedded in a UUIDv7 run ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func MatchRunTime(id MatchRunID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
