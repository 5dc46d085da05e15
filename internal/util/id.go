package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a UUID string used for entity identifiers.
func NewID() string {
	return uuid.NewString()
}

// NewRequestID returns a short hex string used to correlate request logs.
func NewRequestID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
