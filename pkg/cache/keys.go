package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// measurementSchema is bumped whenever the measured quantities change meaning.
const measurementSchema = 1

// Hash returns the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MeasurementKey returns the key for the measurement of an artifact whose
// content hash is contentHash.
func MeasurementKey(contentHash string) string {
	return fmt.Sprintf("measurement:v%d:%s", measurementSchema, contentHash)
}
