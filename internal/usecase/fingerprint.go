package usecase

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// NormalizeMessage lowercases the message and collapses runs of whitespace
// so trivially different phrasings of the same text fingerprint equally.
func NormalizeMessage(message string) string {
	return strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

// Fingerprint derives the cache key from the normalized message text and
// the resolved model id.
func Fingerprint(message, modelID string) string {
	h := sha256.New()
	h.Write([]byte(NormalizeMessage(message)))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	return fmt.Sprintf("%x", h.Sum(nil))
}
