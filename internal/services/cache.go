package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Redis key layout shared by handlers, the worker pool and the WebSocket hub.
const (
	// TipQueue is the list the worker pool BLPOPs tip-generation jobs from.
	TipQueue = "queue:tip-generation"

	// TipCacheTTL bounds how long pre-generated tips stay around. Tips are
	// per-session, so there is no point outliving the session cookie window.
	TipCacheTTL = 24 * time.Hour
)

// ExtractionCacheKey keys cached extraction results by file content, so the
// same syllabus uploaded twice (by anyone) skips Gemini entirely.
func ExtractionCacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return "extract:" + hex.EncodeToString(sum[:])
}

// TipCacheKey keys pre-generated study tips per session and deadline event.
func TipCacheKey(sessionID uuid.UUID, title, date string) string {
	sum := sha256.Sum256([]byte(title + "|" + date))
	return fmt.Sprintf("tips:%s:%s", sessionID, hex.EncodeToString(sum[:16]))
}

// SessionChannel is the pub/sub channel job updates for a session go out on.
func SessionChannel(sessionID uuid.UUID) string {
	return "session_updates:" + sessionID.String()
}
