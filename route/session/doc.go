// Package session keeps solver sessions: a loaded puzzle plus the results
// solved for it, addressed by a short case-insensitive ID.
//
// Sessions live in memory and, when a SessionPersistence is configured, are
// written through to storage on creation and after each solve. A session
// evicted by CleanupExpiredSessions is reloaded transparently on next Get.
package session
