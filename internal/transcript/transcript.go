// Package transcript defines the persisted record of a chat session and the
// naming scheme of its stored snapshots.
package transcript

import (
	"strings"
	"time"
	"unicode"
)

// TimeFormat mirrors the millisecond ISO-8601 form browsers emit.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Format renders t in TimeFormat, always in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
	TS   string `json:"ts"`
}

type User struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Transcript is written once per save action and never updated.
type Transcript struct {
	SessionID string    `json:"sessionId"`
	StartedAt string    `json:"startedAt"`
	SavedAt   string    `json:"savedAt"`
	User      User      `json:"user"`
	Messages  []Message `json:"messages"`
	UserAgent string    `json:"userAgent"`
	PageURL   string    `json:"pageUrl"`
}

// FileName derives the object name {first}_{last}_{timestamp}_{session}.json.
// Uniqueness rests on the timestamp and session id pair; nothing checks for
// collisions.
func FileName(firstName, lastName, savedAt, sessionID string) string {
	return strings.Join([]string{
		SanitizePart(firstName),
		SanitizePart(lastName),
		SanitizeTimestamp(savedAt),
		SanitizePart(sessionID),
	}, "_") + ".json"
}

// SanitizePart keeps letters, digits and dashes and turns everything else
// into underscores.
func SanitizePart(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
}

// SanitizeTimestamp makes an ISO-8601 timestamp safe for file names.
func SanitizeTimestamp(ts string) string {
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(strings.TrimSpace(ts))
	return SanitizePart(ts)
}
