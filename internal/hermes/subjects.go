package hermes

import (
	"fmt"
	"strings"
)

// Subject hierarchy constants for the Hermes message bus.
const (
	// Session lifecycle subjects.
	SubjectSessionOpened  = "garage.session.%s.opened"
	SubjectSessionTimeout = "garage.session.%s.timeout"
	SubjectSessionClosed  = "garage.session.%s.closed"

	// Activity reported by dashboards: garage.session.<id>.activity.<kind>.
	SubjectSessionActivity = "garage.session.%s.activity.%s"

	// Wildcard patterns for subscriptions.
	SubjectAllActivity = "garage.session.*.activity.*"
	SubjectAllSessions = "garage.session.>"
)

// SessionSubject returns a subject for a specific session event.
func SessionSubject(pattern, sessionID string) string {
	return fmt.Sprintf(pattern, sessionID)
}

// ActivitySubject returns the subject a dashboard publishes activity on.
func ActivitySubject(sessionID, kind string) string {
	return fmt.Sprintf(SubjectSessionActivity, sessionID, kind)
}

// ParseActivitySubject extracts the session ID and signal kind from an
// activity subject.
func ParseActivitySubject(subject string) (sessionID, kind string, ok bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 5 || parts[0] != "garage" || parts[1] != "session" || parts[3] != "activity" {
		return "", "", false
	}
	if parts[2] == "" || parts[4] == "" {
		return "", "", false
	}
	return parts[2], parts[4], true
}
