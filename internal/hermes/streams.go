package hermes

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Stream configuration for JetStream.
var StreamConfigs = []jetstream.StreamConfig{
	{
		Name:        "SESSION_EVENTS",
		Description: "Dashboard session lifecycle and activity events",
		Subjects:    []string{SubjectAllSessions},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour, // audit window
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Discard:     jetstream.DiscardOld,
	},
}
