// Package activity turns user-interaction signals into a single
// "user is present" notification.
package activity

import (
	"errors"
	"fmt"
	"time"
)

// Kind is an interaction signal reported by a dashboard.
type Kind string

const (
	PointerPress Kind = "pointer-press"
	KeyPress     Kind = "key-press"
	Scroll       Kind = "scroll"
	TouchStart   Kind = "touch-start"
)

// DefaultKinds are the signals that count as user presence.
var DefaultKinds = []Kind{PointerPress, KeyPress, Scroll, TouchStart}

var ErrUnknownKind = errors.New("activity: unknown signal kind")

// ParseKind validates a signal kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case PointerPress, KeyPress, Scroll, TouchStart:
		return k, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// Signal is one delivered interaction.
type Signal struct {
	Kind Kind
	At   time.Time
}

// SubscriptionID identifies a handler registered with a SignalSource.
type SubscriptionID int

// SignalSource delivers signals of a given kind to subscribed handlers.
type SignalSource interface {
	Subscribe(kind Kind, fn func(Signal)) SubscriptionID
	Unsubscribe(kind Kind, id SubscriptionID)
}
