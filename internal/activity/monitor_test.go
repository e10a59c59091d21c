package activity

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource records subscribe/unsubscribe calls.
type fakeSource struct {
	mu          sync.Mutex
	next        SubscriptionID
	handlers    map[SubscriptionID]func(Signal)
	kinds       map[SubscriptionID]Kind
	subscribes  int
	unsubscribe int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		handlers: make(map[SubscriptionID]func(Signal)),
		kinds:    make(map[SubscriptionID]Kind),
	}
}

func (f *fakeSource) Subscribe(kind Kind, fn func(Signal)) SubscriptionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.handlers[f.next] = fn
	f.kinds[f.next] = kind
	f.subscribes++
	return f.next
}

func (f *fakeSource) Unsubscribe(kind Kind, id SubscriptionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kinds[id] == kind {
		delete(f.handlers, id)
		delete(f.kinds, id)
	}
	f.unsubscribe++
}

func (f *fakeSource) emit(kind Kind) {
	f.mu.Lock()
	var fns []func(Signal)
	for id, fn := range f.handlers {
		if f.kinds[id] == kind {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(Signal{Kind: kind})
	}
}

func (f *fakeSource) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func TestMonitorSubscribesEveryKind(t *testing.T) {
	src := newFakeSource()
	m := NewMonitor(src, nil)

	calls := 0
	require.NoError(t, m.Start(func() { calls++ }))
	assert.Equal(t, len(DefaultKinds), src.live())

	for _, k := range DefaultKinds {
		src.emit(k)
	}
	assert.Equal(t, len(DefaultKinds), calls)
}

func TestMonitorStopIsSymmetric(t *testing.T) {
	src := newFakeSource()
	m := NewMonitor(src, []Kind{KeyPress, Scroll, KeyPress})
	assert.Equal(t, []Kind{KeyPress, Scroll}, m.Kinds())

	require.NoError(t, m.Start(func() {}))
	assert.Equal(t, 2, src.subscribes)

	m.Stop()
	m.Stop()
	assert.Equal(t, 0, src.live())
	assert.Equal(t, 2, src.unsubscribe, "stop must unsubscribe exactly once per kind")
}

func TestMonitorNoCallbacksAfterStop(t *testing.T) {
	src := newFakeSource()
	m := NewMonitor(src, nil)

	calls := 0
	require.NoError(t, m.Start(func() { calls++ }))

	// Capture a handler as if a delivery were already in flight.
	src.mu.Lock()
	var inflight func(Signal)
	for _, fn := range src.handlers {
		inflight = fn
		break
	}
	src.mu.Unlock()

	m.Stop()
	for _, k := range DefaultKinds {
		src.emit(k)
	}
	inflight(Signal{Kind: KeyPress})
	assert.Equal(t, 0, calls)
}

func TestMonitorStopWaitsForRunningCallback(t *testing.T) {
	src := newFakeSource()
	m := NewMonitor(src, []Kind{KeyPress})

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, m.Start(func() {
		close(entered)
		<-release
		finished.Store(true)
	}))

	go src.emit(KeyPress)
	<-entered

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a callback was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the callback finished")
	}
	assert.True(t, finished.Load(), "callback must complete before Stop returns")
	assert.Equal(t, 0, src.live())
}

func TestMonitorStartStopWithoutActivity(t *testing.T) {
	src := newFakeSource()
	m := NewMonitor(src, nil)
	calls := 0
	require.NoError(t, m.Start(func() { calls++ }))
	m.Stop()
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, src.live())
}

func TestMonitorStartTwice(t *testing.T) {
	m := NewMonitor(newFakeSource(), nil)
	require.NoError(t, m.Start(func() {}))
	err := m.Start(func() {})
	assert.True(t, errors.Is(err, ErrAlreadyStarted))

	m.Stop()
	err = m.Start(func() {})
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestMonitorIgnoresUnobservedKinds(t *testing.T) {
	src := newFakeSource()
	m := NewMonitor(src, []Kind{KeyPress})
	calls := 0
	require.NoError(t, m.Start(func() { calls++ }))
	src.emit(Scroll)
	src.emit(KeyPress)
	assert.Equal(t, 1, calls)
}

func TestParseKind(t *testing.T) {
	for _, k := range DefaultKinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("hover")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}
