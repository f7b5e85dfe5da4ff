package adcbridge

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeCallbackSafe_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.NotPanics(t, func() {
		invokeCallbackSafe(func(Sample) { panic("boom") }, 12, logger)
	})
	assert.Contains(t, buf.String(), "sample callback panicked")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "sample=12")
}

func TestSampleCallbacks_RunInOrderAfterPanic(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	record := func(tag string) func(Sample) {
		return func(s Sample) {
			mu.Lock()
			got = append(got, tag+s.String())
			mu.Unlock()
		}
	}

	dev := newFakeDevice()
	b := newTestBridge(t, dev,
		WithSampleCallback(record("a")),
		WithSampleCallback(func(Sample) { panic("bad callback") }),
		WithSampleCallback(record("b")),
	)
	startBridge(t, b)

	dev.emit(t, "AD Value: 5")
	dev.emit(t, "noise")
	dev.emit(t, "AD Value: 6")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a5", "b5", "a6", "b6"}, got)
}

func TestSampleCallbacks_RunWithoutSubscriber(t *testing.T) {
	calls := make(chan Sample, 1)
	dev := newFakeDevice()
	startBridge(t, newTestBridge(t, dev, WithSampleCallback(func(s Sample) { calls <- s })))

	dev.emit(t, "AD Value: 99")

	select {
	case s := <-calls:
		assert.Equal(t, Sample(99), s)
	case <-time.After(2 * time.Second):
		t.Fatal("callback not called")
	}
}
