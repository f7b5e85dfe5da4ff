package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdvertiser_Validation(t *testing.T) {
	_, err := NewAdvertiser(Config{})
	require.ErrorContains(t, err, "port must be between 1 and 65535")

	_, err = NewAdvertiser(Config{Port: 70000})
	require.Error(t, err)
}

func TestNewAdvertiser_DefaultInstance(t *testing.T) {
	a, err := NewAdvertiser(Config{Port: 8080})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a.Instance(), "adcbridge"), a.Instance())
}

func TestNewAdvertiser_TruncatesInstance(t *testing.T) {
	a, err := NewAdvertiser(Config{Port: 8080, Instance: strings.Repeat("x", 100)})
	require.NoError(t, err)
	assert.Len(t, a.Instance(), MaxInstanceNameLen)
}

func TestTXT(t *testing.T) {
	a, err := NewAdvertiser(Config{Port: 8080, Path: "/ws", Device: "/dev/ttyUSB0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"txtvers=1", "path=/ws", "device=/dev/ttyUSB0"}, a.TXT())

	a, err = NewAdvertiser(Config{Port: 8080})
	require.NoError(t, err)
	assert.Equal(t, []string{"txtvers=1"}, a.TXT())
}

func TestAdvertise_UnknownInterface(t *testing.T) {
	a, err := NewAdvertiser(Config{Port: 8080, Interface: "does-not-exist0"})
	require.NoError(t, err)

	require.ErrorContains(t, a.Advertise(), `interface "does-not-exist0"`)
}

func TestShutdown_WithoutAdvertise(t *testing.T) {
	a, err := NewAdvertiser(Config{Port: 8080})
	require.NoError(t, err)

	// no-op, must not panic
	a.Shutdown()
	a.Shutdown()
}
