package monitoring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	assert.True(t, called)

	called = false
	SetLogger(nil)
	Logf("test message")
	assert.False(t, called, "no-op logger should not reach the previous callback")
}

func TestWritersForLevel(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		level            string
		ops, diag, trace bool
		wantErr          bool
	}{
		{level: "", ops: true},
		{level: "ops", ops: true},
		{level: "diag", ops: true, diag: true},
		{level: "TRACE", ops: true, diag: true, trace: true},
		{level: "off"},
		{level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			w, err := WritersForLevel(tt.level, &buf)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ops, w.Ops != nil, "ops")
			assert.Equal(t, tt.diag, w.Diag != nil, "diag")
			assert.Equal(t, tt.trace, w.Trace != nil, "trace")
		})
	}
}

func TestWritersFromEnv(t *testing.T) {
	t.Setenv(EnvDebugLog, "diag")

	w, err := WritersFromEnv("")
	require.NoError(t, err)
	assert.NotNil(t, w.Diag)
	assert.Nil(t, w.Trace)

	w, err = WritersFromEnv("trace")
	require.NoError(t, err)
	assert.NotNil(t, w.Trace)
}
