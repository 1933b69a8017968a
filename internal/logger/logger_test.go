package logger

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		expectLog bool
	}{
		{
			name:      "logs when PORTCTL_DEBUG is set",
			envValue:  "1",
			expectLog: true,
		},
		{
			name:      "logs when PORTCTL_DEBUG is any value",
			envValue:  "true",
			expectLog: true,
		},
		{
			name:      "does not log when PORTCTL_DEBUG is empty",
			envValue:  "",
			expectLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			t.Setenv(DebugEnv, tt.envValue)

			l := NewEnvLogger("[test]")
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := NewEnvLogger("[bus]")
	l.Info("hello %d", 1)
	l.Warn("careful")
	l.Error("broken")

	out := buf.String()
	assert.Contains(t, out, "[bus] hello 1")
	assert.Contains(t, out, "[bus] WARN: careful")
	assert.Contains(t, out, "[bus] ERROR: broken")
}

func TestNoop(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := Noop()
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Debug("dbg %s", "x")
	l.Warn("unhandled method %s", "onBogus")

	msgs := l.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, LogMessage{Level: "debug", Message: "dbg x"}, msgs[0])
	assert.True(t, l.HasLevel("warn"))
	assert.False(t, l.HasLevel("error"))
	assert.True(t, l.Contains("warn", "onBogus"))
	assert.False(t, l.Contains("debug", "onBogus"))

	l.Clear()
	assert.Empty(t, l.Messages())
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info("msg %d", i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, l.Messages(), 20)
}

func TestDefaultAndSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	buf := NewBufferLogger()
	SetDefault(buf)
	assert.Same(t, buf, Default())

	assert.Same(t, buf, OrDefault(nil))
	other := Noop()
	assert.Equal(t, other, OrDefault(other))
}
