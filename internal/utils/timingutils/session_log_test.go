package timingutils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionFileLogger(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "sessions.log")

	for i, sessionErr := range []error{nil, fmt.Errorf("proving failed")} {
		l, err := NewSessionFileLogger(filename, fmt.Sprintf("s%v", i), "timelock")
		if isNoError := assert.NoError(t, err); !isNoError {
			t.FailNow()
		}

		assert.NoError(t, l.LogStart())
		assert.NoError(t, l.LogEnd(sessionErr))
		assert.NoError(t, l.Close())
	}

	f, err := os.Open(filename)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	defer f.Close()

	entries, err := ReadSessionLog(f)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Len(t, entries, 4)
	assert.Equal(t, "s0", entries[0].SessionID)
	assert.Equal(t, EventStart, entries[0].Event)
	assert.True(t, entries[1].IsSuccess)
	assert.Equal(t, "s1", entries[3].SessionID)
	assert.False(t, entries[3].IsSuccess)
	assert.False(t, entries[1].Timestamp.Before(entries[0].Timestamp))
}

func TestDiscardingSessionLogger(t *testing.T) {
	l, err := NewSessionFileLogger("", "s", "ecdh")
	assert.NoError(t, err)
	assert.NoError(t, l.LogStart())
	assert.NoError(t, l.LogEnd(nil))
	assert.NoError(t, l.Close())
}

func TestParseSessionLogEntry(t *testing.T) {
	_, err := ParseSessionLogEntry("a~b~start~2024-01-01T00:00:00Z")
	assert.Error(t, err)

	_, err = ParseSessionLogEntry("a~b~middle~2024-01-01T00:00:00Z~T")
	assert.Error(t, err)

	e, err := ParseSessionLogEntry("a~ecdh~end~2024-01-01T00:00:00Z~F")
	assert.NoError(t, err)
	assert.Equal(t, "ecdh", e.Path)
	assert.False(t, e.IsSuccess)
}
