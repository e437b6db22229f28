package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func readTextfile(t *testing.T) string {
	filename := filepath.Join(t.TempDir(), "disclosure.prom")
	if isNoError := assert.NoError(t, WriteTextfile(filename)); !isNoError {
		t.FailNow()
	}

	b, err := os.ReadFile(filename)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return string(b)
}

func TestRecordSession(t *testing.T) {
	RecordSession("record-test", fmt.Errorf("boom"))
	RecordSession("record-test", nil)
	RecordSession("record-test", nil)

	text := readTextfile(t)
	assert.Contains(t, text, `disclosure_sessions_total{outcome="failure",path="record-test"} 1`)
	assert.Contains(t, text, `disclosure_sessions_total{outcome="success",path="record-test"} 2`)
}

func TestObserveStage(t *testing.T) {
	ObserveStage("timelock", "prove", 2*time.Second)

	assert.Contains(t, readTextfile(t), `disclosure_stage_duration_seconds_count{path="timelock",stage="prove"}`)
	assert.NoError(t, WriteTextfile(""))
}
