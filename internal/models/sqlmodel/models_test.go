package sqlmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/internal/models/common"
)

func TestSessionRecordConversion(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	session := &common.Session{
		ID:            "1432223823564439552",
		Path:          common.PathEcdh,
		IsSuccess:     true,
		VKey:          "0xabc",
		KeyGeneration: "7f1c1a9e-8f0e-4d57-bb26-3e3e3c0f9a10",
		TimeStarted:   now,
		TimeFinished:  now.Add(time.Second),
	}

	record, err := NewSessionRecordFromModel(session)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, int64(1432223823564439552), record.ID)
	assert.Equal(t, "ECDH", record.Path)

	assert.Equal(t, session, record.ToModel())
}

func TestSessionRecordRejectsBadInput(t *testing.T) {
	_, err := NewSessionRecordFromModel(&common.Session{ID: "not-a-number", Path: common.PathTimeLock})
	assert.Error(t, err)

	_, err = NewSessionRecordFromModel(&common.Session{ID: "1", Path: "other"})
	assert.Error(t, err)
}
