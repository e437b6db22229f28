package errorcode

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSessionErrorResolvesToCode(t *testing.T) {
	err := New(ErrorPersistence, StagePersist, io.ErrShortWrite)
	wrapped := errors.Wrap(err, "无法写入密钥槽")

	assert.Equal(t, ErrorPersistence, errors.Cause(wrapped))
	assert.True(t, errors.Is(wrapped, ErrorPersistence))
	assert.True(t, errors.Is(wrapped, io.ErrShortWrite))
	assert.False(t, errors.Is(wrapped, ErrorKeyNotFound))
	assert.Contains(t, wrapped.Error(), "persist")
}

func TestSessionErrorWithoutCause(t *testing.T) {
	err := New(ErrorInvalidDuration, StageRound, nil)
	assert.Equal(t, "round: "+CodeInvalidDuration, err.Error())
	assert.Equal(t, ErrorInvalidDuration, errors.Cause(err))
}
