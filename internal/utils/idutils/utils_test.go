package idutils

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/internal/global"
)

func TestGenerateSnowflakeId(t *testing.T) {
	id1, err := GenerateSnowflakeId()
	assert.NoError(t, err)

	node, err := snowflake.NewNode(3)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	global.SnowflakeNode = node
	defer func() { global.SnowflakeNode = nil }()

	id2, err := GenerateSnowflakeId()
	assert.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	parsed, err := snowflake.ParseString(id2)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), parsed.Node())
}
