package idutils

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/global"
)

// GenerateSnowflakeId generates a session ID.
func GenerateSnowflakeId() (string, error) {
	sfNode := global.SnowflakeNode
	if sfNode == nil {
		var err error
		sfNode, err = snowflake.NewNode(1)
		if err != nil {
			return "", errors.Wrap(err, "无法生成 ID")
		}
	}

	id := sfNode.Generate().String()
	return id, nil
}
