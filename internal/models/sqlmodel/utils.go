package sqlmodel

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/zkpoex/disclosure/internal/models/common"
)

func parseSnowflakeStringToInt64(str string) (int64, error) {
	sfID, err := snowflake.ParseString(str)
	if err != nil {
		return 0, err
	}

	return sfID.Int64(), nil
}

func parseInt64ToSnowflakeString(i int64) string {
	return snowflake.ParseInt64(i).String()
}

func getSQLValueFromDisclosurePath(path common.DisclosurePath) (string, error) {
	switch path {
	case common.PathTimeLock:
		return "TIMELOCK", nil
	case common.PathEcdh:
		return "ECDH", nil
	default:
		return "", fmt.Errorf("未知的披露路径 '%v'", path)
	}
}

func getDisclosurePathFromSQLValue(value string) common.DisclosurePath {
	switch value {
	case "TIMELOCK":
		return common.PathTimeLock
	case "ECDH":
		return common.PathEcdh
	default:
		return common.DisclosurePath(value)
	}
}
