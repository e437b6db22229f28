package global

import (
	"github.com/bwmarrin/snowflake"
)

var ShowTimingLogs bool // Whether stage timings are logged (at debug level)

var SnowflakeNode *snowflake.Node // Set up once in `appinit`; `idutils` falls back to node 1 when nil
