package common

import "time"

// DisclosurePath 表示披露路径
type DisclosurePath string

const (
	// PathTimeLock 为时间锁披露路径
	PathTimeLock DisclosurePath = "timelock"
	// PathEcdh 为点对点（ECDH）披露路径
	PathEcdh DisclosurePath = "ecdh"
)

// Session 表示一次披露会话的记录
type Session struct {
	ID            string         `json:"id"`            // 会话 ID（Snowflake ID）
	Path          DisclosurePath `json:"path"`          // 披露路径
	IsSuccess     bool           `json:"isSuccess"`     // 会话是否成功
	FailedStage   string         `json:"failedStage"`   // 失败的阶段。成功时为空。
	ErrorMessage  string         `json:"errorMessage"`  // 错误信息。成功时为空。
	Round         uint64         `json:"round"`         // 披露轮次。仅时间锁路径有值。
	VKey          string         `json:"vkey"`          // 验证密钥标识
	KeyGeneration string         `json:"keyGeneration"` // 所用密钥的代标识
	FixturePath   string         `json:"fixturePath"`   // 测试夹具路径
	FixtureDigest string         `json:"fixtureDigest"` // 测试夹具的摘要（SHA-256 的 Base64 编码）
	FixtureCID    string         `json:"fixtureCID"`    // 测试夹具在 IPFS 上的 CID。未上传时为空。
	TimeStarted   time.Time      `json:"timeStarted"`   // 会话开始时间
	TimeFinished  time.Time      `json:"timeFinished"`  // 会话结束时间
}
