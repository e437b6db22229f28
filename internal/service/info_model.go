package service

import (
	ipfs "github.com/ipfs/go-ipfs-api"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/internal/zkvm"
	"gorm.io/gorm"
)

// Info holds what every disclosure service shares: where artifacts go, who proves, and the optional ledger and
// IPFS node.
type Info struct {
	SessionID        string
	Store            *artifact.Store
	ZkPoExFixtureDir string
	EcdhFixtureDir   string
	Prover           zkvm.Prover
	DB               *gorm.DB    // 可为 nil，此时不记录会话账本
	IPFSSh           *ipfs.Shell // 可为 nil，此时不上传测试夹具
	SessionLogPath   string      // 可为空，此时不写会话时间戳日志
}
