package service

import (
	"context"
	"time"

	"github.com/zkpoex/disclosure/internal/beacon"
	"github.com/zkpoex/disclosure/internal/models/common"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

// TimeLockServiceInterface 定义了时间锁披露的服务的接口
type TimeLockServiceInterface interface {
	// 生成密钥并将其时间锁定至未来的信标轮次，生成证明并持久化全部产物。
	//
	// 参数：
	//   披露请求
	//
	// 返回：
	//   会话结果
	Run(ctx context.Context, req *TimeLockRequest) (*TimeLockResult, error)

	// 在披露轮次到达后，获取该轮次的信标签名并解开时间锁密文。
	//
	// 返回：
	//   对称密钥
	Unlock(ctx context.Context) ([]byte, error)

	// 计算披露时长对应的轮次，不生成密钥也不生成证明。
	//
	// 参数：
	//   披露时长（显式指定轮次时可为 nil）
	//   显式指定的轮次（为 0 时表示未指定）
	//
	// 返回：
	//   披露轮次
	//   信标链信息
	RoundFor(ctx context.Context, d *time.Duration, explicitRound uint64) (uint64, *beacon.ChainInfo, error)
}

// KeyExchangeServiceInterface 定义了点对点（ECDH）披露的服务的接口
type KeyExchangeServiceInterface interface {
	// 载入先前会话生成的密钥，为对方加密并生成证明，持久化测试夹具。
	//
	// 参数：
	//   披露请求
	//
	// 返回：
	//   会话结果
	Run(ctx context.Context, req *KeyExchangeRequest) (*KeyExchangeResult, error)
}

// FixtureServiceInterface 定义了读取测试夹具的服务的接口
type FixtureServiceInterface interface {
	// 读取时间锁披露会话的测试夹具。
	GetZkPoExFixture() (*fixture.ZkPoExFixture, error)

	// 读取点对点披露会话的测试夹具。
	GetEcdhFixture() (*fixture.EcdhFixture, error)
}

// SessionServiceInterface 定义了查询会话账本的服务的接口
type SessionServiceInterface interface {
	// 获取指定会话的记录。
	//
	// 参数：
	//   会话 ID
	//
	// 返回：
	//   会话记录
	GetSession(id string) (*common.Session, error)

	// 按时间倒序列出会话记录。
	//
	// 参数：
	//   披露路径（可为空）
	//   最大条数（不大于 0 时不限制）
	//
	// 返回：
	//   会话记录列表
	ListSessions(path string, limit int) ([]*common.Session, error)
}
