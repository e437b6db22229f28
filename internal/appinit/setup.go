package appinit

import (
	"os"
	"path/filepath"

	"github.com/bwmarrin/snowflake"
	ipfs "github.com/ipfs/go-ipfs-api"
	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/internal/beacon"
	"github.com/zkpoex/disclosure/internal/db"
	"github.com/zkpoex/disclosure/internal/global"
	"github.com/zkpoex/disclosure/internal/kex"
	"github.com/zkpoex/disclosure/internal/keymgmt"
	"github.com/zkpoex/disclosure/internal/programs"
	"github.com/zkpoex/disclosure/internal/service"
	"github.com/zkpoex/disclosure/internal/utils/idutils"
	"github.com/zkpoex/disclosure/internal/zkvm/gnarkvm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupLogger configures logrus from the config. Timing logs are printed at debug level, so enabling them also lowers
// the level to debug.
func SetupLogger(info *DisclosureInfo) error {
	level, err := log.ParseLevel(info.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "无效的日志级别 '%v'", info.LogLevel)
	}

	global.ShowTimingLogs = info.ShowTimingLogs
	if info.ShowTimingLogs && level < log.DebugLevel {
		level = log.DebugLevel
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)

	return nil
}

// SetupSnowflakeNode creates the node session IDs are drawn from. The node is available as `global.SnowflakeNode`.
func SetupSnowflakeNode(nodeID int64) error {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return errors.Wrap(err, "无法创建 Snowflake 节点")
	}
	global.SnowflakeNode = node

	return nil
}

// OpenLedger connects to the MySQL session ledger and migrates its table. It returns nil when no DSN is configured.
func OpenLedger(info *LedgerInfo) (*gorm.DB, error) {
	if info == nil || info.DSN == "" {
		return nil, nil
	}

	ledger, err := gorm.Open(mysql.Open(info.DSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, errors.Wrap(err, "无法连接会话账本数据库")
	}

	if err = db.Migrate(ledger); err != nil {
		return nil, err
	}

	log.Infoln("已连接会话账本数据库")
	return ledger, nil
}

// NewIPFSShell creates an IPFS shell for fixture publication. It returns nil when no API address is configured.
func NewIPFSShell(info *IPFSInfo) *ipfs.Shell {
	if info == nil || info.API == "" {
		return nil
	}

	return ipfs.NewShell(info.API)
}

// Services is everything the commands and controllers need.
type Services struct {
	Info        *service.Info
	Curve       kex.Curve
	TimeLock    *service.TimeLockService
	KeyExchange *service.KeyExchangeService
	Fixture     *service.FixtureService
	Session     *service.SessionService
}

// BuildServices wires one session's worth of services from the config. Every session gets a fresh snowflake ID.
func BuildServices(info *DisclosureInfo) (*Services, error) {
	curve, err := kex.ByName(info.KeyExchange.Curve)
	if err != nil {
		return nil, err
	}

	timeout, err := info.BeaconTimeout()
	if err != nil {
		return nil, err
	}

	sessionID, err := idutils.GenerateSnowflakeId()
	if err != nil {
		return nil, err
	}

	ledger, err := OpenLedger(info.Ledger)
	if err != nil {
		return nil, err
	}

	drandClient, err := beacon.NewHTTPClient(info.Beacon.URL, info.Beacon.ChainHash, timeout)
	if err != nil {
		return nil, err
	}

	store := artifact.NewStore(info.DataDir)
	store.ProofDir = info.ProofDir

	prover := gnarkvm.NewProver(programs.Registry(curve), info.Prover.KeyCacheDir)
	prover.SRSPath = info.Prover.SRS

	serviceInfo := &service.Info{
		SessionID:        sessionID,
		Store:            store,
		ZkPoExFixtureDir: info.Fixtures.ZkPoExDir,
		EcdhFixtureDir:   info.Fixtures.EcdhDir,
		Prover:           prover,
		DB:               ledger,
		IPFSSh:           NewIPFSShell(info.IPFS),
		SessionLogPath:   info.Timing.SessionLog,
	}

	keys := keymgmt.NewCoordinator(keymgmt.NewFileSlot(store), sessionID)

	ret := &Services{
		Info:  serviceInfo,
		Curve: curve,
		TimeLock: &service.TimeLockService{
			ServiceInfo: serviceInfo,
			Beacon:      drandClient,
			Keys:        keys,
		},
		KeyExchange: &service.KeyExchangeService{
			ServiceInfo: serviceInfo,
			Curve:       curve,
			Keys:        keys,
		},
		Fixture: &service.FixtureService{ServiceInfo: serviceInfo},
		Session: &service.SessionService{ServiceInfo: serviceInfo},
	}

	log.Debugf("会话 ID: %v, 数据目录: %v, 证明密钥缓存: %v", sessionID, filepath.Clean(info.DataDir), info.Prover.KeyCacheDir)
	return ret, nil
}
