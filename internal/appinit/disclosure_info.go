package appinit

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/beacon"
	"github.com/zkpoex/disclosure/internal/kex"
	"github.com/zkpoex/disclosure/internal/service"
	yaml "gopkg.in/yaml.v2"
)

// DisclosureInfo is the Go struct for contents in disclosure.yaml.
type DisclosureInfo struct {
	Beacon         *BeaconInfo      `yaml:"beacon"`
	DataDir        string           `yaml:"dataDir"`  // 密钥槽与密文所在目录
	ProofDir       string           `yaml:"proofDir"` // 证明文件所在目录
	Fixtures       *FixturesInfo    `yaml:"fixtures"`
	Prover         *ProverInfo      `yaml:"prover"`
	KeyExchange    *KeyExchangeInfo `yaml:"keyExchange"`
	Ledger         *LedgerInfo      `yaml:"ledger"`
	IPFS           *IPFSInfo        `yaml:"ipfs"`
	Metrics        *MetricsInfo     `yaml:"metrics"`
	Timing         *TimingInfo      `yaml:"timing"`
	Server         *ServerInfo      `yaml:"server"`
	LogLevel       string           `yaml:"logLevel"`
	ShowTimingLogs bool             `yaml:"showTimingLogs"`
}

// BeaconInfo locates the drand chain.
type BeaconInfo struct {
	URL       string `yaml:"url"`       // 信标 HTTP 接口的根地址。也可以在末尾带上链哈希
	ChainHash string `yaml:"chainHash"` // 十六进制。为空时信任接口返回的链信息
	Timeout   string `yaml:"timeout"`   // Go duration string. "0" 表示不限时
}

// FixturesInfo records where the fixtures of both paths are written.
type FixturesInfo struct {
	ZkPoExDir string `yaml:"zkpoexDir"`
	EcdhDir   string `yaml:"ecdhDir"`
}

type ProverInfo struct {
	KeyCacheDir string `yaml:"keyCacheDir"`
	SRS         string `yaml:"srs"` // BN254 KZG SRS 文件。为空时使用不安全的测试 SRS
}

// KeyExchangeInfo selects the curve and the demo keypairs of the peer-targeted path.
type KeyExchangeInfo struct {
	Curve      string           `yaml:"curve"`
	LocalSeed  string           `yaml:"localSeed"`  // 32 字节十六进制
	VendorSeed string           `yaml:"vendorSeed"` // 32 字节十六进制
	Keys       *KeyPairLocation `yaml:"keys"`       // 可选。私钥与对方公钥的 PEM 文件，优先于种子
}

// LedgerInfo enables the MySQL session ledger when DSN is not empty.
type LedgerInfo struct {
	DSN string `yaml:"dsn"`
}

// IPFSInfo enables fixture publication when API is not empty.
type IPFSInfo struct {
	API string `yaml:"api"`
}

type MetricsInfo struct {
	Textfile string `yaml:"textfile"`
}

type TimingInfo struct {
	SessionLog string `yaml:"sessionLog"`
}

// ServerInfo configures the `serve` command.
type ServerInfo struct {
	Port int `yaml:"port"`
}

// Defaults used when a field is absent from the config file.
const (
	DefaultDataDir        = "data"
	DefaultProofDir       = "."
	DefaultZkPoExFixtures = "contracts/src/fixtures"
	DefaultEcdhFixtures   = "fixtures"
	DefaultBeaconTimeout  = "30s"
	DefaultServerPort     = 8081
)

// DefaultDisclosureInfo returns the config used when no config file is present.
func DefaultDisclosureInfo() *DisclosureInfo {
	ret := &DisclosureInfo{}
	ret.applyDefaults()
	return ret
}

// LoadDisclosureInfo loads the config file (in YAML). Absent fields take their defaults.
//
// Parameters:
//   the path to the config file
//
// Returns:
//   the `DisclosureInfo` struct
func LoadDisclosureInfo(configFilePath string) (ret *DisclosureInfo, err error) {
	yamlStr, err := ioutil.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "读取配置文件失败")
		return
	}

	ret = &DisclosureInfo{}
	err = yaml.Unmarshal(yamlStr, ret)
	if err != nil {
		err = errors.Wrap(err, "解析 YAML 文件时出现错误")
		return
	}

	ret.applyDefaults()
	err = ret.Validate()
	return
}

func (info *DisclosureInfo) applyDefaults() {
	if info.Beacon == nil {
		info.Beacon = &BeaconInfo{}
	}
	if info.Beacon.URL == "" {
		info.Beacon.URL = beacon.DefaultURL
		if info.Beacon.ChainHash == "" {
			info.Beacon.ChainHash = beacon.QuicknetChainHash
		}
	}
	if info.Beacon.Timeout == "" {
		info.Beacon.Timeout = DefaultBeaconTimeout
	}

	if info.DataDir == "" {
		info.DataDir = DefaultDataDir
	}
	if info.ProofDir == "" {
		info.ProofDir = DefaultProofDir
	}

	if info.Fixtures == nil {
		info.Fixtures = &FixturesInfo{}
	}
	if info.Fixtures.ZkPoExDir == "" {
		info.Fixtures.ZkPoExDir = DefaultZkPoExFixtures
	}
	if info.Fixtures.EcdhDir == "" {
		info.Fixtures.EcdhDir = DefaultEcdhFixtures
	}

	if info.Prover == nil {
		info.Prover = &ProverInfo{}
	}
	if info.Prover.KeyCacheDir == "" {
		info.Prover.KeyCacheDir = filepath.Join(info.DataDir, "circuits")
	}

	if info.KeyExchange == nil {
		info.KeyExchange = &KeyExchangeInfo{}
	}
	if info.KeyExchange.Curve == "" {
		info.KeyExchange.Curve = kex.CurveSecp256k1
	}

	if info.Ledger == nil {
		info.Ledger = &LedgerInfo{}
	}
	if info.IPFS == nil {
		info.IPFS = &IPFSInfo{}
	}
	if info.Metrics == nil {
		info.Metrics = &MetricsInfo{}
	}
	if info.Timing == nil {
		info.Timing = &TimingInfo{}
	}
	if info.Server == nil {
		info.Server = &ServerInfo{}
	}
	if info.Server.Port == 0 {
		info.Server.Port = DefaultServerPort
	}

	if info.LogLevel == "" {
		info.LogLevel = log.InfoLevel.String()
	}
}

// Validate checks the fields that cannot be defaulted.
func (info *DisclosureInfo) Validate() error {
	if _, err := info.BeaconTimeout(); err != nil {
		return err
	}

	if _, err := kex.ByName(info.KeyExchange.Curve); err != nil {
		return err
	}

	if _, _, err := info.Seeds(); err != nil {
		return err
	}

	if _, err := log.ParseLevel(info.LogLevel); err != nil {
		return errors.Wrapf(err, "无效的日志级别 '%v'", info.LogLevel)
	}

	if info.Server.Port < 0 || info.Server.Port > 65535 {
		return fmt.Errorf("无效的端口号 %v", info.Server.Port)
	}

	return nil
}

// BeaconTimeout parses the beacon HTTP timeout.
func (info *DisclosureInfo) BeaconTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(info.Beacon.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "无效的信标超时时间 '%v'", info.Beacon.Timeout)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("信标超时时间不能为负数")
	}

	return timeout, nil
}

// Seeds returns the local and the vendor seed. An empty seed falls back to the fixed demo seed.
func (info *DisclosureInfo) Seeds() (local [32]byte, vendor [32]byte, err error) {
	local, err = parseSeed(info.KeyExchange.LocalSeed, service.DefaultLocalSeed)
	if err != nil {
		err = errors.Wrap(err, "无效的本地种子")
		return
	}

	vendor, err = parseSeed(info.KeyExchange.VendorSeed, service.DefaultVendorSeed)
	if err != nil {
		err = errors.Wrap(err, "无效的对方种子")
		return
	}

	return
}

func parseSeed(seedHex string, fallback [32]byte) (seed [32]byte, err error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	if seedHex == "" {
		return fallback, nil
	}

	b, err := hex.DecodeString(seedHex)
	if err != nil {
		return
	}
	if len(b) != len(seed) {
		err = fmt.Errorf("种子长度应为 %v 字节，实际为 %v 字节", len(seed), len(b))
		return
	}

	copy(seed[:], b)
	return
}
