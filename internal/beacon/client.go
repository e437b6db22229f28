// Package beacon fetches chain parameters and round signatures from a drand randomness beacon.
package beacon

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	drandlog "github.com/drand/drand/v2/common/log"
	drandhttp "github.com/drand/go-clients/client/http"
	"github.com/drand/go-clients/drand"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/rounds"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// The public drand HTTP relay and the hash of its quicknet chain (unchained BLS signatures on G1, 3s rounds).
const (
	DefaultURL        = "https://api.drand.sh"
	QuicknetChainHash = "52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e971"
)

// Signature schemes the time-lock binder can work with. Both sign the round on G1 with the group key on G2; they
// differ only in the hash-to-curve domain separation tag.
const (
	SchemeUnchainedG1      = "bls-unchained-g1-rfc9380"
	SchemeUnchainedOnG1Old = "bls-unchained-on-g1"
)

// ErrRoundNotReached is returned by Round when the beacon has not produced the round yet.
var ErrRoundNotReached = errors.New("该轮次尚未产生")

// ChainInfo describes one beacon chain. It is trusted input.
type ChainInfo struct {
	PublicKey   []byte
	Period      time.Duration
	GenesisTime uint64 // Unix seconds
	Hash        string
	GroupHash   string
	SchemeID    string
	BeaconID    string
}

// Schedule returns the round emission schedule of the chain.
func (ci *ChainInfo) Schedule() rounds.Schedule {
	return rounds.Schedule{Period: ci.Period, Genesis: ci.GenesisTime}
}

// Validate checks that the info is usable for time-lock binding.
func (ci *ChainInfo) Validate() error {
	if len(ci.PublicKey) == 0 {
		return fmt.Errorf("链信息中缺少公钥")
	}

	if ci.Period < time.Second {
		return fmt.Errorf("无效的轮次周期 %v", ci.Period)
	}

	if ci.SchemeID != "" && ci.SchemeID != SchemeUnchainedG1 && ci.SchemeID != SchemeUnchainedOnG1Old {
		return fmt.Errorf("不支持的签名方案 %v", ci.SchemeID)
	}

	return nil
}

// RoundResult is one produced round.
type RoundResult struct {
	Round      uint64
	Randomness []byte
	Signature  []byte
}

// Client is the beacon collaborator.
type Client interface {
	ChainInfo(ctx context.Context) (*ChainInfo, error)
	Round(ctx context.Context, round uint64) (*RoundResult, error)
}

// HTTPClient reads one chain through a drand HTTP relay. The relay is contacted on first use, not on creation.
type HTTPClient struct {
	URL       string
	ChainHash []byte        // nil trusts whatever chain the relay serves
	Timeout   time.Duration // zero leaves requests unbounded

	mu     sync.Mutex
	client drand.Client
}

// NewHTTPClient creates a client for the chain `chainHash` (hex) served at `url`. The URL may also end with the chain
// hash, as the chain URLs printed by drand do.
func NewHTTPClient(url string, chainHash string, timeout time.Duration) (*HTTPClient, error) {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 && isChainHash(url[i+1:]) {
		if chainHash != "" && !strings.EqualFold(chainHash, url[i+1:]) {
			return nil, fmt.Errorf("信标地址中的链哈希 %v 与配置的链哈希 %v 不一致", url[i+1:], chainHash)
		}
		url, chainHash = url[:i], url[i+1:]
	}

	ret := &HTTPClient{URL: url, Timeout: timeout}
	if chainHash != "" {
		if !isChainHash(chainHash) {
			return nil, fmt.Errorf("无效的链哈希 '%v'", chainHash)
		}
		ret.ChainHash, _ = hex.DecodeString(chainHash)
	}

	return ret, nil
}

func isChainHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// ChainInfo fetches the chain parameters. Any failure maps to `errorcode.ErrorBeaconUnavailable`.
func (c *HTTPClient) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.connect(ctx)
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, err)
	}

	raw, err := client.Info(ctx)
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, errors.Wrap(err, "无法获取链信息"))
	}

	publicKey, err := raw.PublicKey.MarshalBinary()
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, errors.Wrap(err, "无法序列化信标公钥"))
	}

	info := &ChainInfo{
		PublicKey:   publicKey,
		Period:      raw.Period,
		GenesisTime: uint64(raw.GenesisTime),
		Hash:        hex.EncodeToString(raw.Hash()),
		GroupHash:   hex.EncodeToString(raw.GenesisSeed),
		SchemeID:    raw.Scheme,
		BeaconID:    raw.ID,
	}
	if err = info.Validate(); err != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, err)
	}

	log.Debugf("信标链 %v: 周期 %v, 创世时间 %v", info.Hash, info.Period, info.GenesisTime)
	return info, nil
}

// Round fetches the signature of a round. A round in the future yields `ErrRoundNotReached` wrapped in
// `errorcode.ErrorBeaconUnavailable`.
func (c *HTTPClient) Round(ctx context.Context, round uint64) (*RoundResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, err := c.connect(ctx)
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, err)
	}

	if current := client.RoundAt(time.Now()); round > current {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon,
			errors.Wrapf(ErrRoundNotReached, "请求轮次 %v，当前轮次 %v", round, current))
	}

	result, err := client.Get(ctx, round)
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, errors.Wrapf(err, "无法获取轮次 %v", round))
	}

	if result.GetRound() != round {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, fmt.Errorf("请求轮次 %v，得到轮次 %v", round, result.GetRound()))
	}

	return &RoundResult{Round: round, Randomness: result.GetRandomness(), Signature: result.GetSignature()}, nil
}

// Close releases the underlying drand client.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	return err
}

func (c *HTTPClient) connect(ctx context.Context) (drand.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := drandhttp.New(ctx, drandlog.DefaultLogger(), c.URL+"/", c.ChainHash, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "无法连接信标 %v", c.URL)
	}
	c.client = client

	return client, nil
}

func (c *HTTPClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.Timeout)
}
