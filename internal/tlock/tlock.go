// Package tlock time-locks data to a future round of an unchained drand beacon with github.com/drand/tlock. The
// round is the identity of an IBE encryption whose private key is the beacon's signature for that round, so the data
// can only be opened once the round has been produced.
//
// Ciphertexts are binary age files with a single `tlock <round> <chain hash>` stanza. The drand tlock tools and any
// age client with the tlock plugin open them as well.
package tlock

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/drand/drand/v2/crypto"
	"github.com/drand/kyber"
	drandtlock "github.com/drand/tlock"
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/beacon"
)

// Hash-to-curve domain separation tags of the supported beacon schemes.
const (
	DSTRFC9380 = "BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_"
	// The first unchained G1 chain shipped with the G2 tag by mistake.
	DSTLegacyG1 = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_"
)

const ageVersionLine = "age-encryption.org/v1"

// Binder is the time-lock binding collaborator.
type Binder interface {
	Bind(plaintext []byte, chainInfo *beacon.ChainInfo, round uint64) ([]byte, error)
}

// AgeBinder implements Binder with drand/tlock.
type AgeBinder struct{}

// Bind encrypts plaintext to the round of the chain.
func (AgeBinder) Bind(plaintext []byte, chainInfo *beacon.ChainInfo, round uint64) ([]byte, error) {
	network, err := NewNetwork(context.Background(), chainInfo, nil)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err = drandtlock.New(network).Encrypt(&buf, bytes.NewReader(plaintext), round); err != nil {
		return nil, errors.Wrapf(err, "无法将数据锁定到轮次 %v", round)
	}

	return buf.Bytes(), nil
}

// RoundMessage is the message the beacon signs for an unchained round.
func RoundMessage(round uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], round)
	h := sha256.Sum256(b[:])
	return h[:]
}

// Network presents one beacon chain to drand/tlock. Signatures come from the beacon client; a network without one can
// only encrypt.
type Network struct {
	ctx       context.Context
	chainInfo *beacon.ChainInfo
	client    beacon.Client
	scheme    *crypto.Scheme
	publicKey kyber.Point

	// drand/tlock folds signature failures into its own error, so the last one is kept here
	mu     sync.Mutex
	sigErr error
}

// NewNetwork checks the chain's scheme and public key. `client` may be nil.
func NewNetwork(ctx context.Context, chainInfo *beacon.ChainInfo, client beacon.Client) (*Network, error) {
	if err := chainInfo.Validate(); err != nil {
		return nil, err
	}

	schemeID := chainInfo.SchemeID
	if schemeID == "" {
		schemeID = beacon.SchemeUnchainedG1
	}
	scheme, err := crypto.SchemeFromName(schemeID)
	if err != nil {
		return nil, errors.Wrapf(err, "不支持的签名方案 %v", schemeID)
	}

	publicKey := scheme.KeyGroup.Point()
	if err = publicKey.UnmarshalBinary(chainInfo.PublicKey); err != nil {
		return nil, errors.Wrap(err, "无法解析信标公钥")
	}

	return &Network{ctx: ctx, chainInfo: chainInfo, client: client, scheme: scheme, publicKey: publicKey}, nil
}

func (n *Network) ChainHash() string {
	return n.chainInfo.Hash
}

func (n *Network) Current(t time.Time) uint64 {
	return n.chainInfo.Schedule().At(t)
}

func (n *Network) PublicKey() kyber.Point {
	return n.publicKey
}

func (n *Network) Scheme() crypto.Scheme {
	return *n.scheme
}

// Signature fetches the signature of a round from the beacon.
func (n *Network) Signature(round uint64) ([]byte, error) {
	if n.client == nil {
		return nil, fmt.Errorf("未配置信标客户端，无法获取轮次 %v 的签名", round)
	}

	result, err := n.client.Round(n.ctx, round)
	if err != nil {
		n.mu.Lock()
		n.sigErr = err
		n.mu.Unlock()
		return nil, err
	}

	return result.Signature, nil
}

// SwitchChainHash only accepts the chain the network was built for.
func (n *Network) SwitchChainHash(chainHash string) error {
	if chainHash != n.chainInfo.Hash {
		return fmt.Errorf("密文属于链 %v，当前链为 %v", chainHash, n.chainInfo.Hash)
	}

	return nil
}

func (n *Network) signatureErr() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.sigErr
}

// Open decrypts a time-lock ciphertext with the beacon's signature for the round in its stanza. Before the round is
// produced the error wraps `beacon.ErrRoundNotReached`.
func Open(ctx context.Context, client beacon.Client, chainInfo *beacon.ChainInfo, ciphertext []byte) ([]byte, error) {
	network, err := NewNetwork(ctx, chainInfo, client)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err = drandtlock.New(network).Decrypt(&buf, bytes.NewReader(ciphertext)); err != nil {
		if sigErr := network.signatureErr(); sigErr != nil {
			return nil, sigErr
		}
		if errors.Is(err, drandtlock.ErrTooEarly) {
			return nil, errors.Wrap(beacon.ErrRoundNotReached, err.Error())
		}
		return nil, errors.Wrap(err, "无法解开时间锁密文")
	}

	return buf.Bytes(), nil
}

// CiphertextRound reads the round from the tlock stanza in the age header of a ciphertext.
func CiphertextRound(ciphertext []byte) (uint64, error) {
	scanner := bufio.NewScanner(bytes.NewReader(ciphertext))
	if !scanner.Scan() || scanner.Text() != ageVersionLine {
		return 0, fmt.Errorf("无效的时间锁密文: 不是 age 文件")
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "---") {
			break
		}

		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "->" || fields[1] != "tlock" {
			continue
		}

		round, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "无效的 tlock 轮次 '%v'", fields[2])
		}
		return round, nil
	}

	return 0, fmt.Errorf("无效的时间锁密文: 没有 tlock 节")
}
