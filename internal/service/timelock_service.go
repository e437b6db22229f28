package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/internal/beacon"
	"github.com/zkpoex/disclosure/internal/keymgmt"
	"github.com/zkpoex/disclosure/internal/metrics"
	"github.com/zkpoex/disclosure/internal/models/common"
	"github.com/zkpoex/disclosure/internal/programs"
	"github.com/zkpoex/disclosure/internal/publicvalues"
	"github.com/zkpoex/disclosure/internal/rounds"
	"github.com/zkpoex/disclosure/internal/tlock"
	"github.com/zkpoex/disclosure/internal/zkvm"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

// DefaultBlockchainSettings is the execution context proven against when none is given.
const DefaultBlockchainSettings = `
    {
        "gas_price": "0",
        "origin": "0x0000000000000000000000000000000000000000",
        "block_hashes": "[]",
        "block_number": "0",
        "block_coinbase": "0x0000000000000000000000000000000000000000",
        "block_timestamp": "0",
        "block_difficulty": "0",
        "block_gas_limit": "0",
        "chain_id": "1",
        "block_base_fee_per_gas": "0"
    }
`

// TimeLockService binds a fresh key to a future beacon round.
type TimeLockService struct {
	ServiceInfo *Info
	Beacon      beacon.Client
	Keys        *keymgmt.Coordinator
	Binder      tlock.Binder     // nil means tlock.AgeBinder
	Now         func() time.Time // nil means time.Now
}

// TimeLockRequest carries the inputs of one time-delayed session. A non-zero Round takes precedence over Duration.
type TimeLockRequest struct {
	Calldata           string
	BlockchainSettings string
	Duration           *time.Duration
	Round              uint64
}

// TimeLockResult is what a successful session produced.
type TimeLockResult struct {
	Session     *common.Session
	ChainInfo   *beacon.ChainInfo
	Round       uint64
	Proof       *zkvm.Proof
	Outputs     *publicvalues.ZkPoExOutputs
	Fixture     *fixture.ZkPoExFixture
	FixturePath string
	ProofPath   string
}

// Run executes round → key → bind → prove → decode → persist. Nothing is persisted unless every earlier stage
// succeeded.
func (s *TimeLockService) Run(ctx context.Context, req *TimeLockRequest) (result *TimeLockResult, err error) {
	tracker := startSession(s.ServiceInfo, common.PathTimeLock)
	defer func() { tracker.finish(err) }()

	blockchainSettings := req.BlockchainSettings
	if blockchainSettings == "" {
		blockchainSettings = DefaultBlockchainSettings
	}

	stopTimer := tracker.stage(errorcode.StageBeacon)
	chainInfo, err := s.Beacon.ChainInfo(ctx)
	stopTimer()
	if err != nil {
		return nil, err
	}

	round, err := rounds.Resolve(chainInfo.Schedule(), s.now(), req.Duration, req.Round)
	if err != nil {
		return nil, err
	}
	tracker.session.Round = round
	metrics.DisclosureRound.WithLabelValues(chainInfo.Hash).Set(float64(round))
	log.Infof("披露轮次: %v", round)

	material, err := s.Keys.Generate(ctx)
	if err != nil {
		return nil, err
	}
	tracker.session.KeyGeneration = material.Generation

	stopTimer = tracker.stage(errorcode.StageBind)
	tlockCipher, err := s.bind(chainInfo, material.Key[:], round)
	stopTimer()
	if err != nil {
		return nil, err
	}

	inputs := &programs.ZkPoExInputs{
		Key:                material.Key,
		Nonce:              material.Nonce,
		Calldata:           req.Calldata,
		BlockchainSettings: blockchainSettings,
		BeaconPublicKey:    chainInfo.PublicKey,
		Round:              round,
	}

	proof, err := setupAndProve(ctx, tracker, s.ServiceInfo.Prover, programs.ZkPoExProgramID, zkvm.Compact, inputs.Encode())
	if err != nil {
		return nil, err
	}
	tracker.session.VKey = proof.VKey

	stopTimer = tracker.stage(errorcode.StageDecode)
	outputs, err := publicvalues.DecodeZkPoEx(proof.PublicValues)
	stopTimer()
	if err != nil {
		return nil, err
	}
	logProof(proof)

	stopTimer = tracker.stage(errorcode.StagePersist)
	defer stopTimer()

	if err = s.Keys.Persist(ctx, material); err != nil {
		return nil, err
	}
	if err = s.ServiceInfo.Store.WriteBlob(artifact.BlobChachaCipher, outputs.ChachaCipher); err != nil {
		return nil, err
	}
	if err = s.ServiceInfo.Store.WriteBlob(artifact.BlobTlockCipher, tlockCipher); err != nil {
		return nil, err
	}

	proofPath, err := s.ServiceInfo.Store.WriteProof(artifact.ProofZkPoEx, proof)
	if err != nil {
		return nil, err
	}

	zkpoexFixture := &fixture.ZkPoExFixture{
		Key:                material.Key[:],
		Nonce:              material.Nonce[:],
		Round:              round,
		Before:             outputs.Before,
		After:              outputs.After,
		HashPrivateInputs:  outputs.HashPrivateInputs,
		ChachaCipher:       outputs.ChachaCipher,
		TlockCipher:        tlockCipher,
		Calldata:           req.Calldata,
		BlockchainSettings: blockchainSettings,
		VKey:               proof.VKey,
	}
	fixturePath, err := artifact.WriteFixture(s.ServiceInfo.ZkPoExFixtureDir, fixture.ZkPoExFileName, zkpoexFixture)
	if err != nil {
		return nil, err
	}
	tracker.recordFixture(fixturePath, zkpoexFixture)

	result = &TimeLockResult{
		Session:     tracker.session,
		ChainInfo:   chainInfo,
		Round:       round,
		Proof:       proof,
		Outputs:     outputs,
		Fixture:     zkpoexFixture,
		FixturePath: fixturePath,
		ProofPath:   proofPath,
	}

	return result, nil
}

// Unlock opens the persisted time-lock ciphertext with the signature of its round. Before the round is published
// the error wraps `beacon.ErrRoundNotReached`.
func (s *TimeLockService) Unlock(ctx context.Context) ([]byte, error) {
	tlockCipher, err := s.ServiceInfo.Store.ReadBlob(artifact.BlobTlockCipher)
	if err != nil {
		return nil, errors.Wrap(err, "无法读取时间锁密文")
	}

	round, err := tlock.CiphertextRound(tlockCipher)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析时间锁密文")
	}

	chainInfo, err := s.Beacon.ChainInfo(ctx)
	if err != nil {
		return nil, err
	}

	key, err := tlock.Open(ctx, s.Beacon, chainInfo, tlockCipher)
	if err != nil {
		if errors.Is(err, beacon.ErrRoundNotReached) {
			return nil, errors.Wrapf(err, "轮次 %v 尚未到达", round)
		}
		return nil, errors.Wrapf(err, "无法使用轮次 %v 的签名解开时间锁密文", round)
	}

	log.Infof("已使用轮次 %v 的签名解开时间锁密文", round)
	return key, nil
}

// RoundFor previews the round a session would bind to without generating anything.
func (s *TimeLockService) RoundFor(ctx context.Context, d *time.Duration, explicitRound uint64) (uint64, *beacon.ChainInfo, error) {
	chainInfo, err := s.Beacon.ChainInfo(ctx)
	if err != nil {
		return 0, nil, err
	}

	round, err := rounds.Resolve(chainInfo.Schedule(), s.now(), d, explicitRound)
	if err != nil {
		return 0, nil, err
	}

	return round, chainInfo, nil
}

func (s *TimeLockService) bind(chainInfo *beacon.ChainInfo, key []byte, round uint64) ([]byte, error) {
	binder := s.Binder
	if binder == nil {
		binder = tlock.AgeBinder{}
	}

	tlockCipher, err := binder.Bind(key, chainInfo, round)
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBind, errors.Wrap(err, "无法时间锁定密钥"))
	}

	return tlockCipher, nil
}

func (s *TimeLockService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}

// setupAndProve runs the two proving stages. Failures are terminal; nothing is retried.
func setupAndProve(ctx context.Context, tracker *sessionTracker, prover zkvm.Prover, programID string, strength zkvm.Strength, stdin []byte) (*zkvm.Proof, error) {
	stopTimer := tracker.stage(errorcode.StageSetup)
	keys, err := prover.Setup(ctx, programID, strength)
	stopTimer()
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorProvingFailed, errorcode.StageSetup, err)
	}

	stopTimer = tracker.stage(errorcode.StageProve)
	proof, err := prover.Prove(ctx, keys, stdin)
	stopTimer()
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorProvingFailed, errorcode.StageProve, err)
	}

	return proof, nil
}

func logProof(proof *zkvm.Proof) {
	log.Infof("验证密钥: %v", proof.VKey)
	log.Infof("公开值: %v", proof.PublicValuesHex())
	log.Infof("证明: %v (%v 字节)", proof.ProofHex(), len(proof.Proof))
}
