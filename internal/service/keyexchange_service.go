package service

import (
	"bytes"
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/internal/kex"
	"github.com/zkpoex/disclosure/internal/keymgmt"
	"github.com/zkpoex/disclosure/internal/models/common"
	"github.com/zkpoex/disclosure/internal/programs"
	"github.com/zkpoex/disclosure/internal/publicvalues"
	"github.com/zkpoex/disclosure/internal/zkvm"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

// Seeds of the fixed demo keypairs.
var (
	DefaultLocalSeed  = [32]byte{12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12}
	DefaultVendorSeed = [32]byte{13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13}
)

// KeyExchangeService encrypts the shared key for one counterparty.
type KeyExchangeService struct {
	ServiceInfo *Info
	Curve       kex.Curve
	Keys        *keymgmt.Coordinator
}

// KeyExchangeRequest selects the two keypairs. A supplied key takes precedence over the seed of the same party.
type KeyExchangeRequest struct {
	LocalPrivateKey []byte
	VendorPublicKey []byte
	LocalSeed       [32]byte
	VendorSeed      [32]byte
}

// KeyExchangeResult is what a successful session produced.
type KeyExchangeResult struct {
	Session     *common.Session
	Local       *kex.KeyPair
	Proof       *zkvm.Proof
	Outputs     *publicvalues.KeyEncOut
	Fixture     *fixture.EcdhFixture
	FixturePath string
}

// Run executes key → prove → decode → persist for the peer-targeted path.
func (s *KeyExchangeService) Run(ctx context.Context, req *KeyExchangeRequest) (result *KeyExchangeResult, err error) {
	tracker := startSession(s.ServiceInfo, common.PathEcdh)
	defer func() { tracker.finish(err) }()

	local, vendorPublicKey, err := s.resolveKeyPairs(req)
	if err != nil {
		return nil, err
	}
	log.Infof("本地私钥: %v", hex.EncodeToString(local.PrivateKey))
	log.Infof("对方公钥: %v", hex.EncodeToString(vendorPublicKey))

	material, err := s.Keys.Load(ctx)
	if err != nil {
		return nil, err
	}
	tracker.session.KeyGeneration = material.Generation

	inputs := &programs.EcdhInputs{
		Key:             material.Key,
		Nonce:           material.Nonce,
		LocalPrivateKey: local.PrivateKey,
		VendorPublicKey: vendorPublicKey,
	}

	proof, err := setupAndProve(ctx, tracker, s.ServiceInfo.Prover, programs.EcdhProgramID, zkvm.Succinct, inputs.Encode())
	if err != nil {
		return nil, err
	}
	tracker.session.VKey = proof.VKey

	stopTimer := tracker.stage(errorcode.StageDecode)
	outputs, err := publicvalues.DecodeKeyEncOut(proof.PublicValues)
	if err == nil && !bytes.Equal(outputs.KeyHash[:], crypto.Keccak256(material.Key[:])) {
		err = errorcode.New(errorcode.ErrorPublicValueDecode, errorcode.StageDecode, errors.New("公开值中的 keyHash 与所载入的密钥不符"))
	}
	stopTimer()
	if err != nil {
		return nil, err
	}

	keyHash := hex.EncodeToString(outputs.KeyHash[:])
	log.Infof("密钥哈希: %v", keyHash)
	logProof(proof)

	stopTimer = tracker.stage(errorcode.StagePersist)
	defer stopTimer()

	ecdhFixture := &fixture.EcdhFixture{
		LocalSk:      hex.EncodeToString(local.PrivateKey),
		VendorPk:     hex.EncodeToString(vendorPublicKey),
		VKey:         proof.VKey,
		KeyHash:      keyHash,
		PublicValues: proof.PublicValuesHex(),
		Proof:        proof.ProofHex(),
	}
	fixturePath, err := artifact.WriteFixture(s.ServiceInfo.EcdhFixtureDir, fixture.EcdhFileName, ecdhFixture)
	if err != nil {
		return nil, err
	}
	tracker.recordFixture(fixturePath, ecdhFixture)

	result = &KeyExchangeResult{
		Session:     tracker.session,
		Local:       local,
		Proof:       proof,
		Outputs:     outputs,
		Fixture:     ecdhFixture,
		FixturePath: fixturePath,
	}

	return result, nil
}

func (s *KeyExchangeService) resolveKeyPairs(req *KeyExchangeRequest) (local *kex.KeyPair, vendorPublicKey []byte, err error) {
	if len(req.LocalPrivateKey) > 0 {
		local, err = s.Curve.KeyPairFromPrivateKey(req.LocalPrivateKey)
	} else {
		local, err = s.Curve.KeyPairFromSeed(req.LocalSeed)
	}
	if err != nil {
		return nil, nil, errorcode.New(errorcode.ErrorInvalidKeyPair, errorcode.StageKey, errors.Wrap(err, "无效的本地私钥"))
	}

	if len(req.VendorPublicKey) > 0 {
		if err = s.Curve.ValidatePublicKey(req.VendorPublicKey); err != nil {
			return nil, nil, errorcode.New(errorcode.ErrorInvalidKeyPair, errorcode.StageKey, errors.Wrap(err, "无效的对方公钥"))
		}
		return local, req.VendorPublicKey, nil
	}

	vendor, err := s.Curve.KeyPairFromSeed(req.VendorSeed)
	if err != nil {
		return nil, nil, errorcode.New(errorcode.ErrorInvalidKeyPair, errorcode.StageKey, errors.Wrap(err, "无效的对方种子"))
	}

	return local, vendor.PublicKey, nil
}
