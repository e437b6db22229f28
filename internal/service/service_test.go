package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	ipfs "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/internal/beacon"
	"github.com/zkpoex/disclosure/internal/kex"
	"github.com/zkpoex/disclosure/internal/keymgmt"
	"github.com/zkpoex/disclosure/internal/programs"
	"github.com/zkpoex/disclosure/internal/tlock"
	"github.com/zkpoex/disclosure/internal/utils/timingutils"
	"github.com/zkpoex/disclosure/internal/zkvm"
	"github.com/zkpoex/disclosure/internal/zkvm/gnarkvm"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

const (
	testGenesis   = 1_692_803_367
	testChainHash = "52db9ba70e0cc0f6eaf7803dd07447a1f5477735fd3f661792ba94600c84e971"
)

// fakeBeacon is a beacon chain whose group secret is known, so rounds can be signed.
type fakeBeacon struct {
	secret    *big.Int
	publicKey []byte
	latest    uint64
	fail      error
}

func newFakeBeacon(t *testing.T) *fakeBeacon {
	s, err := rand.Int(rand.Reader, fr.Modulus())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	_, _, _, g2 := bls12381.Generators()
	var pk bls12381.G2Affine
	pk.ScalarMultiplication(&g2, s)
	pkBytes := pk.Bytes()

	return &fakeBeacon{secret: s, publicKey: pkBytes[:]}
}

func (b *fakeBeacon) ChainInfo(ctx context.Context) (*beacon.ChainInfo, error) {
	if b.fail != nil {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, b.fail)
	}

	return &beacon.ChainInfo{
		PublicKey:   b.publicKey,
		Period:      3 * time.Second,
		GenesisTime: testGenesis,
		Hash:        testChainHash,
		SchemeID:    beacon.SchemeUnchainedG1,
	}, nil
}

func (b *fakeBeacon) Round(ctx context.Context, round uint64) (*beacon.RoundResult, error) {
	if round > b.latest {
		return nil, errorcode.New(errorcode.ErrorBeaconUnavailable, errorcode.StageBeacon, beacon.ErrRoundNotReached)
	}

	qid, err := bls12381.HashToG1(tlock.RoundMessage(round), []byte(tlock.DSTRFC9380))
	if err != nil {
		return nil, err
	}

	var sig bls12381.G1Affine
	sig.ScalarMultiplication(&qid, b.secret)
	sigBytes := sig.Bytes()

	return &beacon.RoundResult{Round: round, Signature: sigBytes[:]}, nil
}

// nativeProver executes the reference programs without proving. `tamper` may rewrite the public values.
type nativeProver struct {
	programs map[string]zkvm.Program
	tamper   func([]byte) []byte
	fail     error
}

func newNativeProver() *nativeProver {
	return &nativeProver{programs: programs.Registry(kex.Secp256k1{})}
}

func (p *nativeProver) Setup(ctx context.Context, programID string, strength zkvm.Strength) (*zkvm.Keys, error) {
	if _, ok := p.programs[programID]; !ok {
		return nil, fmt.Errorf("未知的程序 %v", programID)
	}

	return &zkvm.Keys{ProgramID: programID, Strength: strength, VKey: "0x" + programID}, nil
}

func (p *nativeProver) Prove(ctx context.Context, keys *zkvm.Keys, stdin []byte) (*zkvm.Proof, error) {
	if p.fail != nil {
		return nil, p.fail
	}

	exec, err := p.programs[keys.ProgramID](stdin)
	if err != nil {
		return nil, err
	}

	publicValues := exec.PublicValues
	if p.tamper != nil {
		publicValues = p.tamper(publicValues)
	}

	return &zkvm.Proof{ProgramID: keys.ProgramID, Strength: keys.Strength, VKey: keys.VKey, PublicValues: publicValues, Proof: []byte{1, 2, 3}}, nil
}

type testEnv struct {
	info     *Info
	beacon   *fakeBeacon
	timeLock *TimeLockService
	ecdh     *KeyExchangeService
	root     string
}

func newTestEnv(t *testing.T, prover zkvm.Prover) *testEnv {
	root := t.TempDir()
	store := artifact.NewStore(filepath.Join(root, "data"))
	store.ProofDir = root

	info := &Info{
		SessionID:        "1432223823564439552",
		Store:            store,
		ZkPoExFixtureDir: filepath.Join(root, "contracts", "src", "fixtures"),
		EcdhFixtureDir:   filepath.Join(root, "fixtures"),
		Prover:           prover,
	}
	keys := keymgmt.NewCoordinator(keymgmt.NewFileSlot(store), info.SessionID)
	fb := newFakeBeacon(t)

	return &testEnv{
		info:   info,
		beacon: fb,
		timeLock: &TimeLockService{
			ServiceInfo: info,
			Beacon:      fb,
			Keys:        keys,
			Now:         func() time.Time { return time.Unix(testGenesis+301, 0) },
		},
		ecdh: &KeyExchangeService{ServiceInfo: info, Curve: kex.Secp256k1{}, Keys: keys},
		root: root,
	}
}

func defaultEcdhRequest() *KeyExchangeRequest {
	return &KeyExchangeRequest{LocalSeed: DefaultLocalSeed, VendorSeed: DefaultVendorSeed}
}

func TestKeyContinuityAcrossSessions(t *testing.T) {
	env := newTestEnv(t, newNativeProver())
	ctx := context.Background()

	d := 30 * time.Second
	req := &TimeLockRequest{Calldata: "0xdeadbeef", Duration: &d}
	tl, err := env.timeLock.Run(ctx, req)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, uint64(110), tl.Round)
	assert.Equal(t, DefaultBlockchainSettings, tl.Fixture.BlockchainSettings)
	assert.Empty(t, req.BlockchainSettings)
	assert.True(t, tl.Session.IsSuccess)

	for _, name := range []string{keymgmt.SlotName, keymgmt.SlotName + keymgmt.SlotMetadataSuffix, artifact.BlobChachaCipher, artifact.BlobTlockCipher} {
		assert.FileExists(t, filepath.Join(env.root, "data", name))
	}
	assert.FileExists(t, filepath.Join(env.root, artifact.ProofZkPoEx))
	assert.FileExists(t, filepath.Join(env.root, "contracts", "src", "fixtures", fixture.ZkPoExFileName))

	round, err := tlock.CiphertextRound(tl.Fixture.TlockCipher)
	assert.NoError(t, err)
	assert.Equal(t, tl.Round, round)

	ec, err := env.ecdh.Run(ctx, defaultEcdhRequest())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.FileExists(t, filepath.Join(env.root, "fixtures", fixture.EcdhFileName))
	assert.Equal(t, "0x"+programs.EcdhProgramID, ec.Fixture.VKey)
	assert.Len(t, ec.Fixture.KeyHash, 64)

	// The vendor recovers the key generated by the first session
	curve := kex.Secp256k1{}
	vendor, err := curve.KeyPairFromSeed(DefaultVendorSeed)
	assert.NoError(t, err)
	shared, err := curve.SharedSecret(vendor.PrivateKey, ec.Local.PublicKey)
	assert.NoError(t, err)
	key, err := kex.OpenKey(shared, ec.Outputs.KeyCipher)
	assert.NoError(t, err)
	assert.Equal(t, []byte(tl.Fixture.Key), key)
}

func TestDeterministicPublicValuesForFixedNonce(t *testing.T) {
	in := &programs.ZkPoExInputs{Calldata: "0x01", BlockchainSettings: DefaultBlockchainSettings, Round: 5}
	prover := newNativeProver()
	keys, err := prover.Setup(context.Background(), programs.ZkPoExProgramID, zkvm.Compact)
	assert.NoError(t, err)

	a, err := prover.Prove(context.Background(), keys, in.Encode())
	assert.NoError(t, err)
	b, err := prover.Prove(context.Background(), keys, in.Encode())
	assert.NoError(t, err)
	assert.Equal(t, a.PublicValues, b.PublicValues)
}

func TestTruncatedPublicValues(t *testing.T) {
	prover := newNativeProver()
	prover.tamper = func(b []byte) []byte { return b[:len(b)-1] }
	env := newTestEnv(t, prover)

	d := time.Hour
	_, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x", Duration: &d})
	assert.Equal(t, errorcode.ErrorPublicValueDecode, errors.Cause(err))

	// Nothing persisted
	_, err = env.info.Store.ReadBlob(keymgmt.SlotName)
	assert.Equal(t, errorcode.ErrorNotFound, errors.Cause(err))
	_, err = env.info.Store.ReadBlob(artifact.BlobTlockCipher)
	assert.Equal(t, errorcode.ErrorNotFound, errors.Cause(err))
}

func TestTrailingPublicValues(t *testing.T) {
	prover := newNativeProver()
	prover.tamper = func(b []byte) []byte { return append(b, 0) }
	env := newTestEnv(t, prover)

	d := time.Hour
	_, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x", Duration: &d})
	assert.Equal(t, errorcode.ErrorPublicValueDecode, errors.Cause(err))
}

func TestProvingFailure(t *testing.T) {
	prover := newNativeProver()
	prover.fail = fmt.Errorf("out of memory")
	env := newTestEnv(t, prover)

	d := time.Hour
	_, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x", Duration: &d})
	assert.Equal(t, errorcode.ErrorProvingFailed, errors.Cause(err))

	var sessionErr *errorcode.SessionError
	if assert.True(t, errors.As(err, &sessionErr)) {
		assert.Equal(t, errorcode.StageProve, sessionErr.Stage)
	}
}

func TestMissingDuration(t *testing.T) {
	env := newTestEnv(t, newNativeProver())

	_, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x"})
	assert.Equal(t, errorcode.ErrorInvalidDuration, errors.Cause(err))

	// An explicit round needs no duration
	res, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x", Round: 12345})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, uint64(12345), res.Round)
}

func TestPublishedRoundRejected(t *testing.T) {
	env := newTestEnv(t, newNativeProver())

	// Round 100 is current, so its signature is already public
	for _, r := range []uint64{1, 100} {
		_, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x", Round: r})
		assert.Equal(t, errorcode.ErrorRoundPassed, errors.Cause(err), r)
	}

	_, err := env.info.Store.ReadBlob(keymgmt.SlotName)
	assert.Equal(t, errorcode.ErrorNotFound, errors.Cause(err))
	_, err = env.info.Store.ReadBlob(artifact.BlobTlockCipher)
	assert.Equal(t, errorcode.ErrorNotFound, errors.Cause(err))
}

func TestBeaconUnavailable(t *testing.T) {
	env := newTestEnv(t, newNativeProver())
	env.beacon.fail = fmt.Errorf("connection refused")

	d := time.Hour
	_, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x", Duration: &d})
	assert.Equal(t, errorcode.ErrorBeaconUnavailable, errors.Cause(err))
}

func TestEcdhBeforeTimeLock(t *testing.T) {
	env := newTestEnv(t, newNativeProver())

	_, err := env.ecdh.Run(context.Background(), defaultEcdhRequest())
	assert.Equal(t, errorcode.ErrorKeyNotFound, errors.Cause(err))
}

func TestEcdhRejectsBadVendorKey(t *testing.T) {
	env := newTestEnv(t, newNativeProver())

	req := defaultEcdhRequest()
	req.VendorPublicKey = []byte{4, 1, 2, 3}
	_, err := env.ecdh.Run(context.Background(), req)
	assert.Equal(t, errorcode.ErrorInvalidKeyPair, errors.Cause(err))
}

func TestEcdhWithSuppliedKeys(t *testing.T) {
	env := newTestEnv(t, newNativeProver())
	ctx := context.Background()

	_, err := env.timeLock.Run(ctx, &TimeLockRequest{Calldata: "0x", Round: 101})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	curve := kex.Secp256k1{}
	local, _ := curve.KeyPairFromSeed([32]byte{1})
	vendor, _ := curve.KeyPairFromSeed([32]byte{2})

	res, err := env.ecdh.Run(ctx, &KeyExchangeRequest{LocalPrivateKey: local.PrivateKey, VendorPublicKey: vendor.PublicKey})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, local.PublicKey, res.Local.PublicKey)
}

func TestEcdhDetectsReplacedKey(t *testing.T) {
	env := newTestEnv(t, newNativeProver())
	ctx := context.Background()

	_, err := env.timeLock.Run(ctx, &TimeLockRequest{Calldata: "0x", Round: 101})
	assert.NoError(t, err)
	assert.NoError(t, env.info.Store.WriteBlob(keymgmt.SlotName, make([]byte, keymgmt.KeySize)))

	_, err = env.ecdh.Run(ctx, defaultEcdhRequest())
	assert.Equal(t, errorcode.ErrorKeySlotStale, errors.Cause(err))
}

func TestUnlock(t *testing.T) {
	env := newTestEnv(t, newNativeProver())
	ctx := context.Background()

	d := time.Minute
	res, err := env.timeLock.Run(ctx, &TimeLockRequest{Calldata: "0x", Duration: &d})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	// Any tlock tool can read the fixture's ciphertext
	assert.True(t, strings.HasPrefix(string(res.Fixture.TlockCipher), "age-encryption.org/v1\n-> tlock "))

	env.beacon.latest = res.Round - 1
	_, err = env.timeLock.Unlock(ctx)
	assert.True(t, errors.Is(err, beacon.ErrRoundNotReached))

	env.beacon.latest = res.Round
	key, err := env.timeLock.Unlock(ctx)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []byte(res.Fixture.Key), key)
}

func TestRoundFor(t *testing.T) {
	env := newTestEnv(t, newNativeProver())

	var zero time.Duration
	round, info, err := env.timeLock.RoundFor(context.Background(), &zero, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(100), round)
	assert.Equal(t, testChainHash, info.Hash)
}

func TestSessionLogAndIPFS(t *testing.T) {
	ipfsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/add" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Name":"fixture","Hash":"QmFixture","Size":"42"}`))
	}))
	defer ipfsServer.Close()

	env := newTestEnv(t, newNativeProver())
	env.info.IPFSSh = ipfs.NewShell(ipfsServer.URL)
	env.info.SessionLogPath = filepath.Join(env.root, "sessions.log")

	res, err := env.timeLock.Run(context.Background(), &TimeLockRequest{Calldata: "0x", Round: 107})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, "QmFixture", res.Session.FixtureCID)
	assert.NotEmpty(t, res.Session.FixtureDigest)

	f, err := os.Open(env.info.SessionLogPath)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	defer f.Close()

	entries, err := timingutils.ReadSessionLog(f)
	assert.NoError(t, err)
	if assert.Len(t, entries, 2) {
		assert.Equal(t, timingutils.EventStart, entries[0].Event)
		assert.Equal(t, timingutils.EventEnd, entries[1].Event)
		assert.True(t, entries[1].IsSuccess)
	}
}

func TestSessionServiceWithoutLedger(t *testing.T) {
	s := &SessionService{ServiceInfo: &Info{}}

	_, err := s.GetSession("1")
	assert.Equal(t, errorcode.ErrorNotImplemented, err)
	_, err = s.ListSessions("", 10)
	assert.Equal(t, errorcode.ErrorNotImplemented, err)
}

func TestEndToEndWithGnark(t *testing.T) {
	if testing.Short() {
		t.Skip("proving is slow")
	}

	prover := gnarkvm.NewProver(programs.Registry(kex.Secp256k1{}), t.TempDir())
	env := newTestEnv(t, prover)
	ctx := context.Background()

	d := 90 * 24 * time.Hour
	tl, err := env.timeLock.Run(ctx, &TimeLockRequest{Calldata: "0xdeadbeef", Duration: &d})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, zkvm.Compact, tl.Proof.Strength)

	ec, err := env.ecdh.Run(ctx, defaultEcdhRequest())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, zkvm.Succinct, ec.Proof.Strength)
	assert.NotEqual(t, tl.Proof.VKey, ec.Proof.VKey)
}
