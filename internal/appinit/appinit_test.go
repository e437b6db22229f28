package appinit

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/internal/beacon"
	"github.com/zkpoex/disclosure/internal/service"
	"github.com/zkpoex/disclosure/internal/zkvm/gnarkvm"
	"github.com/zkpoex/disclosure/pkg/kexkeyutils"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	if isNoError := assert.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644)); !isNoError {
		t.FailNow()
	}

	return path
}

func TestLoadDisclosureInfoDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "disclosure.yaml", "dataDir: work\n")

	info, err := LoadDisclosureInfo(path)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, beacon.DefaultURL, info.Beacon.URL)
	assert.Equal(t, beacon.QuicknetChainHash, info.Beacon.ChainHash)
	assert.Equal(t, "work", info.DataDir)
	assert.Equal(t, ".", info.ProofDir)
	assert.Equal(t, "contracts/src/fixtures", info.Fixtures.ZkPoExDir)
	assert.Equal(t, "fixtures", info.Fixtures.EcdhDir)
	assert.Equal(t, filepath.Join("work", "circuits"), info.Prover.KeyCacheDir)
	assert.Empty(t, info.Prover.SRS)
	assert.Equal(t, "secp256k1", info.KeyExchange.Curve)
	assert.Equal(t, DefaultServerPort, info.Server.Port)
	assert.Equal(t, "info", info.LogLevel)

	local, vendor, err := info.Seeds()
	assert.NoError(t, err)
	assert.Equal(t, service.DefaultLocalSeed, local)
	assert.Equal(t, service.DefaultVendorSeed, vendor)
}

func TestLoadDisclosureInfo(t *testing.T) {
	yamlStr := `
beacon:
  url: http://localhost:9000/chain
  timeout: 5s
keyExchange:
  curve: sm2
  localSeed: "0x0101010101010101010101010101010101010101010101010101010101010101"
prover:
  srs: /srv/kzg/bn254.srs
ledger:
  dsn: user:pass@tcp(localhost:3306)/disclosure
server:
  port: 9090
logLevel: debug
showTimingLogs: true
`
	path := writeFile(t, t.TempDir(), "disclosure.yaml", yamlStr)

	info, err := LoadDisclosureInfo(path)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, "http://localhost:9000/chain", info.Beacon.URL)
	assert.Empty(t, info.Beacon.ChainHash)
	assert.Equal(t, "/srv/kzg/bn254.srs", info.Prover.SRS)
	assert.Equal(t, filepath.Join(DefaultDataDir, "circuits"), info.Prover.KeyCacheDir)
	timeout, err := info.BeaconTimeout()
	assert.NoError(t, err)
	assert.Equal(t, "5s", timeout.String())
	assert.Equal(t, "sm2", info.KeyExchange.Curve)
	assert.Equal(t, 9090, info.Server.Port)
	assert.True(t, info.ShowTimingLogs)

	local, vendor, err := info.Seeds()
	assert.NoError(t, err)
	assert.Equal(t, byte(1), local[31])
	assert.Equal(t, service.DefaultVendorSeed, vendor)
}

func TestLoadDisclosureInfoInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDisclosureInfo(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cases := []string{
		"beacon: [\n",
		"beacon:\n  timeout: soon\n",
		"keyExchange:\n  curve: ed25519\n",
		"keyExchange:\n  vendorSeed: abcd\n",
		"logLevel: chatty\n",
	}
	for _, c := range cases {
		_, err := LoadDisclosureInfo(writeFile(t, dir, "bad.yaml", c))
		assert.Error(t, err, c)
	}
}

func TestLoadKeyExchangeKeys(t *testing.T) {
	dir := t.TempDir()

	privKey := secp256k1.PrivKeyFromBytes([]byte{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
	})
	location := &KeyPairLocation{
		PrivateKey: writeFile(t, dir, "sk", string(kexkeyutils.ConvertSecp256k1PrivateKeyToPEM(privKey))),
		PublicKey:  writeFile(t, dir, "vendor.pem", string(kexkeyutils.ConvertSecp256k1PublicKeyToPEM(privKey.PubKey()))),
	}

	sk, pk, err := LoadKeyExchangeKeys(location, "secp256k1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, privKey.Serialize(), sk)
	assert.Equal(t, privKey.PubKey().SerializeUncompressed(), pk)

	_, _, err = LoadKeyExchangeKeys(location, "sm2")
	assert.Error(t, err)

	sk, pk, err = LoadKeyExchangeKeys(&KeyPairLocation{PublicKey: location.PublicKey}, "secp256k1")
	assert.NoError(t, err)
	assert.Nil(t, sk)
	assert.NotNil(t, pk)

	sk, pk, err = LoadKeyExchangeKeys(nil, "secp256k1")
	assert.NoError(t, err)
	assert.Nil(t, sk)
	assert.Nil(t, pk)
}

func TestBuildServicesWithoutLedger(t *testing.T) {
	dir := t.TempDir()
	info := DefaultDisclosureInfo()
	info.DataDir = filepath.Join(dir, "data")

	services, err := BuildServices(info)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.NotEmpty(t, services.Info.SessionID)
	assert.Nil(t, services.Info.DB)
	assert.Nil(t, services.Info.IPFSSh)
	assert.Equal(t, "secp256k1", services.Curve.Name())
	assert.Same(t, services.TimeLock.Keys, services.KeyExchange.Keys)

	prover, ok := services.Info.Prover.(*gnarkvm.Prover)
	if assert.True(t, ok) {
		assert.Empty(t, prover.SRSPath)
	}
}
