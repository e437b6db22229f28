package programs

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/internal/kex"
	"github.com/zkpoex/disclosure/internal/publicvalues"
)

func sampleZkPoExInputs() *ZkPoExInputs {
	in := &ZkPoExInputs{
		Calldata:           "0xdeadbeef",
		BlockchainSettings: `{"chain_id":"1"}`,
		BeaconPublicKey:    []byte{1, 2, 3},
		Round:              42,
	}
	in.Key[0] = 1
	in.Nonce[0] = 2
	return in
}

func TestZkPoExIsDeterministic(t *testing.T) {
	stdin := sampleZkPoExInputs().Encode()

	first, err := ZkPoEx(stdin)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	second, err := ZkPoEx(stdin)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, first.PublicValues, second.PublicValues)

	out, err := publicvalues.DecodeZkPoEx(first.PublicValues)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Len(t, out.Before, 66)
	assert.NotEqual(t, out.Before, out.After)
	assert.Len(t, out.HashPrivateInputs, 64)
	assert.Len(t, out.ChachaCipher, len("0xdeadbeef")+16)
	assert.Equal(t, "", out.Reserved)
}

func TestZkPoExInputsLayout(t *testing.T) {
	in := sampleZkPoExInputs()
	b := in.Encode()

	// key | nonce | len+calldata | len+settings | len+pk | round
	assert.Equal(t, 32+12+8+10+8+16+8+3+8, len(b))

	decoded, err := DecodeZkPoExInputs(b)
	assert.NoError(t, err)
	assert.Equal(t, in, decoded)

	_, err = DecodeZkPoExInputs(b[:len(b)-1])
	assert.Error(t, err)
}

func TestEcdhGuest(t *testing.T) {
	curve := kex.Secp256k1{}
	local, err := curve.KeyPairFromSeed([32]byte(bytes.Repeat([]byte{12}, 32)))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	vendor, err := curve.KeyPairFromSeed([32]byte(bytes.Repeat([]byte{13}, 32)))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	in := &EcdhInputs{LocalPrivateKey: local.PrivateKey, VendorPublicKey: vendor.PublicKey}
	copy(in.Key[:], bytes.Repeat([]byte{9}, 32))
	in.Nonce[11] = 1

	exec, err := Ecdh(curve)(in.Encode())
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	out, err := publicvalues.DecodeKeyEncOut(exec.PublicValues)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, crypto.Keccak256(in.Key[:]), out.KeyHash[:])

	// The vendor recovers the key with its own private key
	shared, err := curve.SharedSecret(vendor.PrivateKey, local.PublicKey)
	assert.NoError(t, err)
	key, err := kex.OpenKey(shared, out.KeyCipher)
	assert.NoError(t, err)
	assert.Equal(t, in.Key[:], key)
}

func TestEcdhGuestRejectsBadPublicKey(t *testing.T) {
	in := &EcdhInputs{LocalPrivateKey: bytes.Repeat([]byte{12}, 32), VendorPublicKey: []byte{4, 1, 2}}
	_, err := Ecdh(kex.Secp256k1{})(in.Encode())
	assert.Error(t, err)
}
