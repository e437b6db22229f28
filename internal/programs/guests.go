package programs

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/kex"
	"github.com/zkpoex/disclosure/internal/publicvalues"
	"github.com/zkpoex/disclosure/internal/zkvm"
	"golang.org/x/crypto/chacha20poly1305"
)

// Registry returns the reference guests keyed by program ID. `curve` is the key-exchange curve of the ecdh guest.
func Registry(curve kex.Curve) map[string]zkvm.Program {
	return map[string]zkvm.Program{
		ZkPoExProgramID: ZkPoEx,
		EcdhProgramID:   Ecdh(curve),
	}
}

// ZkPoEx is the reference time-delayed guest. It commits to the execution context before and after applying the
// calldata, hashes its whole stdin and encrypts the calldata under the session key.
func ZkPoEx(stdin []byte) (*zkvm.Execution, error) {
	in, err := DecodeZkPoExInputs(stdin)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析 zkpoex 输入")
	}

	aead, err := chacha20poly1305.New(in.Key[:])
	if err != nil {
		return nil, errors.Wrap(err, "无法创建 AEAD")
	}

	hashPrivateInputs := sha256.Sum256(stdin)
	out := &publicvalues.ZkPoExOutputs{
		Before:            "0x" + hex.EncodeToString(crypto.Keccak256([]byte(in.BlockchainSettings))),
		After:             "0x" + hex.EncodeToString(crypto.Keccak256([]byte(in.BlockchainSettings), []byte(in.Calldata))),
		HashPrivateInputs: hex.EncodeToString(hashPrivateInputs[:]),
		ChachaCipher:      aead.Seal(nil, in.Nonce[:], []byte(in.Calldata), nil),
	}

	return &zkvm.Execution{PublicValues: publicvalues.EncodeZkPoEx(out), Secret: in.Key[:]}, nil
}

// Ecdh returns the reference peer-targeted guest. It derives the shared secret of the local private key and the
// vendor public key, wraps the session key with it and commits to keccak256(key).
func Ecdh(curve kex.Curve) zkvm.Program {
	return func(stdin []byte) (*zkvm.Execution, error) {
		in, err := DecodeEcdhInputs(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "无法解析 ecdh 输入")
		}

		shared, err := curve.SharedSecret(in.LocalPrivateKey, in.VendorPublicKey)
		if err != nil {
			return nil, errors.Wrap(err, "无法计算共享密钥")
		}

		keyCipher, err := kex.SealKey(shared, in.Nonce, in.Key[:])
		if err != nil {
			return nil, err
		}

		out := &publicvalues.KeyEncOut{KeyCipher: keyCipher}
		copy(out.KeyHash[:], crypto.Keccak256(in.Key[:]))

		publicValues, err := publicvalues.EncodeKeyEncOut(out)
		if err != nil {
			return nil, err
		}

		return &zkvm.Execution{PublicValues: publicValues, Secret: in.Key[:]}, nil
	}
}
