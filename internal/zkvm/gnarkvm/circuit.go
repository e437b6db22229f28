package gnarkvm

import (
	"crypto/sha256"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	gmimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/pkg/errors"
)

// disclosureCircuit binds a program execution to its public values: the prover knows a 32-byte secret whose MiMC
// commitment is public, and the public values digest is part of the statement.
type disclosureCircuit struct {
	PublicValuesDigest frontend.Variable `gnark:",public"`
	KeyCommitment      frontend.Variable `gnark:",public"`

	KeyHi frontend.Variable `gnark:",secret"` // 秘密的高 16 字节
	KeyLo frontend.Variable `gnark:",secret"` // 秘密的低 16 字节
}

func (c *disclosureCircuit) Define(api frontend.API) error {
	h, err := gmimc.NewMiMC(api)
	if err != nil {
		return errors.Wrap(err, "无法初始化 MiMC")
	}

	api.ToBinary(c.KeyHi, 128)
	api.ToBinary(c.KeyLo, 128)

	h.Write(c.KeyHi, c.KeyLo)
	api.AssertIsEqual(h.Sum(), c.KeyCommitment)
	api.AssertIsDifferent(c.PublicValuesDigest, 0)

	return nil
}

// publicValuesDigest hashes the public values into a BN254 scalar.
func publicValuesDigest(publicValues []byte) *big.Int {
	d := sha256.Sum256(publicValues)
	d[0] &= 0x1f
	return new(big.Int).SetBytes(d[:])
}

// keyCommitment computes MiMC(hi, lo) natively.
func keyCommitment(secret []byte) ([]byte, error) {
	if len(secret) != 32 {
		return nil, errors.Errorf("秘密长度应为 32 字节，实际为 %v 字节", len(secret))
	}

	var hi, lo [32]byte
	copy(hi[16:], secret[:16])
	copy(lo[16:], secret[16:])

	h := mimc.NewMiMC()
	if _, err := h.Write(hi[:]); err != nil {
		return nil, errors.Wrap(err, "无法计算承诺")
	}
	if _, err := h.Write(lo[:]); err != nil {
		return nil, errors.Wrap(err, "无法计算承诺")
	}

	return h.Sum(nil), nil
}

func assignment(publicValues []byte, secret []byte) (*disclosureCircuit, []byte, error) {
	commitment, err := keyCommitment(secret)
	if err != nil {
		return nil, nil, err
	}

	return &disclosureCircuit{
		PublicValuesDigest: publicValuesDigest(publicValues),
		KeyCommitment:      new(big.Int).SetBytes(commitment),
		KeyHi:              new(big.Int).SetBytes(secret[:16]),
		KeyLo:              new(big.Int).SetBytes(secret[16:]),
	}, commitment, nil
}
