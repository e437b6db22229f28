// Package zkvm is the interface of the proving collaborator: programs are set up once per (program, strength) and then
// proven on serialized stdin. The proof carries the program's public values verbatim.
package zkvm

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/codec/bincode"
)

// Strength selects the proof system.
type Strength uint64

const (
	// Compact proofs are small but costlier to verify on-chain. Used by the time-delayed path.
	Compact Strength = iota + 1
	// Succinct proofs have constant size and cheap fixed-cost verification. Used by the peer-targeted path.
	Succinct
)

func (s Strength) String() string {
	switch s {
	case Compact:
		return "compact"
	case Succinct:
		return "succinct"
	default:
		return fmt.Sprintf("strength(%d)", uint64(s))
	}
}

// Execution is the native run of a program on its stdin.
type Execution struct {
	PublicValues []byte
	// Secret is the 32-byte witness the proof commits to without revealing it.
	Secret []byte
}

// Program executes a guest program natively.
type Program func(stdin []byte) (*Execution, error)

// Keys are the setup artifacts of one program at one strength. Handle is backend-specific.
type Keys struct {
	ProgramID string
	Strength  Strength
	VKey      string // "0x"-prefixed hex identifier of the verifying key
	Handle    interface{}
}

// Prover is the proving collaborator.
type Prover interface {
	Setup(ctx context.Context, programID string, strength Strength) (*Keys, error)
	Prove(ctx context.Context, keys *Keys, stdin []byte) (*Proof, error)
}

const proofEnvelopeVersion = 1

// Proof is one proving result.
type Proof struct {
	ProgramID    string
	Strength     Strength
	VKey         string
	PublicValues []byte
	Proof        []byte
}

// PublicValuesHex renders the public values as "0x"-prefixed hex.
func (p *Proof) PublicValuesHex() string {
	return "0x" + hex.EncodeToString(p.PublicValues)
}

// ProofHex renders the proof bytes as "0x"-prefixed hex.
func (p *Proof) ProofHex() string {
	return "0x" + hex.EncodeToString(p.Proof)
}

// EncodeProof serializes a proof into the envelope saved next to the fixtures.
func EncodeProof(p *Proof) []byte {
	return bincode.NewEncoder().
		WriteU64(proofEnvelopeVersion).
		WriteString(p.ProgramID).
		WriteU64(uint64(p.Strength)).
		WriteString(p.VKey).
		WriteBytes(p.PublicValues).
		WriteBytes(p.Proof).
		Bytes()
}

// DecodeProof reverses EncodeProof.
func DecodeProof(b []byte) (*Proof, error) {
	d := bincode.NewDecoder(b)

	version, err := d.ReadU64()
	if err != nil {
		return nil, errors.Wrap(err, "无法读取证明文件版本")
	}
	if version != proofEnvelopeVersion {
		return nil, fmt.Errorf("不支持的证明文件版本 %v", version)
	}

	p := &Proof{}
	if p.ProgramID, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "无法读取程序 ID")
	}
	strength, err := d.ReadU64()
	if err != nil {
		return nil, errors.Wrap(err, "无法读取证明强度")
	}
	p.Strength = Strength(strength)
	if p.VKey, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "无法读取验证密钥标识")
	}
	if p.PublicValues, err = d.ReadBytes(); err != nil {
		return nil, errors.Wrap(err, "无法读取公开值")
	}
	if p.Proof, err = d.ReadBytes(); err != nil {
		return nil, errors.Wrap(err, "无法读取证明")
	}
	if err = d.Finish(); err != nil {
		return nil, err
	}

	return p, nil
}
