// Package programs holds the stdin layouts of the two proving programs and reference guests that execute them
// natively for the gnark backend.
package programs

import (
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/codec/bincode"
)

// Program IDs.
const (
	ZkPoExProgramID = "zkpoex"
	EcdhProgramID   = "ecdh"
)

// ZkPoExInputs is the stdin of the time-delayed program, the bincode tuple
// `([u8; 32], [u8; 12], String, String, Vec<u8>, u64)`.
type ZkPoExInputs struct {
	Key                [32]byte
	Nonce              [12]byte
	Calldata           string
	BlockchainSettings string
	BeaconPublicKey    []byte
	Round              uint64
}

func (in *ZkPoExInputs) Encode() []byte {
	return bincode.NewEncoder().
		WriteFixed(in.Key[:]).
		WriteFixed(in.Nonce[:]).
		WriteString(in.Calldata).
		WriteString(in.BlockchainSettings).
		WriteBytes(in.BeaconPublicKey).
		WriteU64(in.Round).
		Bytes()
}

func DecodeZkPoExInputs(b []byte) (*ZkPoExInputs, error) {
	d := bincode.NewDecoder(b)
	in := &ZkPoExInputs{}

	key, err := d.ReadFixed(32)
	if err != nil {
		return nil, errors.Wrap(err, "key")
	}
	copy(in.Key[:], key)

	nonce, err := d.ReadFixed(12)
	if err != nil {
		return nil, errors.Wrap(err, "nonce")
	}
	copy(in.Nonce[:], nonce)

	if in.Calldata, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "calldata")
	}
	if in.BlockchainSettings, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "blockchain_settings")
	}
	if in.BeaconPublicKey, err = d.ReadBytes(); err != nil {
		return nil, errors.Wrap(err, "drand_master_key")
	}
	if in.Round, err = d.ReadU64(); err != nil {
		return nil, errors.Wrap(err, "round")
	}

	return in, d.Finish()
}

// EcdhInputs is the stdin of the peer-targeted program, the bincode tuple `([u8; 32], [u8; 12], Vec<u8>, Vec<u8>)`.
type EcdhInputs struct {
	Key             [32]byte
	Nonce           [12]byte
	LocalPrivateKey []byte
	VendorPublicKey []byte
}

func (in *EcdhInputs) Encode() []byte {
	return bincode.NewEncoder().
		WriteFixed(in.Key[:]).
		WriteFixed(in.Nonce[:]).
		WriteBytes(in.LocalPrivateKey).
		WriteBytes(in.VendorPublicKey).
		Bytes()
}

func DecodeEcdhInputs(b []byte) (*EcdhInputs, error) {
	d := bincode.NewDecoder(b)
	in := &EcdhInputs{}

	key, err := d.ReadFixed(32)
	if err != nil {
		return nil, errors.Wrap(err, "key")
	}
	copy(in.Key[:], key)

	nonce, err := d.ReadFixed(12)
	if err != nil {
		return nil, errors.Wrap(err, "nonce")
	}
	copy(in.Nonce[:], nonce)

	if in.LocalPrivateKey, err = d.ReadBytes(); err != nil {
		return nil, errors.Wrap(err, "local_sk")
	}
	if in.VendorPublicKey, err = d.ReadBytes(); err != nil {
		return nil, errors.Wrap(err, "vendor_pk")
	}

	return in, d.Finish()
}
