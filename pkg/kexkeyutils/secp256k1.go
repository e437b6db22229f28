// Package kexkeyutils converts key-exchange keys between their raw byte forms and PEM files.
package kexkeyutils

import (
	"encoding/pem"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// PEM block types of secp256k1 keys. The block holds the raw 32-byte scalar or the 65-byte uncompressed point.
const (
	PEMTypeSecp256k1PrivateKey = "SECP256K1 PRIVATE KEY"
	PEMTypeSecp256k1PublicKey  = "SECP256K1 PUBLIC KEY"
)

// Convert a PEM formatted private key to a `secp256k1.PrivateKey` object.
func ConvertPEMToSecp256k1PrivateKey(pemBytes []byte) (*secp256k1.PrivateKey, error) {
	block, err := decodePEM(pemBytes, PEMTypeSecp256k1PrivateKey)
	if err != nil {
		return nil, err
	}

	if len(block.Bytes) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("secp256k1 private key must be %v bytes, got %v", secp256k1.PrivKeyBytesLen, len(block.Bytes))
	}

	privKey := secp256k1.PrivKeyFromBytes(block.Bytes)
	if privKey.Key.IsZero() {
		return nil, fmt.Errorf("secp256k1 private key is zero")
	}

	return privKey, nil
}

// Convert a `secp256k1.PrivateKey` object to PEM formatted bytes.
func ConvertSecp256k1PrivateKeyToPEM(privKey *secp256k1.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: PEMTypeSecp256k1PrivateKey, Bytes: privKey.Serialize()})
}

// Convert a PEM formatted public key to a `secp256k1.PublicKey` object.
func ConvertPEMToSecp256k1PublicKey(pemBytes []byte) (*secp256k1.PublicKey, error) {
	block, err := decodePEM(pemBytes, PEMTypeSecp256k1PublicKey)
	if err != nil {
		return nil, err
	}

	pubKey, err := secp256k1.ParsePubKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert PEM to secp256k1 public key")
	}

	return pubKey, nil
}

// Convert a `secp256k1.PublicKey` object to PEM formatted bytes.
func ConvertSecp256k1PublicKeyToPEM(pubKey *secp256k1.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: PEMTypeSecp256k1PublicKey, Bytes: pubKey.SerializeUncompressed()})
}

// ReadPrivateKeyPEM returns the raw private scalar held in an SM2 or secp256k1 private key PEM file, along with the
// curve name.
func ReadPrivateKeyPEM(pemBytes []byte) (curve string, raw []byte, err error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return "", nil, fmt.Errorf("no PEM block found")
	}

	switch block.Type {
	case PEMTypeSecp256k1PrivateKey:
		privKey, err := ConvertPEMToSecp256k1PrivateKey(pemBytes)
		if err != nil {
			return "", nil, err
		}
		return "secp256k1", privKey.Serialize(), nil
	case PEMTypeSM2PrivateKey:
		privKey, err := ConvertPEMToSM2PrivateKey(pemBytes)
		if err != nil {
			return "", nil, err
		}
		return "sm2", SM2PrivateKeyBytes(privKey), nil
	default:
		return "", nil, fmt.Errorf("unsupported PEM block type '%v'", block.Type)
	}
}

// ReadPublicKeyPEM returns the uncompressed public point held in an SM2 or secp256k1 public key PEM file, along with
// the curve name.
func ReadPublicKeyPEM(pemBytes []byte) (curve string, raw []byte, err error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return "", nil, fmt.Errorf("no PEM block found")
	}

	switch block.Type {
	case PEMTypeSecp256k1PublicKey:
		pubKey, err := ConvertPEMToSecp256k1PublicKey(pemBytes)
		if err != nil {
			return "", nil, err
		}
		return "secp256k1", pubKey.SerializeUncompressed(), nil
	case PEMTypeSM2PublicKey:
		pubKey, err := ConvertPEMToSM2PublicKey(pemBytes)
		if err != nil {
			return "", nil, err
		}
		return "sm2", SM2PublicKeyBytes(pubKey), nil
	default:
		return "", nil, fmt.Errorf("unsupported PEM block type '%v'", block.Type)
	}
}

func decodePEM(pemBytes []byte, expectedType string) (*pem.Block, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if block.Type != expectedType {
		return nil, fmt.Errorf("expected PEM block type '%v', got '%v'", expectedType, block.Type)
	}

	return block, nil
}
