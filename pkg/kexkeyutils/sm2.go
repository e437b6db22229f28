package kexkeyutils

import (
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/tjfoc/gmsm/x509"
)

// PEM block types of SM2 keys.
const (
	PEMTypeSM2PrivateKey = "PRIVATE KEY"
	PEMTypeSM2PublicKey  = "PUBLIC KEY"
)

// Convert a PEM formatted private key to an `sm2.PrivateKey` object.
func ConvertPEMToSM2PrivateKey(pemBytes []byte) (*sm2.PrivateKey, error) {
	block, err := decodePEM(pemBytes, PEMTypeSM2PrivateKey)
	if err != nil {
		return nil, err
	}

	parsedPrivKey, err := x509.ParsePKCS8UnecryptedPrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert PEM to SM2 private key")
	}

	return parsedPrivKey, nil
}

// Convert an `sm2.PrivateKey` object to PEM formatted bytes.
func ConvertSM2PrivateKeyToPEM(privKey *sm2.PrivateKey) ([]byte, error) {
	privKeyDer, err := x509.MarshalSm2UnecryptedPrivateKey(privKey)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert private key to PEM")
	}

	return pem.EncodeToMemory(&pem.Block{Type: PEMTypeSM2PrivateKey, Bytes: privKeyDer}), nil
}

// Convert a big integer to an `sm2.PrivateKey` object.
func ConvertBigIntegerToSM2PrivateKey(d *big.Int) *sm2.PrivateKey {
	c := sm2.P256Sm2()

	priv := new(sm2.PrivateKey)
	priv.PublicKey.Curve = c
	priv.D = d
	priv.PublicKey.X, priv.PublicKey.Y = c.ScalarBaseMult(d.Bytes())

	return priv
}

// Convert a PEM formatted public key to an `sm2.PublicKey` object.
func ConvertPEMToSM2PublicKey(pemBytes []byte) (*sm2.PublicKey, error) {
	block, err := decodePEM(pemBytes, PEMTypeSM2PublicKey)
	if err != nil {
		return nil, err
	}

	parsedPubKey, err := x509.ParseSm2PublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert PEM to SM2 public key")
	}

	return parsedPubKey, nil
}

// Convert an `sm2.PublicKey` object to PEM formatted bytes.
func ConvertSM2PublicKeyToPEM(pubKey *sm2.PublicKey) ([]byte, error) {
	pubKeyDer, err := x509.MarshalSm2PublicKey(pubKey)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert public key to PEM")
	}

	return pem.EncodeToMemory(&pem.Block{Type: PEMTypeSM2PublicKey, Bytes: pubKeyDer}), nil
}

// Convert two big integers (a point on curve P256Sm2) to an `sm2.PublicKey` object.
func ConvertBigIntegersToSM2PublicKey(x *big.Int, y *big.Int) (*sm2.PublicKey, error) {
	c := sm2.P256Sm2()
	if isOnCurve := c.IsOnCurve(x, y); !isOnCurve {
		return nil, fmt.Errorf("cannot convert big integers to public key because the point is not on curve P256Sm2")
	}

	pub := new(sm2.PublicKey)
	pub.Curve = c
	pub.X = x
	pub.Y = y

	return pub, nil
}

// SM2PublicKeyBytes renders a public key as an uncompressed SEC1 point (0x04 | X | Y).
func SM2PublicKeyBytes(pubKey *sm2.PublicKey) []byte {
	b := make([]byte, 65)
	b[0] = 4
	pubKey.X.FillBytes(b[1:33])
	pubKey.Y.FillBytes(b[33:])
	return b
}

// ParseSM2PublicKeyBytes parses an uncompressed SEC1 point on P256Sm2.
func ParseSM2PublicKeyBytes(b []byte) (*sm2.PublicKey, error) {
	if len(b) != 65 || b[0] != 4 {
		return nil, fmt.Errorf("SM2 public key must be a 65-byte uncompressed point")
	}

	return ConvertBigIntegersToSM2PublicKey(new(big.Int).SetBytes(b[1:33]), new(big.Int).SetBytes(b[33:]))
}

// SM2PrivateKeyBytes renders the private scalar as 32 big-endian bytes.
func SM2PrivateKeyBytes(privKey *sm2.PrivateKey) []byte {
	b := make([]byte, 32)
	privKey.D.FillBytes(b)
	return b
}
