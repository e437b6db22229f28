// Package kex derives the key-exchange keypairs of the peer-targeted disclosure path and the symmetric material
// shared between the local party and the vendor.
package kex

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/zkpoex/disclosure/pkg/kexkeyutils"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Curve names.
const (
	CurveSecp256k1 = "secp256k1"
	CurveSM2       = "sm2"
)

// SymmetricKeyInfo is the HKDF info string used to derive the key-wrapping key from an ECDH shared secret.
const SymmetricKeyInfo = "zkpoex-ecdh-key"

// KeyPair is one party's key-exchange keypair. `PublicKey` is an uncompressed SEC1 point.
type KeyPair struct {
	PrivateKey []byte
	PublicKey  []byte
}

// Curve is an elliptic curve usable for ECDH.
type Curve interface {
	Name() string
	// KeyPairFromSeed uses the 32-byte seed as the private scalar.
	KeyPairFromSeed(seed [32]byte) (*KeyPair, error)
	KeyPairFromPrivateKey(privateKey []byte) (*KeyPair, error)
	// SharedSecret returns the X coordinate of privateKey·publicKey as 32 bytes.
	SharedSecret(privateKey []byte, publicKey []byte) ([]byte, error)
	ValidatePublicKey(publicKey []byte) error
}

// ByName looks up a curve.
func ByName(name string) (Curve, error) {
	switch name {
	case CurveSecp256k1, "":
		return Secp256k1{}, nil
	case CurveSM2:
		return SM2{}, nil
	default:
		return nil, fmt.Errorf("不支持的曲线 %v", name)
	}
}

// Secp256k1 implements Curve with decred's secp256k1.
type Secp256k1 struct{}

func (Secp256k1) Name() string { return CurveSecp256k1 }

func (c Secp256k1) KeyPairFromSeed(seed [32]byte) (*KeyPair, error) {
	return c.KeyPairFromPrivateKey(seed[:])
}

func (Secp256k1) KeyPairFromPrivateKey(privateKey []byte) (*KeyPair, error) {
	sk, err := parseSecp256k1PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	return &KeyPair{PrivateKey: sk.Serialize(), PublicKey: sk.PubKey().SerializeUncompressed()}, nil
}

func (Secp256k1) SharedSecret(privateKey []byte, publicKey []byte) ([]byte, error) {
	sk, err := parseSecp256k1PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	pk, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析对方公钥")
	}

	return secp256k1.GenerateSharedSecret(sk, pk), nil
}

func (Secp256k1) ValidatePublicKey(publicKey []byte) error {
	if _, err := secp256k1.ParsePubKey(publicKey); err != nil {
		return errors.Wrap(err, "无效的 secp256k1 公钥")
	}

	return nil
}

func parseSecp256k1PrivateKey(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("secp256k1 私钥长度应为 %v 字节，实际为 %v 字节", secp256k1.PrivKeyBytesLen, len(b))
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, fmt.Errorf("secp256k1 私钥不在 [1, n) 范围内")
	}

	return secp256k1.NewPrivateKey(&s), nil
}

// SM2 implements Curve on the P256Sm2 curve of tjfoc/gmsm.
type SM2 struct{}

func (SM2) Name() string { return CurveSM2 }

// KeyPairFromSeed maps the seed into [1, n-1] as d = seed mod (n-1) + 1.
func (c SM2) KeyPairFromSeed(seed [32]byte) (*KeyPair, error) {
	n := sm2.P256Sm2().Params().N
	nMinusOne := new(big.Int).Sub(n, big.NewInt(1))
	d := new(big.Int).SetBytes(seed[:])
	d.Mod(d, nMinusOne).Add(d, big.NewInt(1))

	privKey := kexkeyutils.ConvertBigIntegerToSM2PrivateKey(d)
	return &KeyPair{PrivateKey: kexkeyutils.SM2PrivateKeyBytes(privKey), PublicKey: kexkeyutils.SM2PublicKeyBytes(&privKey.PublicKey)}, nil
}

func (SM2) KeyPairFromPrivateKey(privateKey []byte) (*KeyPair, error) {
	d, err := parseSM2Scalar(privateKey)
	if err != nil {
		return nil, err
	}

	privKey := kexkeyutils.ConvertBigIntegerToSM2PrivateKey(d)
	return &KeyPair{PrivateKey: kexkeyutils.SM2PrivateKeyBytes(privKey), PublicKey: kexkeyutils.SM2PublicKeyBytes(&privKey.PublicKey)}, nil
}

func (SM2) SharedSecret(privateKey []byte, publicKey []byte) ([]byte, error) {
	d, err := parseSM2Scalar(privateKey)
	if err != nil {
		return nil, err
	}

	pk, err := kexkeyutils.ParseSM2PublicKeyBytes(publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析对方公钥")
	}

	x, _ := sm2.P256Sm2().ScalarMult(pk.X, pk.Y, d.Bytes())
	shared := make([]byte, 32)
	x.FillBytes(shared)
	return shared, nil
}

func (SM2) ValidatePublicKey(publicKey []byte) error {
	if _, err := kexkeyutils.ParseSM2PublicKeyBytes(publicKey); err != nil {
		return errors.Wrap(err, "无效的 SM2 公钥")
	}

	return nil
}

func parseSM2Scalar(b []byte) (*big.Int, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("SM2 私钥长度应为 32 字节，实际为 %v 字节", len(b))
	}

	d := new(big.Int).SetBytes(b)
	if d.Sign() == 0 || d.Cmp(sm2.P256Sm2().Params().N) >= 0 {
		return nil, fmt.Errorf("SM2 私钥不在 [1, n) 范围内")
	}

	return d, nil
}

// DeriveSymmetricKey expands an ECDH shared secret into a 32-byte key-wrapping key with HKDF-SHA256.
func DeriveSymmetricKey(shared []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte(SymmetricKeyInfo)), key); err != nil {
		return nil, errors.Wrap(err, "无法派生对称密钥")
	}

	return key, nil
}

// SealKey encrypts the disclosure key under the shared secret. The result is nonce | ChaCha20-Poly1305 ciphertext.
func SealKey(shared []byte, nonce [12]byte, key []byte) ([]byte, error) {
	wrapKey, err := DeriveSymmetricKey(shared)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(wrapKey)
	if err != nil {
		return nil, errors.Wrap(err, "无法创建 AEAD")
	}

	return aead.Seal(append([]byte(nil), nonce[:]...), nonce[:], key, nil), nil
}

// OpenKey reverses SealKey.
func OpenKey(shared []byte, sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("密文过短")
	}

	wrapKey, err := DeriveSymmetricKey(shared)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(wrapKey)
	if err != nil {
		return nil, errors.Wrap(err, "无法创建 AEAD")
	}

	key, err := aead.Open(nil, sealed[:chacha20poly1305.NonceSize], sealed[chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "无法解密密钥")
	}

	return key, nil
}
