package appinit

import (
	"fmt"
	"io/ioutil"

	errors "github.com/pkg/errors"
	"github.com/zkpoex/disclosure/pkg/kexkeyutils"
)

// KeyPairLocation records the paths to the local private key and the counterparty's public key. Either may be empty.
type KeyPairLocation struct {
	PrivateKey string `yaml:"privateKey"` // The path to the local private key
	PublicKey  string `yaml:"publicKey"`  // The path to the vendor's public key
}

// LoadKeyExchangeKeys loads the keys specified in `location` and checks that they belong to `curve`. A key whose path
// is empty is returned as nil.
//
// Parameters:
//   a key pair location object
//   the name of the curve in use
//
// Returns:
//   the raw private scalar and the uncompressed public point
func LoadKeyExchangeKeys(location *KeyPairLocation, curve string) (privKey []byte, pubKey []byte, err error) {
	if location == nil {
		return
	}

	if location.PrivateKey != "" {
		privKeyPem, e := ioutil.ReadFile(location.PrivateKey)
		if e != nil {
			err = errors.Wrap(e, "无法读取本地私钥")
			return
		}

		keyCurve, raw, e := kexkeyutils.ReadPrivateKeyPEM(privKeyPem)
		if e != nil {
			err = errors.Wrap(e, "无法解析本地私钥")
			return
		}
		if keyCurve != curve {
			err = fmt.Errorf("本地私钥属于曲线 %v，但当前使用曲线 %v", keyCurve, curve)
			return
		}
		privKey = raw
	}

	if location.PublicKey != "" {
		pubKeyPem, e := ioutil.ReadFile(location.PublicKey)
		if e != nil {
			err = errors.Wrap(e, "无法读取对方公钥")
			return
		}

		keyCurve, raw, e := kexkeyutils.ReadPublicKeyPEM(pubKeyPem)
		if e != nil {
			err = errors.Wrap(e, "无法解析对方公钥")
			return
		}
		if keyCurve != curve {
			err = fmt.Errorf("对方公钥属于曲线 %v，但当前使用曲线 %v", keyCurve, curve)
			return
		}
		pubKey = raw
	}

	return
}
