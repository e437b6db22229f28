package main

import (
	"crypto/rand"
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/zkpoex/disclosure/pkg/kexkeyutils"
)

// keyPairPEM returns a fresh key pair of the curve as PEM.
func keyPairPEM(curve string) (privKeyPem []byte, pubKeyPem []byte, err error) {
	switch curve {
	case "secp256k1":
		privKey, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, nil, err
		}
		return kexkeyutils.ConvertSecp256k1PrivateKeyToPEM(privKey), kexkeyutils.ConvertSecp256k1PublicKeyToPEM(privKey.PubKey()), nil
	case "sm2":
		privKey, err := sm2.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		privKeyPem, err = kexkeyutils.ConvertSM2PrivateKeyToPEM(privKey)
		if err != nil {
			return nil, nil, err
		}
		pubKeyPem, err = kexkeyutils.ConvertSM2PublicKeyToPEM(&privKey.PublicKey)
		if err != nil {
			return nil, nil, err
		}
		return privKeyPem, pubKeyPem, nil
	default:
		return nil, nil, fmt.Errorf("unsupported curve '%v'", curve)
	}
}

func generateKeys(curve string, dirKeys string, users []string) error {
	// Exit if the dir exists
	if _, err := os.Stat(dirKeys); err == nil {
		return fmt.Errorf("the keys are already generated. Delete the folder first before running again")
	}

	if err := os.MkdirAll(dirKeys, 0755); err != nil {
		return errors.Wrap(err, "cannot create the keys dir")
	}

	for _, user := range users {
		privKeyPem, pubKeyPem, err := keyPairPEM(curve)
		if err != nil {
			return errors.Wrapf(err, "cannot generate a key pair for '%v'", user)
		}

		// Create a directory for the user
		if err = os.MkdirAll(path.Join(dirKeys, user), 0755); err != nil {
			return errors.Wrapf(err, "cannot create the dir for '%v'", user)
		}

		// Save the private key and the public key to files
		if err = ioutil.WriteFile(path.Join(dirKeys, user, "sk"), privKeyPem, 0600); err != nil {
			return errors.Wrapf(err, "cannot save the private key for '%v'", user)
		}

		if err = ioutil.WriteFile(path.Join(dirKeys, user, user+".pem"), pubKeyPem, 0644); err != nil {
			return errors.Wrapf(err, "cannot save the public key for '%v'", user)
		}
	}

	return nil
}
