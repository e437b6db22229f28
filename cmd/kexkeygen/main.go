package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// $ go run ./cmd/kexkeygen secp256k1 cmd/kexkeygen/users.yaml kexkeys
func main() {
	if len(os.Args) < 3 || len(os.Args) > 4 {
		fmt.Println("Usage: go run ./cmd/kexkeygen <secp256k1|sm2> <users_path> [keys_dir]")
		return
	}

	curve := os.Args[1]
	dirKeys := "kexkeys"
	if len(os.Args) == 4 {
		dirKeys = os.Args[3]
	}

	// Load the config, generate and save keys
	users, err := loadConfig(os.Args[2])
	if err != nil {
		log.Fatalln(err)
	}

	if err = generateKeys(curve, dirKeys, users); err != nil {
		log.Fatalln(err)
	}

	log.Infof("已为 %v 个用户生成 %v 密钥对，保存在 %v", len(users), curve, dirKeys)
}

func loadConfig(filePath string) ([]string, error) {
	fileBytes, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	users := []string{}
	if err = yaml.Unmarshal(fileBytes, &users); err != nil {
		return nil, errors.Wrap(err, "cannot load config file")
	}

	return users, nil
}
