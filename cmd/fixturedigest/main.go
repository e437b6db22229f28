package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

// calculateDigest parses the fixture with the type its file name implies and digests it the same way the disclosure
// sessions do before publishing.
func calculateDigest(fixturePath string, data []byte) (string, error) {
	var v interface{}
	switch filepath.Base(fixturePath) {
	case fixture.ZkPoExFileName:
		v = &fixture.ZkPoExFixture{}
	case fixture.EcdhFileName:
		v = &fixture.EcdhFixture{}
	default:
		return "", fmt.Errorf("无法识别的测试夹具文件名 '%v'", filepath.Base(fixturePath))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return "", errors.Wrap(err, "无法解析测试夹具")
	}

	return fixture.Digest(v)
}

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: go run ./cmd/fixturedigest <fixture_path>")
		return
	}

	fixturePath := os.Args[1]

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		fmt.Printf("无法读取测试夹具：%v\n", err)
		os.Exit(1)
	}

	digest, err := calculateDigest(fixturePath, data)
	if err != nil {
		fmt.Printf("无法计算测试夹具摘要：%v\n", err)
		os.Exit(1)
	}

	// $ go run ./cmd/fixturedigest fixtures/ecdh_fixture.json
	fmt.Println(digest)
}
