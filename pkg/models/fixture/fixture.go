// Package fixture 包含交给验证方测试框架的测试夹具。字段名与 JSON 键名均为约定的一部分，不可随意修改。
package fixture

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// File names of the fixtures.
const (
	ZkPoExFileName = "zkpoex_fixture.json"
	EcdhFileName   = "ecdh_fixture.json"
)

// ByteArray is rendered as a JSON array of numbers instead of Base64.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(']')

	return []byte(sb.String()), nil
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	out := make(ByteArray, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("第 %v 个元素 %v 超出字节范围", i, v)
		}
		out[i] = byte(v)
	}

	*b = out
	return nil
}

// ZkPoExFixture 为时间锁披露会话的测试夹具
type ZkPoExFixture struct {
	Key                ByteArray `json:"key" mapstructure:"key"`                               // 对称密钥（32 字节）
	Nonce              ByteArray `json:"nonce" mapstructure:"nonce"`                           // 本会话的 nonce（12 字节）
	Round              uint64    `json:"round" mapstructure:"round"`                           // 披露轮次
	Before             string    `json:"before" mapstructure:"before"`                         // 执行前状态承诺
	After              string    `json:"after" mapstructure:"after"`                           // 执行后状态承诺
	HashPrivateInputs  string    `json:"hashPrivateInputs" mapstructure:"hashPrivateInputs"`   // 私有输入的哈希
	ChachaCipher       ByteArray `json:"chachaCipher" mapstructure:"chachaCipher"`             // calldata 的对称密文
	TlockCipher        ByteArray `json:"tlockCipher" mapstructure:"tlockCipher"`               // 密钥的时间锁密文
	Calldata           string    `json:"calldata" mapstructure:"calldata"`                     // 被证明的 calldata
	BlockchainSettings string    `json:"blockchainSettings" mapstructure:"blockchainSettings"` // 执行环境设置（JSON）
	VKey               string    `json:"vkey" mapstructure:"vkey"`                             // 验证密钥标识
}

// EcdhFixture 为点对点披露会话的测试夹具
type EcdhFixture struct {
	LocalSk      string `json:"localSk" mapstructure:"localSk"`           // 本地私钥（十六进制，无 0x 前缀）
	VendorPk     string `json:"vendorPk" mapstructure:"vendorPk"`         // 对方公钥（十六进制，无 0x 前缀）
	VKey         string `json:"vkey" mapstructure:"vkey"`                 // 验证密钥标识
	KeyHash      string `json:"keyHash" mapstructure:"keyHash"`           // keccak256(key)（十六进制，无 0x 前缀）
	PublicValues string `json:"publicValues" mapstructure:"publicValues"` // 公开值（0x 十六进制）
	Proof        string `json:"proof" mapstructure:"proof"`               // 证明（0x 十六进制）
}

// Digest 计算夹具的 SHA-256 摘要（Base64 编码），用于在 IPFS 与会话账本之间核对夹具内容。
func Digest(fixture interface{}) (string, error) {
	if fixture == nil {
		return "", fmt.Errorf("夹具对象不能为 nil")
	}

	fixtureAsMap := make(map[string]interface{})
	err := mapstructure.Decode(fixture, &fixtureAsMap)
	if err != nil {
		return "", errors.Wrap(err, "无法序列化夹具")
	}

	fixtureBytes, err := json.Marshal(fixtureAsMap)
	if err != nil {
		return "", errors.Wrap(err, "无法序列化夹具")
	}

	hash := sha256.Sum256(fixtureBytes)
	return base64.StdEncoding.EncodeToString(hash[:]), nil
}
