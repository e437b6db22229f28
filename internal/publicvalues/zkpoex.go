// Package publicvalues defines the layouts of the public values committed by the two proving programs. The same
// definitions are used by the programs that produce them, the services that decode them and the tests.
package publicvalues

import (
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/codec/bincode"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// Schema versions. A change to either layout must bump the matching version.
const (
	ZkPoExSchemaVersion    = 1
	KeyEncOutSchemaVersion = 1
)

// ZkPoExOutputs are the public values of the time-delayed program. On the wire it is the bincode tuple
// `(String, String, String, Vec<u8>, String)` in field order.
type ZkPoExOutputs struct {
	Before            string // 执行前状态承诺
	After             string // 执行后状态承诺
	HashPrivateInputs string
	ChachaCipher      []byte // 程序内生成的对称密文
	Reserved          string // 保留字段，当前为空串
}

// EncodeZkPoEx renders the outputs in their committed layout.
func EncodeZkPoEx(o *ZkPoExOutputs) []byte {
	return bincode.NewEncoder().
		WriteString(o.Before).
		WriteString(o.After).
		WriteString(o.HashPrivateInputs).
		WriteBytes(o.ChachaCipher).
		WriteString(o.Reserved).
		Bytes()
}

// DecodeZkPoEx decodes public values of the time-delayed program. Any deviation from the layout, including trailing
// bytes, yields `errorcode.ErrorPublicValueDecode`.
func DecodeZkPoEx(b []byte) (*ZkPoExOutputs, error) {
	o, err := decodeZkPoEx(b)
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorPublicValueDecode, errorcode.StageDecode, err)
	}

	return o, nil
}

func decodeZkPoEx(b []byte) (o *ZkPoExOutputs, err error) {
	d := bincode.NewDecoder(b)
	o = &ZkPoExOutputs{}

	if o.Before, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "before")
	}
	if o.After, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "after")
	}
	if o.HashPrivateInputs, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "hash_private_inputs")
	}
	if o.ChachaCipher, err = d.ReadBytes(); err != nil {
		return nil, errors.Wrap(err, "chacha_cipher")
	}
	if o.Reserved, err = d.ReadString(); err != nil {
		return nil, errors.Wrap(err, "reserved")
	}
	if err = d.Finish(); err != nil {
		return nil, err
	}

	return o, nil
}
