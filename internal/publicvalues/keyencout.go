package publicvalues

import (
	"bytes"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// KeyEncOut are the public values of the peer-targeted program, mirroring the Solidity struct
//
//	struct KeyEncOut { bytes32 keyHash; bytes keyCipher; }
//
// encoded with `abi.encode(out)`, i.e. as one dynamic tuple parameter.
type KeyEncOut struct {
	KeyHash   [32]byte
	KeyCipher []byte
}

var keyEncOutArgs abi.Arguments

func init() {
	tupleType, err := abi.NewType("tuple", "KeyEncOut", []abi.ArgumentMarshaling{
		{Name: "keyHash", Type: "bytes32"},
		{Name: "keyCipher", Type: "bytes"},
	})
	if err != nil {
		panic(err)
	}

	keyEncOutArgs = abi.Arguments{{Name: "out", Type: tupleType}}
}

// EncodeKeyEncOut renders the outputs in their committed layout.
func EncodeKeyEncOut(o *KeyEncOut) ([]byte, error) {
	b, err := keyEncOutArgs.Pack(*o)
	if err != nil {
		return nil, errors.Wrap(err, "无法 ABI 编码 KeyEncOut")
	}

	return b, nil
}

// DecodeKeyEncOut decodes public values of the peer-targeted program. The input must be the canonical encoding: it is
// re-encoded after decoding and any difference (extra padding, dirty offsets, trailing bytes) yields
// `errorcode.ErrorPublicValueDecode`.
func DecodeKeyEncOut(b []byte) (*KeyEncOut, error) {
	o, err := decodeKeyEncOut(b)
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorPublicValueDecode, errorcode.StageDecode, err)
	}

	return o, nil
}

func decodeKeyEncOut(b []byte) (*KeyEncOut, error) {
	vals, err := keyEncOutArgs.Unpack(b)
	if err != nil {
		return nil, errors.Wrap(err, "无法 ABI 解码 KeyEncOut")
	}
	if len(vals) != 1 {
		return nil, errors.Errorf("expected 1 value, got %v", len(vals))
	}

	// Unpack yields an anonymous struct with the same field names and types
	v := reflect.ValueOf(vals[0])
	target := reflect.TypeOf(KeyEncOut{})
	if !v.Type().ConvertibleTo(target) {
		return nil, errors.Errorf("unexpected decoded type %v", v.Type())
	}
	o := v.Convert(target).Interface().(KeyEncOut)

	reencoded, err := EncodeKeyEncOut(&o)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(reencoded, b) {
		return nil, errors.Errorf("non-canonical encoding: %v bytes given, %v bytes expected", len(b), len(reencoded))
	}

	return &o, nil
}
