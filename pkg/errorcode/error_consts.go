package errorcode

import "fmt"

const (
	// CodeNotFound 表示资源未找到。
	CodeNotFound = "~NOTFOUND~"
	// CodeNotImplemented 表示暂时未实现或未启用的功能。
	CodeNotImplemented = "~NOTIMPLEMENTED~"

	// CodeInvalidDuration 表示未给出或无法解析披露时长（且未显式指定轮次）。
	CodeInvalidDuration = "~INVALIDDURATION~"
	// CodeRoundPassed 表示显式指定的披露轮次不晚于当前轮次，密钥将立即可被解开。
	CodeRoundPassed = "~ROUNDPASSED~"
	// CodeKeyNotFound 表示密钥槽中没有先前会话写入的密钥。
	CodeKeyNotFound = "~KEYNOTFOUND~"
	// CodeKeyLengthMismatch 表示密钥槽中的内容不是预期长度的密钥。
	CodeKeyLengthMismatch = "~KEYLENGTHMISMATCH~"
	// CodeKeySlotStale 表示密钥槽内容与其元数据中的摘要不一致，可能被并发或乱序的会话覆盖。
	CodeKeySlotStale = "~KEYSLOTSTALE~"
	// CodeInvalidKeyPair 表示给出的密钥交换私钥或公钥无效。
	CodeInvalidKeyPair = "~INVALIDKEYPAIR~"
	// CodeBeaconUnavailable 表示无法从随机信标获取链信息或轮次签名。
	CodeBeaconUnavailable = "~BEACONUNAVAILABLE~"
	// CodeProvingFailed 表示证明生成失败。
	CodeProvingFailed = "~PROVINGFAILED~"
	// CodePublicValueDecode 表示证明的公开值与约定的布局不符。
	CodePublicValueDecode = "~PUBLICVALUEDECODE~"
	// CodePersistence 表示写入或读取持久化产物时出现 I/O 错误。
	CodePersistence = "~PERSISTENCE~"
)

// ErrorNotFound 为使用了 `CodeNotFound` 的 error 实例
var ErrorNotFound = fmt.Errorf(CodeNotFound)

// ErrorNotImplemented 为使用了 `CodeNotImplemented` 的 error 实例
var ErrorNotImplemented = fmt.Errorf(CodeNotImplemented)

var (
	ErrorInvalidDuration   = fmt.Errorf(CodeInvalidDuration)
	ErrorRoundPassed       = fmt.Errorf(CodeRoundPassed)
	ErrorKeyNotFound       = fmt.Errorf(CodeKeyNotFound)
	ErrorKeyLengthMismatch = fmt.Errorf(CodeKeyLengthMismatch)
	ErrorKeySlotStale      = fmt.Errorf(CodeKeySlotStale)
	ErrorInvalidKeyPair    = fmt.Errorf(CodeInvalidKeyPair)
	ErrorBeaconUnavailable = fmt.Errorf(CodeBeaconUnavailable)
	ErrorProvingFailed     = fmt.Errorf(CodeProvingFailed)
	ErrorPublicValueDecode = fmt.Errorf(CodePublicValueDecode)
	ErrorPersistence       = fmt.Errorf(CodePersistence)
)
