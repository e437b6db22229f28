// Package keymgmt owns the shared session key: it is generated once by the time-delayed session, kept in a
// well-known slot in the working-state directory and borrowed by later sessions.
//
// The slot is not locked. Running a loader before the generator, or two generators at once, is a caller error; the
// sidecar metadata only lets a loader notice that the key it read is not the one the metadata was written for.
package keymgmt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

const (
	KeySize   = 32
	NonceSize = 12

	// SlotName is the file name the verifier's test harness reads the key from.
	SlotName = "zkpoex_enc_key"
	// SlotMetadataSuffix is appended to SlotName for the sidecar.
	SlotMetadataSuffix = ".meta.json"

	SlotVersion = 1
)

type Key [KeySize]byte

type Nonce [NonceSize]byte

// SlotMetadata describes the key currently in the slot.
type SlotMetadata struct {
	Version    int       `json:"version"`
	Generation string    `json:"generation"`
	SHA256     string    `json:"sha256"`
	SessionID  string    `json:"sessionId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Slot stores "the current key".
type Slot interface {
	Store(ctx context.Context, key Key, meta *SlotMetadata) error
	// Load returns the key with its metadata. The metadata is nil when the slot has none.
	Load(ctx context.Context) (Key, *SlotMetadata, error)
}

// FileSlot keeps the raw key bytes as a blob of an artifact store, with the metadata in a JSON sidecar.
type FileSlot struct {
	Blobs *artifact.Store
}

func NewFileSlot(blobs *artifact.Store) *FileSlot {
	return &FileSlot{Blobs: blobs}
}

// Path returns the path of the raw key file.
func (s *FileSlot) Path() string {
	return s.Blobs.BlobPath(SlotName)
}

// Store writes the key, then the sidecar. A crash in between leaves a sidecar whose digest no longer matches.
func (s *FileSlot) Store(ctx context.Context, key Key, meta *SlotMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.Blobs.WriteBlob(SlotName, key[:]); err != nil {
		return errors.Wrap(err, "无法写入密钥槽")
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errorcode.New(errorcode.ErrorPersistence, errorcode.StagePersist, errors.Wrap(err, "无法序列化密钥槽元数据"))
	}
	if err = s.Blobs.WriteBlob(SlotName+SlotMetadataSuffix, metaBytes); err != nil {
		return errors.Wrap(err, "无法写入密钥槽元数据")
	}

	return nil
}

func (s *FileSlot) Load(ctx context.Context) (Key, *SlotMetadata, error) {
	var key Key
	if err := ctx.Err(); err != nil {
		return key, nil, err
	}

	raw, err := s.Blobs.ReadBlob(SlotName)
	if errors.Cause(err) == errorcode.ErrorNotFound {
		return key, nil, errorcode.New(errorcode.ErrorKeyNotFound, errorcode.StageKey, errors.Errorf("%v 不存在，请先运行时间锁会话", s.Path()))
	} else if err != nil {
		return key, nil, err
	}

	if len(raw) != KeySize {
		return key, nil, errorcode.New(errorcode.ErrorKeyLengthMismatch, errorcode.StageKey, errors.Errorf("期望 %v 字节，实际为 %v 字节", KeySize, len(raw)))
	}
	copy(key[:], raw)

	metaBytes, err := s.Blobs.ReadBlob(SlotName + SlotMetadataSuffix)
	if errors.Cause(err) == errorcode.ErrorNotFound {
		log.Warnf("密钥槽 %v 缺少元数据，无法检测其是否被替换", s.Path())
		return key, nil, nil
	} else if err != nil {
		return key, nil, err
	}

	meta := &SlotMetadata{}
	if err = json.Unmarshal(metaBytes, meta); err != nil {
		return key, nil, errorcode.New(errorcode.ErrorKeySlotStale, errorcode.StageKey, errors.Wrap(err, "无法解析密钥槽元数据"))
	}
	if meta.SHA256 != KeyDigest(key) {
		return key, nil, errorcode.New(errorcode.ErrorKeySlotStale, errorcode.StageKey, errors.Errorf("密钥与代 %v 的摘要不符", meta.Generation))
	}

	return key, meta, nil
}

// KeyDigest returns the hex SHA-256 of a key as recorded in SlotMetadata.
func KeyDigest(key Key) string {
	digest := sha256.Sum256(key[:])
	return hex.EncodeToString(digest[:])
}
