package sqlmodel

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/models/common"
)

// SessionRecord 定义了数据库表 session_records，用于读写数据库中的披露会话记录。
type SessionRecord struct {
	ID            int64 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Path          string `gorm:"type:ENUM('TIMELOCK', 'ECDH') NOT NULL;index"`
	IsSuccess     bool   `gorm:"not null"`
	FailedStage   string `gorm:"type:VARCHAR(16)"`
	ErrorMessage  string `gorm:"type:TEXT"`
	Round         uint64
	VKey          string    `gorm:"type:VARCHAR(255)"`
	KeyGeneration string    `gorm:"type:CHAR(36)"`
	FixturePath   string    `gorm:"type:VARCHAR(1024)"`
	FixtureDigest string    `gorm:"type:CHAR(44)"`
	FixtureCID    string    `gorm:"type:VARCHAR(255)"`
	TimeStarted   time.Time `gorm:"not null"`
	TimeFinished  time.Time `gorm:"not null"`
}

// ToModel 将一个 `sqlmodel.SessionRecord` 对象转为 `common.Session` 对象。
func (s *SessionRecord) ToModel() *common.Session {
	ret := &common.Session{
		ID:            parseInt64ToSnowflakeString(s.ID),
		Path:          getDisclosurePathFromSQLValue(s.Path),
		IsSuccess:     s.IsSuccess,
		FailedStage:   s.FailedStage,
		ErrorMessage:  s.ErrorMessage,
		Round:         s.Round,
		VKey:          s.VKey,
		KeyGeneration: s.KeyGeneration,
		FixturePath:   s.FixturePath,
		FixtureDigest: s.FixtureDigest,
		FixtureCID:    s.FixtureCID,
		TimeStarted:   s.TimeStarted,
		TimeFinished:  s.TimeFinished,
	}

	return ret
}

// NewSessionRecordFromModel 通过 `common.Session` 对象创建一个 `sqlmodel.SessionRecord` 对象。
func NewSessionRecordFromModel(model *common.Session) (*SessionRecord, error) {
	errMsg := "无法转换会话对象为数据库对象"

	id, err := parseSnowflakeStringToInt64(model.ID)
	if err != nil {
		return nil, errors.Wrapf(err, errMsg+": id: %v", model.ID)
	}

	path, err := getSQLValueFromDisclosurePath(model.Path)
	if err != nil {
		return nil, errors.Wrap(err, errMsg)
	}

	ret := &SessionRecord{
		ID:            id,
		Path:          path,
		IsSuccess:     model.IsSuccess,
		FailedStage:   model.FailedStage,
		ErrorMessage:  model.ErrorMessage,
		Round:         model.Round,
		VKey:          model.VKey,
		KeyGeneration: model.KeyGeneration,
		FixturePath:   model.FixturePath,
		FixtureDigest: model.FixtureDigest,
		FixtureCID:    model.FixtureCID,
		TimeStarted:   model.TimeStarted,
		TimeFinished:  model.TimeFinished,
	}

	return ret, nil
}
