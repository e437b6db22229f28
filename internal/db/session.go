package db

import (
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/models/common"
	"github.com/zkpoex/disclosure/internal/models/sqlmodel"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate 创建或更新会话账本所需的表。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&sqlmodel.SessionRecord{}); err != nil {
		return errors.Wrap(err, "无法迁移会话账本")
	}

	return nil
}

// SaveSessionToLocalDB 将 `common.Session` 对象保存到指定的数据库中（若已存在则覆盖）。
func SaveSessionToLocalDB(session *common.Session, db *gorm.DB) error {
	sessionDB, err := sqlmodel.NewSessionRecordFromModel(session)
	if err != nil {
		return err
	}

	dbResult := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(sessionDB)
	if dbResult.Error != nil {
		return errors.Wrap(dbResult.Error, "无法将会话记录存入数据库")
	}

	return nil
}

// GetSessionFromLocalDB 从数据库中读取指定 ID 的会话记录。
func GetSessionFromLocalDB(id string, db *gorm.DB) (*sqlmodel.SessionRecord, error) {
	var sessionDB sqlmodel.SessionRecord
	dbResult := db.Where("id = ?", id).Take(&sessionDB)
	if dbResult.Error != nil {
		if errors.Cause(dbResult.Error) == gorm.ErrRecordNotFound {
			return nil, errorcode.ErrorNotFound
		} else {
			return nil, errors.Wrap(dbResult.Error, "无法从数据库中获取会话记录")
		}
	}

	return &sessionDB, nil
}

// ListSessionsFromLocalDB 按 ID 倒序列出会话记录。`path` 为空时不按披露路径过滤。
func ListSessionsFromLocalDB(path string, limit int, db *gorm.DB) ([]sqlmodel.SessionRecord, error) {
	query := db.Model(&sqlmodel.SessionRecord{})
	if path != "" {
		query = query.Where("path = ?", path)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var sessionsDB []sqlmodel.SessionRecord
	dbResult := query.Order("id DESC").Find(&sessionsDB)
	if dbResult.Error != nil {
		return nil, errors.Wrap(dbResult.Error, "无法从数据库中列出会话记录")
	}

	return sessionsDB, nil
}
