package service

import (
	"strings"

	"github.com/zkpoex/disclosure/internal/db"
	"github.com/zkpoex/disclosure/internal/models/common"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// SessionService reads the session ledger.
type SessionService struct {
	ServiceInfo *Info
}

// GetSession 获取指定会话的记录。未配置会话账本时返回 `errorcode.ErrorNotImplemented`。
func (s *SessionService) GetSession(id string) (*common.Session, error) {
	if s.ServiceInfo.DB == nil {
		return nil, errorcode.ErrorNotImplemented
	}

	if strings.TrimSpace(id) == "" {
		return nil, &ErrorBadRequest{errMsg: "会话 ID 不能为空"}
	}

	sessionDB, err := db.GetSessionFromLocalDB(id, s.ServiceInfo.DB)
	if err != nil {
		return nil, err
	}

	return sessionDB.ToModel(), nil
}

// ListSessions 按时间倒序列出会话记录。未配置会话账本时返回 `errorcode.ErrorNotImplemented`。
func (s *SessionService) ListSessions(path string, limit int) ([]*common.Session, error) {
	if s.ServiceInfo.DB == nil {
		return nil, errorcode.ErrorNotImplemented
	}

	var sqlPath string
	switch common.DisclosurePath(path) {
	case "":
	case common.PathTimeLock:
		sqlPath = "TIMELOCK"
	case common.PathEcdh:
		sqlPath = "ECDH"
	default:
		return nil, &ErrorBadRequest{errMsg: "未知的披露路径 '" + path + "'"}
	}

	sessionsDB, err := db.ListSessionsFromLocalDB(sqlPath, limit, s.ServiceInfo.DB)
	if err != nil {
		return nil, err
	}

	sessions := make([]*common.Session, len(sessionsDB))
	for i := range sessionsDB {
		sessions[i] = sessionsDB[i].ToModel()
	}

	return sessions, nil
}
