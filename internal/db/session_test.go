package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/internal/models/common"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// newDryRunDB returns a MySQL-dialect session that only builds statements. The SQL of each statement is appended to
// the returned slice. Nothing may dial the server, including the transaction gorm opens around writes by default.
func newDryRunDB(t *testing.T) (*gorm.DB, *[]string) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "ledger:ledger@tcp(127.0.0.1:3306)/ledger?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	statements := &[]string{}
	capture := func(tx *gorm.DB) {
		*statements = append(*statements, tx.Statement.SQL.String())
	}
	assert.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture_create", capture))
	assert.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture_query", capture))

	return db, statements
}

func TestSaveSessionUpserts(t *testing.T) {
	db, statements := newDryRunDB(t)

	session := &common.Session{
		ID:           "1432223823564439552",
		Path:         common.PathTimeLock,
		IsSuccess:    true,
		Round:        42,
		TimeStarted:  time.Now(),
		TimeFinished: time.Now(),
	}
	if isNoError := assert.NoError(t, SaveSessionToLocalDB(session, db)); !isNoError {
		t.FailNow()
	}

	if isNoError := assert.Len(t, *statements, 1); !isNoError {
		t.FailNow()
	}
	assert.Contains(t, (*statements)[0], "INSERT INTO `session_records`")
	assert.Contains(t, (*statements)[0], "ON DUPLICATE KEY UPDATE")
}

func TestSaveSessionRejectsBadID(t *testing.T) {
	db, statements := newDryRunDB(t)

	err := SaveSessionToLocalDB(&common.Session{ID: "x", Path: common.PathEcdh}, db)
	assert.Error(t, err)
	assert.Empty(t, *statements)
}

func TestListSessionsQuery(t *testing.T) {
	db, statements := newDryRunDB(t)

	_, err := ListSessionsFromLocalDB("ECDH", 10, db)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	if isNoError := assert.Len(t, *statements, 1); !isNoError {
		t.FailNow()
	}
	assert.Contains(t, (*statements)[0], "FROM `session_records`")
	assert.Contains(t, (*statements)[0], "path = ?")
	assert.Contains(t, (*statements)[0], "ORDER BY id DESC")
	assert.Contains(t, (*statements)[0], "LIMIT 10")
}

func TestGetSessionQuery(t *testing.T) {
	db, statements := newDryRunDB(t)

	_, err := GetSessionFromLocalDB("1432223823564439552", db)
	assert.NoError(t, err)
	if isNoError := assert.Len(t, *statements, 1); !isNoError {
		t.FailNow()
	}
	assert.Contains(t, (*statements)[0], "WHERE id = ?")
}
