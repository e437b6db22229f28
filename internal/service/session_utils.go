package service

import (
	"bytes"
	"time"

	ipfs "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/internal/db"
	"github.com/zkpoex/disclosure/internal/metrics"
	"github.com/zkpoex/disclosure/internal/models/common"
	"github.com/zkpoex/disclosure/internal/utils/timingutils"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

// sessionTracker follows one session from start to finish and reports it to the metrics, the session log and the
// ledger.
type sessionTracker struct {
	info    *Info
	session *common.Session
	logger  *timingutils.SessionFileLogger
}

func startSession(info *Info, path common.DisclosurePath) *sessionTracker {
	t := &sessionTracker{
		info: info,
		session: &common.Session{
			ID:          info.SessionID,
			Path:        path,
			TimeStarted: time.Now(),
		},
	}

	logger, err := timingutils.NewSessionFileLogger(info.SessionLogPath, info.SessionID, string(path))
	if err != nil {
		log.Warnf("无法打开会话时间戳日志: %v", err)
	} else {
		t.logger = logger
		if err = logger.LogStart(); err != nil {
			log.Warnf("无法写入会话时间戳日志: %v", err)
		}
	}

	log.Infof("会话 %v (%v) 开始", info.SessionID, path)
	return t
}

// stage times one stage of the session.
func (t *sessionTracker) stage(stage string) func() {
	return timingutils.StartStageTimer(string(t.session.Path), stage)
}

// finish records the outcome. Failures to record are logged and do not change the outcome.
func (t *sessionTracker) finish(err error) {
	t.session.TimeFinished = time.Now()
	t.session.IsSuccess = err == nil
	if err != nil {
		t.session.ErrorMessage = err.Error()
		var sessionErr *errorcode.SessionError
		if errors.As(err, &sessionErr) {
			t.session.FailedStage = sessionErr.Stage
		}
	}

	metrics.RecordSession(string(t.session.Path), err)

	if t.logger != nil {
		if logErr := t.logger.LogEnd(err); logErr != nil {
			log.Warnf("无法写入会话时间戳日志: %v", logErr)
		}
		_ = t.logger.Close()
	}

	if t.info.DB != nil && t.session.ID != "" {
		if dbErr := db.SaveSessionToLocalDB(t.session, t.info.DB); dbErr != nil {
			log.Warnf("无法记录会话 %v: %v", t.session.ID, dbErr)
		}
	}

	if err != nil {
		log.Errorf("会话 %v (%v) 失败: %v", t.session.ID, t.session.Path, err)
	} else {
		log.Infof("会话 %v (%v) 完成，耗时 %v", t.session.ID, t.session.Path, t.session.TimeFinished.Sub(t.session.TimeStarted))
	}
}

// recordFixture fills the fixture fields of the session record and publishes the fixture if an IPFS node is
// configured. Publication failures are logged only.
func (t *sessionTracker) recordFixture(path string, v interface{}) {
	t.session.FixturePath = path

	digest, err := fixture.Digest(v)
	if err != nil {
		log.Warnf("无法计算测试夹具摘要: %v", err)
	} else {
		t.session.FixtureDigest = digest
	}

	if t.info.IPFSSh == nil {
		return
	}

	fixtureBytes, err := artifact.MarshalFixture(v)
	if err != nil {
		log.Warnf("无法序列化测试夹具: %v", err)
		return
	}

	cid, err := uploadBytesToIPFSWithTimer(t.info.IPFSSh, fixtureBytes, "上传测试夹具至 IPFS")
	if err != nil {
		log.Warnf("%v", err)
		return
	}

	t.session.FixtureCID = cid
	log.Infof("测试夹具已上传至 IPFS: %v", cid)
}

func uploadBytesToIPFSWithTimer(ipfsSh *ipfs.Shell, data []byte, timerMsg string) (cid string, err error) {
	defer timingutils.GetDeferrableTimingLogger(timerMsg)()

	ipfsSh.SetTimeout(30 * time.Second)

	cid, err = ipfsSh.Add(bytes.NewReader(data))
	if err != nil {
		err = errors.Wrap(err, "无法将测试夹具上传至 IPFS 网络")
	}

	return
}
