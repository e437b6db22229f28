package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/zkpoex/disclosure/internal/artifact"
	"github.com/zkpoex/disclosure/internal/beacon"
	"github.com/zkpoex/disclosure/internal/metrics"
	"github.com/zkpoex/disclosure/internal/service"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

type staticBeacon struct{}

func (staticBeacon) ChainInfo(ctx context.Context) (*beacon.ChainInfo, error) {
	return &beacon.ChainInfo{PublicKey: []byte{1}, Period: 30 * time.Second, GenesisTime: 0, Hash: "static"}, nil
}

func (staticBeacon) Round(ctx context.Context, round uint64) (*beacon.RoundResult, error) {
	return nil, beacon.ErrRoundNotReached
}

func newTestRouter(t *testing.T, info *service.Info) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api/v1")

	timeLockSvc := &service.TimeLockService{
		ServiceInfo: info,
		Beacon:      staticBeacon{},
		Now:         func() time.Time { return time.Unix(45, 0) },
	}

	controllers := []Controller{
		&PingPongController{GroupName: "/"},
		&FixtureController{GroupName: "/fixtures", FixtureSvc: &service.FixtureService{ServiceInfo: info}},
		&RoundController{GroupName: "/round", TimeLockSvc: timeLockSvc},
		&SessionController{GroupName: "/sessions", SessionSvc: &service.SessionService{ServiceInfo: info}},
	}
	for _, c := range controllers {
		if isNoError := assert.NoError(t, RegisterHandlers(apiGroup, c)); !isNoError {
			t.FailNow()
		}
	}
	assert.NoError(t, RegisterHandlers(&router.RouterGroup, &MetricsController{GroupName: "/metrics"}))

	return router
}

func newTestInfo(t *testing.T) *service.Info {
	root := t.TempDir()
	return &service.Info{
		Store:            artifact.NewStore(filepath.Join(root, "data")),
		ZkPoExFixtureDir: filepath.Join(root, "contracts", "src", "fixtures"),
		EcdhFixtureDir:   filepath.Join(root, "fixtures"),
	}
}

func get(router *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	router := newTestRouter(t, newTestInfo(t))

	w := get(router, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestFixtures(t *testing.T) {
	info := newTestInfo(t)
	router := newTestRouter(t, info)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/fixtures/ecdh").Code)

	ecdhFixture := &fixture.EcdhFixture{VKey: "0x01", KeyHash: "ab"}
	_, err := artifact.WriteFixture(info.EcdhFixtureDir, fixture.EcdhFileName, ecdhFixture)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	w := get(router, "/api/v1/fixtures/ecdh")
	assert.Equal(t, http.StatusOK, w.Code)
	var got fixture.EcdhFixture
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, *ecdhFixture, got)

	w = get(router, "/api/v1/fixtures/ecdh/digest")
	assert.Equal(t, http.StatusOK, w.Code)
	expected, _ := fixture.Digest(ecdhFixture)
	assert.Contains(t, w.Body.String(), expected)

	zkpoexFixture := &fixture.ZkPoExFixture{Key: fixture.ByteArray{1, 2}, Round: 9}
	_, err = artifact.WriteFixture(info.ZkPoExFixtureDir, fixture.ZkPoExFileName, zkpoexFixture)
	assert.NoError(t, err)
	w = get(router, "/api/v1/fixtures/zkpoex")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"key":[1,2]`)
}

func TestRoundPreview(t *testing.T) {
	router := newTestRouter(t, newTestInfo(t))

	// genesis 0, period 30s, now 45s: the current round is 1
	w := get(router, "/api/v1/round?duration=0s")
	if isNoError := assert.Equal(t, http.StatusOK, w.Code); !isNoError {
		t.FailNow()
	}
	var preview RoundPreview
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, uint64(1), preview.Round)
	assert.Equal(t, "static", preview.ChainHash)

	w = get(router, "/api/v1/round?duration=1m")
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, uint64(3), preview.Round)

	w = get(router, "/api/v1/round?round=77")
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, uint64(77), preview.Round)

	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/round?duration=soon").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/round?round=-1").Code)

	// Round 1 has already been signed
	w = get(router, "/api/v1/round?round=1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errorcode.CodeRoundPassed)
}

func TestSessionsWithoutLedger(t *testing.T) {
	router := newTestRouter(t, newTestInfo(t))

	assert.Equal(t, http.StatusNotImplemented, get(router, "/api/v1/sessions").Code)
	assert.Equal(t, http.StatusNotImplemented, get(router, "/api/v1/sessions/1").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/sessions?limit=x").Code)
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, newTestInfo(t))
	metrics.RecordSession("timelock", nil)

	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "disclosure_sessions_total")
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware())
	assert.NoError(t, RegisterHandlers(router.Group("/api/v1"), &PingPongController{GroupName: "/"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(router, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
