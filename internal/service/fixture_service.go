package service

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

// FixtureService reads back the fixtures written by the disclosure sessions.
type FixtureService struct {
	ServiceInfo *Info
}

// GetZkPoExFixture 读取时间锁披露会话的测试夹具。尚未生成时返回 `errorcode.ErrorNotFound`。
func (s *FixtureService) GetZkPoExFixture() (*fixture.ZkPoExFixture, error) {
	ret := &fixture.ZkPoExFixture{}
	if err := readFixture(filepath.Join(s.ServiceInfo.ZkPoExFixtureDir, fixture.ZkPoExFileName), ret); err != nil {
		return nil, err
	}

	return ret, nil
}

// GetEcdhFixture 读取点对点披露会话的测试夹具。尚未生成时返回 `errorcode.ErrorNotFound`。
func (s *FixtureService) GetEcdhFixture() (*fixture.EcdhFixture, error) {
	ret := &fixture.EcdhFixture{}
	if err := readFixture(filepath.Join(s.ServiceInfo.EcdhFixtureDir, fixture.EcdhFileName), ret); err != nil {
		return nil, err
	}

	return ret, nil
}

func readFixture(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return errorcode.ErrorNotFound
	} else if err != nil {
		return errors.Wrapf(err, "无法读取测试夹具 %v", path)
	}

	if err = json.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "无法解析测试夹具 %v", path)
	}

	return nil
}
