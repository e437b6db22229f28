// Package artifact persists the byte blobs shared between sessions and the fixtures handed to the verifier's test
// harness.
//
// Every write goes through a temporary file in the target directory followed by a rename, so a reader sees either the
// previous content or the new one. Existing files are replaced.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zkpoex/disclosure/internal/zkvm"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// Names of the working-state blobs written by the time-delayed session.
const (
	BlobChachaCipher = "zkpoex_chacha"
	BlobTlockCipher  = "zkpoex_tlock"
)

// ProofZkPoEx is the file name of the time-delayed proof.
const ProofZkPoEx = "zkpoex.bincode"

// Store is rooted at the working-state directory. Proof files go to ProofDir.
type Store struct {
	DataDir  string
	ProofDir string
}

func NewStore(dataDir string) *Store {
	return &Store{DataDir: dataDir, ProofDir: "."}
}

// BlobPath returns the path of a named blob.
func (s *Store) BlobPath(name string) string {
	return filepath.Join(s.DataDir, name)
}

// WriteBlob writes a named blob, creating the working-state directory if needed.
func (s *Store) WriteBlob(name string, data []byte) error {
	if err := WriteFile(s.BlobPath(name), data, 0600); err != nil {
		return err
	}

	log.Debugf("已写入 %v (%v 字节)", s.BlobPath(name), len(data))
	return nil
}

// ReadBlob reads a named blob. A missing blob yields `errorcode.ErrorNotFound`.
func (s *Store) ReadBlob(name string) ([]byte, error) {
	data, err := os.ReadFile(s.BlobPath(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(errorcode.ErrorNotFound, "%v", s.BlobPath(name))
	} else if err != nil {
		return nil, errorcode.New(errorcode.ErrorPersistence, errorcode.StagePersist, errors.Wrapf(err, "无法读取 %v", s.BlobPath(name)))
	}

	return data, nil
}

// WriteProof saves the proof envelope as ProofDir/name and returns the path.
func (s *Store) WriteProof(name string, proof *zkvm.Proof) (string, error) {
	path := filepath.Join(s.ProofDir, name)
	if err := WriteFile(path, zkvm.EncodeProof(proof), 0644); err != nil {
		return "", err
	}

	log.Infof("证明已写入 %v", path)
	return path, nil
}

// MarshalFixture renders v the way WriteFixture stores it.
func MarshalFixture(v interface{}) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errorcode.New(errorcode.ErrorPersistence, errorcode.StagePersist, errors.Wrap(err, "无法序列化测试夹具"))
	}

	return b, nil
}

// WriteFixture renders v as indented JSON into dir/name.
func WriteFixture(dir, name string, v interface{}) (string, error) {
	b, err := MarshalFixture(v)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err = WriteFile(path, b, 0644); err != nil {
		return "", err
	}

	log.Infof("测试夹具已写入 %v", path)
	return path, nil
}

// WriteFile atomically replaces path with data. Parent directories are created as needed. Failures yield
// `errorcode.ErrorPersistence`.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := writeFile(path, data, perm); err != nil {
		return errorcode.New(errorcode.ErrorPersistence, errorcode.StagePersist, err)
	}

	return nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "无法创建目录 %v", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "无法创建临时文件")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "无法写入 %v", path)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "无法写入 %v", path)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "无法写入 %v", path)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return errors.Wrapf(err, "无法设置 %v 的权限", path)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "无法写入 %v", path)
	}

	return nil
}
