package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

// 文档注释：文件后端，用量快照以 JSON 落盘
// 背景：单机部署无外部依赖时的默认持久化方式；写入走临时文件 + 重命名，避免半截文件
// 约束：路径由 USAGE_FILE 指定，缺省 data/usage/metrics.json；目录不存在时自动创建
type FileStore struct {
	path string
}

func NewFileStoreFromEnv() *FileStore {
	path := os.Getenv("USAGE_FILE")
	if path == "" {
		path = filepath.Join("data", "usage", "metrics.json")
	}
	return &FileStore{path: path}
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Load(ctx context.Context) (*Metrics, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m Metrics
	if err := json.Unmarshal(b, &m); err != nil {
		// 损坏内容按空处理
		return nil, nil
	}
	return &m, nil
}

func (s *FileStore) Save(ctx context.Context, m Metrics) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
