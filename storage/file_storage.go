package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hatlonely/minidb/codec"
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
)

type FileStorageOptions struct {
	// DataDir 数据目录，元数据保存为 metadata.<ext>，每张表保存为 <表名>.<ext>
	DataDir string `cfg:"dataDir" validate:"required"`

	// Codec 数据文件的编码格式
	Codec codec.CodecOptions `cfg:"codec"`
}

// FileStorage 平面文件存储，每张表一个文件，默认后端
type FileStorage struct {
	dataDir string
	codec   codec.Codec
}

func NewFileStorageWithOptions(options *FileStorageOptions) (*FileStorage, error) {
	if options == nil || options.DataDir == "" {
		return nil, errors.New("dataDir is required")
	}

	c, err := codec.NewCodecWithOptions(&options.Codec)
	if err != nil {
		return nil, errors.WithMessage(err, "codec.NewCodecWithOptions failed")
	}

	return &FileStorage{
		dataDir: options.DataDir,
		codec:   c,
	}, nil
}

func (s *FileStorage) metadataFile() string {
	return filepath.Join(s.dataDir, "metadata."+s.codec.Ext())
}

// tableFile 表名直接映射为文件名，拒绝会逃出数据目录或与元数据文件冲突的表名
func (s *FileStorage) tableFile(table string) (string, error) {
	if table == "" || table == "metadata" || strings.ContainsAny(table, `/\`) || strings.Contains(table, "..") {
		return "", errors.Wrapf(schema.ErrInvalidValue, "table name %q is not a valid file name", table)
	}
	return filepath.Join(s.dataDir, table+"."+s.codec.Ext()), nil
}

func (s *FileStorage) LoadMetadata(ctx context.Context) (schema.Metadata, error) {
	data, err := os.ReadFile(s.metadataFile())
	if os.IsNotExist(err) {
		return schema.Metadata{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "os.ReadFile failed. file: %s", s.metadataFile())
	}

	md, err := s.codec.UnmarshalMetadata(data)
	if err != nil || md == nil {
		// 文件损坏降级为空库
		return schema.Metadata{}, nil
	}
	return md, nil
}

func (s *FileStorage) SaveMetadata(ctx context.Context, md schema.Metadata) error {
	if md == nil {
		md = schema.Metadata{}
	}

	data, err := s.codec.MarshalMetadata(md)
	if err != nil {
		return errors.Wrap(err, "marshal metadata failed")
	}

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return errors.Wrapf(err, "os.MkdirAll failed. directory: %s", s.dataDir)
	}
	if err := os.WriteFile(s.metadataFile(), data, 0644); err != nil {
		return errors.Wrapf(err, "os.WriteFile failed. file: %s", s.metadataFile())
	}
	return nil
}

func (s *FileStorage) LoadRows(ctx context.Context, table string) ([]engine.Row, error) {
	path, err := s.tableFile(table)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []engine.Row{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "os.ReadFile failed. file: %s", path)
	}

	rows, err := s.codec.UnmarshalRows(data)
	if err != nil || rows == nil {
		return []engine.Row{}, nil
	}
	return rows, nil
}

func (s *FileStorage) SaveRows(ctx context.Context, table string, rows []engine.Row) error {
	path, err := s.tableFile(table)
	if err != nil {
		return err
	}

	data, err := s.codec.MarshalRows(rows)
	if err != nil {
		return errors.Wrapf(err, "marshal rows failed. table: %s", table)
	}

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return errors.Wrapf(err, "os.MkdirAll failed. directory: %s", s.dataDir)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "os.WriteFile failed. file: %s", path)
	}
	return nil
}

func (s *FileStorage) DropTable(ctx context.Context, table string) error {
	path, err := s.tableFile(table)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "os.Remove failed. file: %s", path)
	}
	return nil
}

// ModTime 返回表数据文件的修改时间，文件不存在时返回 false
func (s *FileStorage) ModTime(table string) (time.Time, bool) {
	path, err := s.tableFile(table)
	if err != nil {
		return time.Time{}, false
	}

	stat, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return stat.ModTime(), true
}

func (s *FileStorage) Close() error {
	return nil
}

var _ Storage = (*FileStorage)(nil)
var _ ModTimer = (*FileStorage)(nil)
