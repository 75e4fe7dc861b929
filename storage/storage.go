package storage

import (
	"context"
	"time"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
)

// Storage 元数据和表数据的持久化接口。
// 后端数据缺失或损坏时读取一律降级为空值，写入错误正常返回
type Storage interface {
	LoadMetadata(ctx context.Context) (schema.Metadata, error)
	// SaveMetadata 全量覆盖元数据，存储位置不存在时自动创建
	SaveMetadata(ctx context.Context, md schema.Metadata) error
	LoadRows(ctx context.Context, table string) ([]engine.Row, error)
	// SaveRows 全量覆盖表数据
	SaveRows(ctx context.Context, table string, rows []engine.Row) error
	// DropTable 删除表数据，表数据不存在时也返回成功
	DropTable(ctx context.Context, table string) error
	Close() error
}

// ModTimer 能感知表数据修改时间的存储实现此接口，供查询缓存做失效判断
type ModTimer interface {
	ModTime(table string) (time.Time, bool)
}

type StorageOptions struct {
	// Type 存储类型，默认 file
	// 后端配置项只有被选中的那一项会生效，校验由各自的构造函数完成
	Type    string                `cfg:"type" validate:"omitempty,oneof=file memory boltdb leveldb pebble redis"`
	File    FileStorageOptions    `cfg:"file" validate:"-"`
	BoltDB  BoltDBStorageOptions  `cfg:"boltdb" validate:"-"`
	LevelDB LevelDBStorageOptions `cfg:"leveldb" validate:"-"`
	Pebble  PebbleStorageOptions  `cfg:"pebble" validate:"-"`
	Redis   RedisStorageOptions   `cfg:"redis" validate:"-"`

	// Observable 非空时在存储外包一层观测装饰器
	Observable *ObservableStorageOptions `cfg:"observable"`
}

// NewStorageWithOptions 根据类型创建存储后端
func NewStorageWithOptions(options *StorageOptions) (Storage, error) {
	if options == nil {
		options = &StorageOptions{}
	}

	var storage Storage
	var err error
	switch options.Type {
	case "", "file":
		storage, err = NewFileStorageWithOptions(&options.File)
	case "memory":
		storage = NewMemoryStorage()
	case "boltdb":
		storage, err = NewBoltDBStorageWithOptions(&options.BoltDB)
	case "leveldb":
		storage, err = NewLevelDBStorageWithOptions(&options.LevelDB)
	case "pebble":
		storage, err = NewPebbleStorageWithOptions(&options.Pebble)
	case "redis":
		storage, err = NewRedisStorageWithOptions(&options.Redis)
	default:
		return nil, errors.Errorf("unsupported storage type [%s]", options.Type)
	}
	if err != nil {
		return nil, err
	}

	if options.Observable != nil {
		storage, err = NewObservableStorage(storage, options.Observable)
		if err != nil {
			return nil, err
		}
	}

	return storage, nil
}
