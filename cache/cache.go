package cache

import (
	"time"

	"github.com/hatlonely/minidb/engine"
	"github.com/pkg/errors"
)

// Cache 查询结果缓存。键是查询指纹，由调用方负责把数据版本编进键里，
// 因此实现不需要主动失效
type Cache interface {
	Get(key string) ([]engine.Row, bool)
	Set(key string, rows []engine.Row)
	Del(key string)
	Close() error
}

type CacheOptions struct {
	// Type 缓存类型，默认 map
	Type string `cfg:"type" validate:"omitempty,oneof=map freecache"`

	// Size freecache 缓存大小（字节），freecache 内部最小 512KB
	Size int `cfg:"size"`

	// TTL 缓存项过期时间，零值永不过期
	TTL time.Duration `cfg:"ttl"`
}

// NewCacheWithOptions 根据类型创建缓存
func NewCacheWithOptions(options *CacheOptions) (Cache, error) {
	if options == nil {
		options = &CacheOptions{}
	}

	switch options.Type {
	case "", "map":
		return NewMapCache(options.TTL), nil
	case "freecache":
		return NewFreeCache(options.Size, options.TTL)
	default:
		return nil, errors.Errorf("unsupported cache type [%s]", options.Type)
	}
}
