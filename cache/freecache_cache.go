package cache

import (
	"time"

	"github.com/coocood/freecache"
	"github.com/hatlonely/minidb/codec"
	"github.com/hatlonely/minidb/engine"
)

// FreeCache freecache 缓存，行数据以 msgpack 编码存入共享内存块，
// 适合查询结果较大或者键很多的场景
type FreeCache struct {
	cache *freecache.Cache
	codec codec.Codec
	ttl   time.Duration
}

func NewFreeCache(size int, ttl time.Duration) (*FreeCache, error) {
	c, err := codec.NewCodecWithOptions(&codec.CodecOptions{Type: "msgpack"})
	if err != nil {
		return nil, err
	}

	return &FreeCache{
		cache: freecache.NewCache(size),
		codec: c,
		ttl:   ttl,
	}, nil
}

func (c *FreeCache) Get(key string) ([]engine.Row, bool) {
	data, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}

	rows, err := c.codec.UnmarshalRows(data)
	if err != nil {
		return nil, false
	}
	return rows, true
}

func (c *FreeCache) Set(key string, rows []engine.Row) {
	data, err := c.codec.MarshalRows(rows)
	if err != nil {
		return
	}

	// 单条超过 freecache 上限时放弃缓存
	_ = c.cache.Set([]byte(key), data, int(c.ttl.Seconds()))
}

func (c *FreeCache) Del(key string) {
	c.cache.Del([]byte(key))
}

func (c *FreeCache) Close() error {
	c.cache.Clear()
	return nil
}

var _ Cache = (*FreeCache)(nil)
