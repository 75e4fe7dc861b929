package storage

import (
	"context"
	"time"

	"github.com/hatlonely/minidb/codec"
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStorageOptions struct {
	// host:port 地址。
	Endpoint string `cfg:"endpoint"`

	// 集群节点的 host:port 地址列表。
	Endpoints []string `cfg:"endpoints"`

	// 使用指定的用户名来验证当前连接，
	// 连接 Redis 6.0 及以上版本时与 ACL 列表中的连接定义匹配。
	Username string `cfg:"username"`

	// 可选密码。必须与 requirepass 服务器配置选项中指定的密码匹配。
	Password string `cfg:"password"`

	// 连接到服务器后选择的数据库。
	DB int `cfg:"db" def:"0"`

	// 放弃前的最大重试次数。
	// 默认是 3 次重试；-1（不是 0）禁用重试。
	MaxRetries int `cfg:"maxRetries" def:"3"`

	// 建立新连接的拨号超时时间。
	// 默认是 5 秒。
	DialTimeout time.Duration `cfg:"dialTimeout" def:"5s"`

	// 套接字读取的超时时间。如果达到此时间，命令将失败，
	// 而不是阻塞。
	ReadTimeout time.Duration `cfg:"readTimeout" def:"3s"`

	// 套接字写入的超时时间。如果达到此时间，命令将失败，
	// 而不是阻塞。
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`

	// 基础的套接字连接数。
	PoolSize int `cfg:"poolSize" def:"100"`

	// 最小空闲连接数，当建立新连接很慢时很有用。
	MinIdleConns int `cfg:"minIdleConns" def:"0"`

	// 键前缀，用于和同实例上的其他应用隔离。
	KeyPrefix string `cfg:"keyPrefix" def:"minidb"`

	// Codec 存储值的编码格式
	Codec codec.CodecOptions `cfg:"codec"`
}

// RedisStorage redis 存储，元数据和每张表各占一个键
type RedisStorage struct {
	client redis.UniversalClient
	codec  codec.Codec
	prefix string
}

func NewRedisStorageWithOptions(options *RedisStorageOptions) (*RedisStorage, error) {
	if options == nil {
		return nil, errors.New("options is required")
	}

	c, err := codec.NewCodecWithOptions(&options.Codec)
	if err != nil {
		return nil, errors.WithMessage(err, "codec.NewCodecWithOptions failed")
	}

	var client redis.UniversalClient

	if options.Endpoint != "" {
		client = redis.NewClient(&redis.Options{
			Addr:         options.Endpoint,
			Username:     options.Username,
			Password:     options.Password,
			DB:           options.DB,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
			MinIdleConns: options.MinIdleConns,
		})
	} else if len(options.Endpoints) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        options.Endpoints,
			Username:     options.Username,
			Password:     options.Password,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
			MinIdleConns: options.MinIdleConns,
		})
	} else {
		return nil, errors.Errorf("Endpoint or Endpoints must be set")
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.WithMessage(err, "redis.client.Ping failed")
	}

	prefix := options.KeyPrefix
	if prefix == "" {
		prefix = "minidb"
	}

	return &RedisStorage{client: client, codec: c, prefix: prefix}, nil
}

func (s *RedisStorage) metadataKey() string {
	return s.prefix + ":metadata"
}

func (s *RedisStorage) tableKey(table string) string {
	return s.prefix + ":table:" + table
}

func (s *RedisStorage) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get failed. key: %s", key)
	}
	return data, nil
}

func (s *RedisStorage) LoadMetadata(ctx context.Context) (schema.Metadata, error) {
	data, err := s.get(ctx, s.metadataKey())
	if err != nil {
		return nil, err
	}
	if data == nil {
		return schema.Metadata{}, nil
	}

	md, err := s.codec.UnmarshalMetadata(data)
	if err != nil || md == nil {
		return schema.Metadata{}, nil
	}
	return md, nil
}

func (s *RedisStorage) SaveMetadata(ctx context.Context, md schema.Metadata) error {
	if md == nil {
		md = schema.Metadata{}
	}

	data, err := s.codec.MarshalMetadata(md)
	if err != nil {
		return errors.Wrap(err, "marshal metadata failed")
	}
	return errors.Wrap(s.client.Set(ctx, s.metadataKey(), data, 0).Err(), "redis set failed")
}

func (s *RedisStorage) LoadRows(ctx context.Context, table string) ([]engine.Row, error) {
	data, err := s.get(ctx, s.tableKey(table))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []engine.Row{}, nil
	}

	rows, err := s.codec.UnmarshalRows(data)
	if err != nil || rows == nil {
		return []engine.Row{}, nil
	}
	return rows, nil
}

func (s *RedisStorage) SaveRows(ctx context.Context, table string, rows []engine.Row) error {
	data, err := s.codec.MarshalRows(rows)
	if err != nil {
		return errors.Wrapf(err, "marshal rows failed. table: %s", table)
	}
	return errors.Wrapf(s.client.Set(ctx, s.tableKey(table), data, 0).Err(), "redis set failed. table: %s", table)
}

func (s *RedisStorage) DropTable(ctx context.Context, table string) error {
	return errors.Wrapf(s.client.Del(ctx, s.tableKey(table)).Err(), "redis del failed. table: %s", table)
}

func (s *RedisStorage) Close() error {
	if s.client == nil {
		return nil
	}

	if err := s.client.Close(); err != nil {
		return errors.Wrap(err, "close redis client failed")
	}
	s.client = nil
	return nil
}

var _ Storage = (*RedisStorage)(nil)
