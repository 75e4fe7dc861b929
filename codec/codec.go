package codec

import (
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
)

// Codec 元数据和表数据的序列化接口。
// 反序列化结果中的标量统一规范化为 int64/bool/string
type Codec interface {
	MarshalMetadata(md schema.Metadata) ([]byte, error)
	UnmarshalMetadata(data []byte) (schema.Metadata, error)
	MarshalRows(rows []engine.Row) ([]byte, error)
	UnmarshalRows(data []byte) ([]engine.Row, error)
	// Ext 返回数据文件的扩展名，如 json
	Ext() string
}

type CodecOptions struct {
	Type string `cfg:"type" validate:"omitempty,oneof=json msgpack bson"`
}

// NewCodecWithOptions 根据类型创建 Codec，默认 json
func NewCodecWithOptions(options *CodecOptions) (Codec, error) {
	if options == nil {
		options = &CodecOptions{}
	}

	switch options.Type {
	case "", "json":
		return NewJSONCodec(), nil
	case "msgpack":
		return NewMsgPackCodec(), nil
	case "bson":
		return NewBSONCodec(), nil
	}

	return nil, errors.Errorf("unsupported codec type [%s]", options.Type)
}
