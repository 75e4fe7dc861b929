package codec

import (
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/vmihailenco/msgpack/v5"
)

type MsgPackCodec struct{}

func NewMsgPackCodec() *MsgPackCodec {
	return &MsgPackCodec{}
}

func (c *MsgPackCodec) MarshalMetadata(md schema.Metadata) ([]byte, error) {
	return msgpack.Marshal(md)
}

func (c *MsgPackCodec) UnmarshalMetadata(data []byte) (schema.Metadata, error) {
	var md schema.Metadata
	if err := msgpack.Unmarshal(data, &md); err != nil {
		return nil, err
	}
	return md, nil
}

func (c *MsgPackCodec) MarshalRows(rows []engine.Row) ([]byte, error) {
	if rows == nil {
		rows = []engine.Row{}
	}
	return msgpack.Marshal(rows)
}

func (c *MsgPackCodec) UnmarshalRows(data []byte) ([]engine.Row, error) {
	var rows []engine.Row
	if err := msgpack.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return NormalizeRows(rows), nil
}

func (c *MsgPackCodec) Ext() string {
	return "msgpack"
}
