package codec

import (
	"bytes"
	"encoding/json"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
)

type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (c *JSONCodec) MarshalMetadata(md schema.Metadata) ([]byte, error) {
	return json.MarshalIndent(md, "", "  ")
}

func (c *JSONCodec) UnmarshalMetadata(data []byte) (schema.Metadata, error) {
	var md schema.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, err
	}
	return md, nil
}

func (c *JSONCodec) MarshalRows(rows []engine.Row) ([]byte, error) {
	if rows == nil {
		rows = []engine.Row{}
	}
	return json.MarshalIndent(rows, "", "  ")
}

func (c *JSONCodec) UnmarshalRows(data []byte) ([]engine.Row, error) {
	var rows []engine.Row
	decoder := json.NewDecoder(bytes.NewReader(data))
	// 整数按原样解码，避免经由 float64 丢失精度
	decoder.UseNumber()
	if err := decoder.Decode(&rows); err != nil {
		return nil, err
	}
	return NormalizeRows(rows), nil
}

func (c *JSONCodec) Ext() string {
	return "json"
}
