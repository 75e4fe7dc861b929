package codec

import (
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"go.mongodb.org/mongo-driver/bson"
)

// rowsDocument BSON 不支持顶层数组，行数据包一层 rows 字段
type rowsDocument struct {
	Rows []engine.Row `bson:"rows"`
}

type BSONCodec struct{}

func NewBSONCodec() *BSONCodec {
	return &BSONCodec{}
}

func (c *BSONCodec) MarshalMetadata(md schema.Metadata) ([]byte, error) {
	return bson.Marshal(md)
}

func (c *BSONCodec) UnmarshalMetadata(data []byte) (schema.Metadata, error) {
	var md schema.Metadata
	if err := bson.Unmarshal(data, &md); err != nil {
		return nil, err
	}
	return md, nil
}

func (c *BSONCodec) MarshalRows(rows []engine.Row) ([]byte, error) {
	if rows == nil {
		rows = []engine.Row{}
	}
	return bson.Marshal(rowsDocument{Rows: rows})
}

func (c *BSONCodec) UnmarshalRows(data []byte) ([]engine.Row, error) {
	var doc rowsDocument
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return NormalizeRows(doc.Rows), nil
}

func (c *BSONCodec) Ext() string {
	return "bson"
}
