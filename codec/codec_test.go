package codec

import (
	"testing"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewCodecWithOptions(t *testing.T) {
	Convey("NewCodecWithOptions", t, func() {
		Convey("默认 json", func() {
			c, err := NewCodecWithOptions(nil)
			So(err, ShouldBeNil)
			So(c.Ext(), ShouldEqual, "json")
		})

		Convey("指定类型", func() {
			for _, typ := range []string{"json", "msgpack", "bson"} {
				c, err := NewCodecWithOptions(&CodecOptions{Type: typ})
				So(err, ShouldBeNil)
				So(c.Ext(), ShouldEqual, typ)
			}
		})

		Convey("不支持的类型", func() {
			_, err := NewCodecWithOptions(&CodecOptions{Type: "xml"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCodecRoundTrip(t *testing.T) {
	Convey("编解码往返", t, func() {
		md := schema.Metadata{
			"people": {Columns: []schema.Column{
				{Name: "ID", Type: schema.ColumnTypeInt},
				{Name: "name", Type: schema.ColumnTypeString},
				{Name: "age", Type: schema.ColumnTypeInt},
				{Name: "active", Type: schema.ColumnTypeBool},
			}},
		}
		rows := []engine.Row{
			{"ID": int64(1), "name": "Ann", "age": int64(30), "active": true},
			{"ID": int64(2), "name": "Bo", "age": int64(-5), "active": false},
			// 数字串保持字符串类型
			{"ID": int64(3), "name": "42", "age": int64(0), "active": true},
		}

		for _, c := range []Codec{NewJSONCodec(), NewMsgPackCodec(), NewBSONCodec()} {
			Convey("元数据往返 "+c.Ext(), func() {
				data, err := c.MarshalMetadata(md)
				So(err, ShouldBeNil)

				got, err := c.UnmarshalMetadata(data)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, md)
			})

			Convey("行数据往返 "+c.Ext(), func() {
				data, err := c.MarshalRows(rows)
				So(err, ShouldBeNil)

				got, err := c.UnmarshalRows(data)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, rows)
			})

			Convey("空行数据往返 "+c.Ext(), func() {
				data, err := c.MarshalRows(nil)
				So(err, ShouldBeNil)

				got, err := c.UnmarshalRows(data)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 0)
			})
		}

		Convey("损坏的数据返回错误", func() {
			for _, c := range []Codec{NewJSONCodec(), NewMsgPackCodec(), NewBSONCodec()} {
				_, err := c.UnmarshalMetadata([]byte("not a valid payload"))
				So(err, ShouldNotBeNil)
			}
		})
	})
}
