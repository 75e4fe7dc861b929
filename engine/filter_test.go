package engine

import (
	"testing"

	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewFilter(t *testing.T) {
	Convey("NewFilter", t, func() {
		Convey("恰好一个条件", func() {
			filter, err := NewFilter(map[string]any{"age": int64(30)})
			So(err, ShouldBeNil)
			So(filter.Field, ShouldEqual, "age")
			So(filter.Value, ShouldEqual, int64(30))
		})

		Convey("零个条件", func() {
			_, err := NewFilter(map[string]any{})
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)

			_, err = NewFilter(nil)
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})

		Convey("多个条件", func() {
			_, err := NewFilter(map[string]any{"age": int64(30), "name": "Ann"})
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})
	})
}

func TestFilterMatch(t *testing.T) {
	Convey("Filter.Match", t, func() {
		row := Row{"ID": int64(1), "name": "Ann", "active": true}

		Convey("值和类型都相同才匹配", func() {
			So((&Filter{Field: "name", Value: "Ann"}).Match(row), ShouldBeTrue)
			So((&Filter{Field: "active", Value: true}).Match(row), ShouldBeTrue)
			So((&Filter{Field: "ID", Value: int64(1)}).Match(row), ShouldBeTrue)
		})

		Convey("值不同不匹配", func() {
			So((&Filter{Field: "name", Value: "Bo"}).Match(row), ShouldBeFalse)
		})

		Convey("类型不同不匹配", func() {
			// bool true 和 int 1 互不相等
			So((&Filter{Field: "active", Value: int64(1)}).Match(row), ShouldBeFalse)
			So((&Filter{Field: "ID", Value: "1"}).Match(row), ShouldBeFalse)
		})

		Convey("字段缺失不匹配", func() {
			So((&Filter{Field: "missing", Value: int64(1)}).Match(row), ShouldBeFalse)
		})
	})
}
