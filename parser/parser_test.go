package parser

import (
	"testing"

	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSplitCommas(t *testing.T) {
	Convey("SplitCommas", t, func() {
		Convey("普通拆分", func() {
			So(SplitCommas("a, b, c"), ShouldResemble, []string{"a", " b", " c"})
		})

		Convey("引号内的逗号不拆分", func() {
			So(SplitCommas(`"a,b", c`), ShouldResemble, []string{`"a,b"`, " c"})
		})

		Convey("引号内的反斜杠转义", func() {
			So(SplitCommas(`"a\,b"`), ShouldResemble, []string{`"a,b"`})
			So(SplitCommas(`"a\"b"`), ShouldResemble, []string{`"a"b"`})
		})

		Convey("引号内的双引号转义", func() {
			So(SplitCommas(`"a""b"`), ShouldResemble, []string{`"a"b"`})
		})

		Convey("尾部逗号产生空 token", func() {
			So(SplitCommas("a,"), ShouldResemble, []string{"a", ""})
		})

		Convey("空字符串", func() {
			So(SplitCommas(""), ShouldResemble, []string{""})
		})
	})
}

func TestParseScalar(t *testing.T) {
	Convey("ParseScalar", t, func() {
		Convey("整数", func() {
			So(ParseScalar("42"), ShouldEqual, int64(42))
			So(ParseScalar("-7"), ShouldEqual, int64(-7))
			So(ParseScalar("  0  "), ShouldEqual, int64(0))
		})

		Convey("布尔值大小写不敏感", func() {
			So(ParseScalar("true"), ShouldEqual, true)
			So(ParseScalar("TRUE"), ShouldEqual, true)
			So(ParseScalar("False"), ShouldEqual, false)
		})

		Convey("引号内的内容不做转换", func() {
			So(ParseScalar(`"42"`), ShouldEqual, "42")
			So(ParseScalar(`"true"`), ShouldEqual, "true")
			So(ParseScalar(`" hi "`), ShouldEqual, " hi ")
		})

		Convey("普通字符串", func() {
			So(ParseScalar("hello"), ShouldEqual, "hello")
			So(ParseScalar("-"), ShouldEqual, "-")
			So(ParseScalar("1.5"), ShouldEqual, "1.5")
		})

		Convey("超出 int64 范围的数字串保持字符串", func() {
			So(ParseScalar("99999999999999999999"), ShouldEqual, "99999999999999999999")
		})
	})
}

func TestParseValues(t *testing.T) {
	Convey("ParseValues", t, func() {
		Convey("普通值列表", func() {
			So(ParseValues(`"Alice", 30, true`), ShouldResemble, []any{"Alice", int64(30), true})
		})

		Convey("空内容返回空列表", func() {
			So(ParseValues(""), ShouldResemble, []any{})
			So(ParseValues("   "), ShouldResemble, []any{})
		})

		Convey("空 token 被跳过", func() {
			So(ParseValues("1, , 2,"), ShouldResemble, []any{int64(1), int64(2)})
		})

		Convey("带逗号的引号值", func() {
			So(ParseValues(`"a,b", 2`), ShouldResemble, []any{"a,b", int64(2)})
		})
	})
}

func TestParseAssignments(t *testing.T) {
	Convey("ParseAssignments", t, func() {
		Convey("普通赋值", func() {
			m, err := ParseAssignments(`name = "Bob", age = 25, active = true`)
			So(err, ShouldBeNil)
			So(m, ShouldResemble, map[string]any{"name": "Bob", "age": int64(25), "active": true})
		})

		Convey("值中的 '=' 在引号内", func() {
			m, err := ParseAssignments(`note = "a=b"`)
			So(err, ShouldBeNil)
			So(m, ShouldResemble, map[string]any{"note": "a=b"})
		})

		Convey("重复键后者覆盖前者", func() {
			m, err := ParseAssignments("a = 1, a = 2")
			So(err, ShouldBeNil)
			So(m, ShouldResemble, map[string]any{"a": int64(2)})
		})

		Convey("空值是合法的空字符串", func() {
			m, err := ParseAssignments("name =")
			So(err, ShouldBeNil)
			So(m, ShouldResemble, map[string]any{"name": ""})
		})

		Convey("空输入", func() {
			_, err := ParseAssignments("   ")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})

		Convey("空的赋值片段", func() {
			_, err := ParseAssignments("a = 1, , b = 2")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})

		Convey("缺少 '='", func() {
			_, err := ParseAssignments("age 28")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})

		Convey("多个 '='", func() {
			_, err := ParseAssignments("a == 1")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})

		Convey("键为空", func() {
			_, err := ParseAssignments("= 1")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})
	})
}

func TestParseWhereAndSet(t *testing.T) {
	Convey("ParseWhere / ParseSet", t, func() {
		Convey("where 条件", func() {
			m, err := ParseWhere("age = 28")
			So(err, ShouldBeNil)
			So(m, ShouldResemble, map[string]any{"age": int64(28)})
		})

		Convey("set 表达式", func() {
			m, err := ParseSet("age = 29, active = false")
			So(err, ShouldBeNil)
			So(m, ShouldResemble, map[string]any{"age": int64(29), "active": false})
		})
	})
}
