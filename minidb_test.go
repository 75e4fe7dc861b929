package minidb

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/hatlonely/minidb/storage"
	"github.com/pkg/errors"
)

func newMemoryDB(t *testing.T) *DB {
	db, err := NewDBWithOptions(&Options{
		Storage: storage.StorageOptions{Type: "memory"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestNewDBWithOptions(t *testing.T) {
	Convey("创建数据库", t, func() {
		Convey("默认选项", func() {
			// 默认 file 存储要求 dataDir
			_, err := NewDBWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("内存存储", func() {
			db, err := NewDBWithOptions(&Options{
				Storage: storage.StorageOptions{Type: "memory"},
			})
			So(err, ShouldBeNil)
			So(db, ShouldNotBeNil)
			So(db.Close(), ShouldBeNil)
			So(db.Close(), ShouldBeNil)
		})

		Convey("不支持的存储类型", func() {
			_, err := NewDBWithOptions(&Options{
				Storage: storage.StorageOptions{Type: "mysql"},
			})
			So(err, ShouldNotBeNil)
		})

		Convey("已有存储后端", func() {
			db, err := NewDBWithStorage(storage.NewMemoryStorage())
			So(err, ShouldBeNil)
			So(db, ShouldNotBeNil)

			_, err = NewDBWithStorage(nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDBCreateTable(t *testing.T) {
	ctx := context.Background()

	Convey("建表", t, func() {
		db := newMemoryDB(t)
		defer db.Close()

		Convey("首列固定为 ID", func() {
			table, err := db.CreateTable(ctx, "people", []string{"name:string", "age:int"})
			So(err, ShouldBeNil)
			So(table.Columns, ShouldHaveLength, 3)
			So(table.Columns[0].Name, ShouldEqual, schema.IDColumn)
			So(table.Columns[0].Type, ShouldEqual, schema.ColumnTypeInt)
			So(table.Columns[1].Name, ShouldEqual, "name")
			So(table.Columns[2].Name, ShouldEqual, "age")
		})

		Convey("重名建表失败且元数据不变", func() {
			_, err := db.CreateTable(ctx, "people", []string{"name:string"})
			So(err, ShouldBeNil)

			_, err = db.CreateTable(ctx, " people ", []string{"other:int"})
			So(errors.Is(err, schema.ErrTableAlreadyExists), ShouldBeTrue)

			info, err := db.Describe(ctx, "people")
			So(err, ShouldBeNil)
			So(info.Columns, ShouldEqual, "ID:int, name:string")
		})

		Convey("非法列声明", func() {
			_, err := db.CreateTable(ctx, "bad", []string{"name:text"})
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)

			_, err = db.CreateTable(ctx, "bad", []string{"ID:int"})
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)

			tables, err := db.ListTables(ctx)
			So(err, ShouldBeNil)
			So(tables, ShouldBeEmpty)
		})
	})
}

func TestDBInsertSelect(t *testing.T) {
	ctx := context.Background()

	Convey("插入和查询", t, func() {
		db := newMemoryDB(t)
		defer db.Close()

		_, err := db.CreateTable(ctx, "people", []string{"name:string", "age:int"})
		So(err, ShouldBeNil)

		Convey("自增 ID 从 1 开始", func() {
			for i, inner := range []string{`"Ann", 30`, `"Bo", 31`, `"Cid", 30`} {
				id, err := db.Insert(ctx, "people", inner)
				So(err, ShouldBeNil)
				So(id, ShouldEqual, int64(i+1))
			}

			Convey("无条件查询保持插入顺序", func() {
				table, rows, err := db.Select(ctx, "people", "")
				So(err, ShouldBeNil)
				So(table.Columns[0].Name, ShouldEqual, schema.IDColumn)
				So(rows, ShouldHaveLength, 3)
				So(rows[0]["name"], ShouldEqual, "Ann")
				So(rows[2]["name"], ShouldEqual, "Cid")
			})

			Convey("条件查询按原顺序返回全部匹配行", func() {
				_, rows, err := db.Select(ctx, "people", "age = 30")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0][schema.IDColumn], ShouldEqual, int64(1))
				So(rows[1][schema.IDColumn], ShouldEqual, int64(3))
			})

			Convey("删除后 ID 不复用", func() {
				deleted, err := db.Delete(ctx, "people", `name = "Bo"`)
				So(err, ShouldBeNil)
				So(deleted, ShouldEqual, int64(1))

				id, err := db.Insert(ctx, "people", `"Dee", 40`)
				So(err, ShouldBeNil)
				So(id, ShouldEqual, int64(4))
			})
		})

		Convey("值个数不匹配", func() {
			_, err := db.Insert(ctx, "people", `"Ann"`)
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)

			_, rows, err := db.Select(ctx, "people", "")
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("表不存在", func() {
			_, err := db.Insert(ctx, "ghost", `1`)
			So(errors.Is(err, schema.ErrTableDoesNotExist), ShouldBeTrue)

			_, _, err = db.Select(ctx, "ghost", "")
			So(errors.Is(err, schema.ErrTableDoesNotExist), ShouldBeTrue)
		})

		Convey("带引号的数字串保持字符串类型", func() {
			id, err := db.Insert(ctx, "people", `"42", 7`)
			So(err, ShouldBeNil)

			_, rows, err := db.Select(ctx, "people", `name = "42"`)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0][schema.IDColumn], ShouldEqual, id)
			So(rows[0]["name"], ShouldEqual, "42")
		})
	})
}

func TestDBUpdateDelete(t *testing.T) {
	ctx := context.Background()

	Convey("更新和删除", t, func() {
		db := newMemoryDB(t)
		defer db.Close()

		_, err := db.CreateTable(ctx, "people", []string{"name:string", "age:int", "active:bool"})
		So(err, ShouldBeNil)
		for _, inner := range []string{`"Ann", 30, true`, `"Bo", 31, false`} {
			_, err := db.Insert(ctx, "people", inner)
			So(err, ShouldBeNil)
		}

		Convey("按条件更新", func() {
			updated, err := db.Update(ctx, "people", "age = 32, active = false", `name = "Ann"`)
			So(err, ShouldBeNil)
			So(updated, ShouldEqual, int64(1))

			_, rows, err := db.Select(ctx, "people", `name = "Ann"`)
			So(err, ShouldBeNil)
			So(rows[0]["age"], ShouldEqual, int64(32))
			So(rows[0]["active"], ShouldEqual, false)
		})

		Convey("ID 列不允许更新", func() {
			_, err := db.Update(ctx, "people", "ID = 9", "age = 30")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)

			_, rows, err := db.Select(ctx, "people", "")
			So(err, ShouldBeNil)
			So(rows[0][schema.IDColumn], ShouldEqual, int64(1))
		})

		Convey("set 子句非法时零匹配也报错", func() {
			_, err := db.Update(ctx, "people", "age = true", "age = 99")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})

		Convey("where 是必填的", func() {
			_, err := db.Update(ctx, "people", "age = 32", "")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)

			_, err = db.Delete(ctx, "people", "")
			So(errors.Is(err, schema.ErrInvalidValue), ShouldBeTrue)
		})

		Convey("零匹配删除不改变数据", func() {
			deleted, err := db.Delete(ctx, "people", "age = 99")
			So(err, ShouldBeNil)
			So(deleted, ShouldEqual, int64(0))

			_, rows, err := db.Select(ctx, "people", "")
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0]["name"], ShouldEqual, "Ann")
			So(rows[1]["name"], ShouldEqual, "Bo")
		})

		Convey("条件比较是精确类型比较", func() {
			// bool 列不会被 int 条件匹配
			_, rows, err := db.Select(ctx, "people", "active = 1")
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})
	})
}

func TestDBDescribe(t *testing.T) {
	ctx := context.Background()

	Convey("表信息", t, func() {
		db := newMemoryDB(t)
		defer db.Close()

		_, err := db.CreateTable(ctx, "people", []string{"name:string", "age:int"})
		So(err, ShouldBeNil)
		_, err = db.Insert(ctx, "people", `"Ann", 30`)
		So(err, ShouldBeNil)

		Convey("结构摘要和行数", func() {
			info, err := db.Describe(ctx, "people")
			So(err, ShouldBeNil)
			So(info.Table, ShouldEqual, "people")
			So(info.Columns, ShouldEqual, "ID:int, name:string, age:int")
			So(info.Count, ShouldEqual, 1)
		})

		Convey("表不存在", func() {
			_, err := db.Describe(ctx, "ghost")
			So(errors.Is(err, schema.ErrTableDoesNotExist), ShouldBeTrue)
		})

		Convey("表名列表有序", func() {
			_, err := db.CreateTable(ctx, "albums", []string{"title:string"})
			So(err, ShouldBeNil)

			tables, err := db.ListTables(ctx)
			So(err, ShouldBeNil)
			So(tables, ShouldResemble, []string{"albums", "people"})
		})

		Convey("删表后数据一并消失", func() {
			So(db.DropTable(ctx, "people"), ShouldBeNil)

			err := db.DropTable(ctx, "people")
			So(errors.Is(err, schema.ErrTableDoesNotExist), ShouldBeTrue)

			_, _, err = db.Select(ctx, "people", "")
			So(errors.Is(err, schema.ErrTableDoesNotExist), ShouldBeTrue)
		})
	})
}

func TestDBScenario(t *testing.T) {
	ctx := context.Background()

	Convey("people 表完整场景，文件存储", t, func() {
		dataDir := filepath.Join(os.TempDir(), "test_minidb_"+strconv.FormatInt(time.Now().UnixNano(), 10))
		defer os.RemoveAll(dataDir)

		db, err := NewDBWithOptions(&Options{
			Storage: storage.StorageOptions{
				Type: "file",
				File: storage.FileStorageOptions{DataDir: dataDir},
			},
		})
		So(err, ShouldBeNil)

		table, err := db.CreateTable(ctx, "people", []string{"name:string", "age:int"})
		So(err, ShouldBeNil)
		So(table.Columns[0].Name, ShouldEqual, schema.IDColumn)

		// 建表只写元数据，表数据文件在首次插入前不存在
		_, err = os.Stat(filepath.Join(dataDir, "people.json"))
		So(os.IsNotExist(err), ShouldBeTrue)

		id, err := db.Insert(ctx, "people", `"Ann", 30`)
		So(err, ShouldBeNil)
		So(id, ShouldEqual, int64(1))

		// 负数是合法的 int 值
		id, err = db.Insert(ctx, "people", `"Bo", -5`)
		So(err, ShouldBeNil)
		So(id, ShouldEqual, int64(2))

		_, rows, err := db.Select(ctx, "people", "age = 30")
		So(err, ShouldBeNil)
		So(rows, ShouldResemble, []engine.Row{{schema.IDColumn: int64(1), "name": "Ann", "age": int64(30)}})

		updated, err := db.Update(ctx, "people", "age = 31", `name = "Ann"`)
		So(err, ShouldBeNil)
		So(updated, ShouldEqual, int64(1))

		// 重新打开数据库，变更已落盘
		So(db.Close(), ShouldBeNil)
		db, err = NewDBWithOptions(&Options{
			Storage: storage.StorageOptions{
				Type: "file",
				File: storage.FileStorageOptions{DataDir: dataDir},
			},
		})
		So(err, ShouldBeNil)
		defer db.Close()

		_, rows, err = db.Select(ctx, "people", "age = 31")
		So(err, ShouldBeNil)
		So(rows, ShouldResemble, []engine.Row{{schema.IDColumn: int64(1), "name": "Ann", "age": int64(31)}})

		deleted, err := db.Delete(ctx, "people", "age = 31")
		So(err, ShouldBeNil)
		So(deleted, ShouldEqual, int64(1))

		_, rows, err = db.Select(ctx, "people", "")
		So(err, ShouldBeNil)
		So(rows, ShouldResemble, []engine.Row{{schema.IDColumn: int64(2), "name": "Bo", "age": int64(-5)}})

		info, err := db.Describe(ctx, "people")
		So(err, ShouldBeNil)
		So(info.Count, ShouldEqual, 1)
	})
}

func TestDBModTime(t *testing.T) {
	ctx := context.Background()

	Convey("表数据修改时间", t, func() {
		Convey("文件存储支持", func() {
			dataDir := filepath.Join(os.TempDir(), "test_minidb_mt_"+strconv.FormatInt(time.Now().UnixNano(), 10))
			defer os.RemoveAll(dataDir)

			db, err := NewDBWithOptions(&Options{
				Storage: storage.StorageOptions{
					Type: "file",
					File: storage.FileStorageOptions{DataDir: dataDir},
				},
			})
			So(err, ShouldBeNil)
			defer db.Close()

			_, ok := db.ModTime("people")
			So(ok, ShouldBeFalse)

			_, err = db.CreateTable(ctx, "people", []string{"name:string"})
			So(err, ShouldBeNil)
			_, err = db.Insert(ctx, "people", `"Ann"`)
			So(err, ShouldBeNil)

			first, ok := db.ModTime("people")
			So(ok, ShouldBeTrue)

			time.Sleep(10 * time.Millisecond)
			_, err = db.Insert(ctx, "people", `"Bo"`)
			So(err, ShouldBeNil)

			second, ok := db.ModTime("people")
			So(ok, ShouldBeTrue)
			So(second, ShouldHappenAfter, first)
		})

		Convey("不支持的后端返回 false", func() {
			dataDir := filepath.Join(os.TempDir(), "test_minidb_bolt_"+strconv.FormatInt(time.Now().UnixNano(), 10))
			defer os.RemoveAll(dataDir)

			db, err := NewDBWithOptions(&Options{
				Storage: storage.StorageOptions{
					Type:   "boltdb",
					BoltDB: storage.BoltDBStorageOptions{DBPath: filepath.Join(dataDir, "minidb.db")},
				},
			})
			So(err, ShouldBeNil)
			defer db.Close()

			_, ok := db.ModTime("people")
			So(ok, ShouldBeFalse)
		})
	})
}
