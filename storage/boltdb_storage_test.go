package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	bolt "go.etcd.io/bbolt"
)

func TestNewBoltDBStorageWithOptions(t *testing.T) {
	Convey("TestNewBoltDBStorageWithOptions", t, func() {
		Convey("create boltdb storage with default options", func() {
			dbPath := filepath.Join(os.TempDir(), "test_boltdb_"+strconv.FormatInt(time.Now().UnixNano(), 10))
			defer os.RemoveAll(dbPath)

			storage, err := NewBoltDBStorageWithOptions(&BoltDBStorageOptions{
				DBPath: dbPath,
			})
			So(err, ShouldBeNil)
			So(storage, ShouldNotBeNil)
			defer storage.Close()

			So(storage.db, ShouldNotBeNil)
		})

		Convey("create boltdb storage without dbPath", func() {
			_, err := NewBoltDBStorageWithOptions(&BoltDBStorageOptions{})
			So(err, ShouldNotBeNil)

			_, err = NewBoltDBStorageWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("create boltdb storage with hashmap freelist", func() {
			dbPath := filepath.Join(os.TempDir(), "test_boltdb_"+strconv.FormatInt(time.Now().UnixNano(), 10))
			defer os.RemoveAll(dbPath)

			storage, err := NewBoltDBStorageWithOptions(&BoltDBStorageOptions{
				DBPath:       dbPath,
				NoSync:       true,
				FreelistType: "hashmap",
			})
			So(err, ShouldBeNil)
			So(storage, ShouldNotBeNil)
			defer storage.Close()
		})
	})
}

func TestBoltDBStorage(t *testing.T) {
	Convey("TestBoltDBStorage", t, func() {
		dbPath := filepath.Join(os.TempDir(), "test_boltdb_"+strconv.FormatInt(time.Now().UnixNano(), 10))
		defer os.RemoveAll(dbPath)

		storage, err := NewBoltDBStorageWithOptions(&BoltDBStorageOptions{
			DBPath: dbPath,
		})
		So(err, ShouldBeNil)
		defer storage.Close()

		ctx := context.Background()

		Convey("load before first save", func() {
			md, err := storage.LoadMetadata(ctx)
			So(err, ShouldBeNil)
			So(md, ShouldBeEmpty)

			rows, err := storage.LoadRows(ctx, "people")
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("metadata round trip", func() {
			So(storage.SaveMetadata(ctx, testMetadata()), ShouldBeNil)

			md, err := storage.LoadMetadata(ctx)
			So(err, ShouldBeNil)
			So(md, ShouldResemble, testMetadata())
		})

		Convey("rows round trip keeps scalar types", func() {
			So(storage.SaveRows(ctx, "people", testRows()), ShouldBeNil)

			rows, err := storage.LoadRows(ctx, "people")
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, testRows())
			So(rows[2]["name"], ShouldEqual, "42")
		})

		Convey("corrupt value loads as empty", func() {
			So(storage.SaveRows(ctx, "people", testRows()), ShouldBeNil)

			err := storage.db.Update(func(tx *bolt.Tx) error {
				return tx.Bucket(boltTablesBucket).Put([]byte("people"), []byte("{broken"))
			})
			So(err, ShouldBeNil)

			rows, err := storage.LoadRows(ctx, "people")
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("drop table removes the value", func() {
			So(storage.SaveRows(ctx, "people", testRows()), ShouldBeNil)
			So(storage.DropTable(ctx, "people"), ShouldBeNil)

			rows, err := storage.LoadRows(ctx, "people")
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("drop non-existing table", func() {
			So(storage.DropTable(ctx, "missing"), ShouldBeNil)
		})

		Convey("data survives reopen", func() {
			So(storage.SaveMetadata(ctx, testMetadata()), ShouldBeNil)
			So(storage.SaveRows(ctx, "people", testRows()), ShouldBeNil)
			So(storage.Close(), ShouldBeNil)

			reopened, err := NewBoltDBStorageWithOptions(&BoltDBStorageOptions{DBPath: dbPath})
			So(err, ShouldBeNil)
			defer reopened.Close()

			md, err := reopened.LoadMetadata(ctx)
			So(err, ShouldBeNil)
			So(md, ShouldResemble, testMetadata())

			rows, err := reopened.LoadRows(ctx, "people")
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, testRows())
		})
	})
}

func TestBoltDBStorageClose(t *testing.T) {
	Convey("TestBoltDBStorageClose", t, func() {
		dbPath := filepath.Join(os.TempDir(), "test_boltdb_"+strconv.FormatInt(time.Now().UnixNano(), 10))
		defer os.RemoveAll(dbPath)

		storage, err := NewBoltDBStorageWithOptions(&BoltDBStorageOptions{
			DBPath: dbPath,
		})
		So(err, ShouldBeNil)

		So(storage.Close(), ShouldBeNil)
		So(storage.Close(), ShouldBeNil)
	})
}
