package storage

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewStorageWithOptions(t *testing.T) {
	Convey("TestNewStorageWithOptions", t, func() {
		Convey("default type is file", func() {
			storage, err := NewStorageWithOptions(&StorageOptions{
				File: FileStorageOptions{DataDir: t.TempDir()},
			})
			So(err, ShouldBeNil)
			So(storage, ShouldHaveSameTypeAs, &FileStorage{})
		})

		Convey("memory type", func() {
			storage, err := NewStorageWithOptions(&StorageOptions{Type: "memory"})
			So(err, ShouldBeNil)
			So(storage, ShouldHaveSameTypeAs, &MemoryStorage{})
		})

		Convey("boltdb type", func() {
			storage, err := NewStorageWithOptions(&StorageOptions{
				Type:   "boltdb",
				BoltDB: BoltDBStorageOptions{DBPath: t.TempDir() + "/bolt.db"},
			})
			So(err, ShouldBeNil)
			So(storage, ShouldHaveSameTypeAs, &BoltDBStorage{})
			So(storage.Close(), ShouldBeNil)
		})

		Convey("leveldb type", func() {
			storage, err := NewStorageWithOptions(&StorageOptions{
				Type:    "leveldb",
				LevelDB: LevelDBStorageOptions{DBPath: t.TempDir() + "/leveldb"},
			})
			So(err, ShouldBeNil)
			So(storage, ShouldHaveSameTypeAs, &LevelDBStorage{})
			So(storage.Close(), ShouldBeNil)
		})

		Convey("pebble type", func() {
			storage, err := NewStorageWithOptions(&StorageOptions{
				Type:   "pebble",
				Pebble: PebbleStorageOptions{DBPath: t.TempDir() + "/pebble"},
			})
			So(err, ShouldBeNil)
			So(storage, ShouldHaveSameTypeAs, &PebbleStorage{})
			So(storage.Close(), ShouldBeNil)
		})

		Convey("unsupported type", func() {
			_, err := NewStorageWithOptions(&StorageOptions{Type: "mysql"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unsupported storage type")
		})

		Convey("nil options falls back to file and fails without dataDir", func() {
			_, err := NewStorageWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("observable wrapper", func() {
			storage, err := NewStorageWithOptions(&StorageOptions{
				Type: "memory",
				Observable: &ObservableStorageOptions{
					Name:          "test_factory_observable",
					EnableMetrics: true,
				},
			})
			So(err, ShouldBeNil)
			So(storage, ShouldHaveSameTypeAs, &ObservableStorage{})

			ctx := context.Background()
			So(storage.SaveMetadata(ctx, testMetadata()), ShouldBeNil)
			md, err := storage.LoadMetadata(ctx)
			So(err, ShouldBeNil)
			So(md, ShouldResemble, testMetadata())
		})

		Convey("underlying error propagates through the factory", func() {
			_, err := NewStorageWithOptions(&StorageOptions{
				Type: "boltdb",
			})
			So(err, ShouldNotBeNil)
		})
	})
}
