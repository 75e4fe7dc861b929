package cache

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewCacheWithOptions(t *testing.T) {
	Convey("TestNewCacheWithOptions", t, func() {
		Convey("默认类型是map", func() {
			cache, err := NewCacheWithOptions(nil)
			So(err, ShouldBeNil)
			So(cache, ShouldHaveSameTypeAs, &MapCache{})

			cache, err = NewCacheWithOptions(&CacheOptions{})
			So(err, ShouldBeNil)
			So(cache, ShouldHaveSameTypeAs, &MapCache{})
		})

		Convey("freecache类型", func() {
			cache, err := NewCacheWithOptions(&CacheOptions{
				Type: "freecache",
				Size: 1024 * 1024,
			})
			So(err, ShouldBeNil)
			So(cache, ShouldHaveSameTypeAs, &FreeCache{})
			defer cache.Close()
		})

		Convey("不支持的类型", func() {
			_, err := NewCacheWithOptions(&CacheOptions{Type: "redis"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unsupported cache type")
		})
	})
}
