// Watcher 监听数据目录的文件变化并触发通知，不读取文件内容
// 其作用是只通知使用者某张表在进程外发生了变化，使用者自己决定如何处理

package storage

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hatlonely/minidb/log"
	"github.com/pkg/errors"
)

type WatcherOptions struct {
	// DataDir 被监听的数据目录
	DataDir string `cfg:"dataDir" validate:"required"`

	// Logger 日志记录器配置
	Logger *log.SLogOptions `cfg:"logger"`
}

type Watcher struct {
	dataDir string

	done chan struct{}
	wg   sync.WaitGroup

	logger log.Logger
}

func NewWatcherWithOptions(options *WatcherOptions) (*Watcher, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.DataDir == "" {
		return nil, errors.New("dataDir is required")
	}

	var l log.Logger
	if options.Logger != nil {
		slog, err := log.NewSLogWithOptions(options.Logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create logger")
		}
		l = slog
	} else {
		l = log.Default()
	}

	// 为 logger 添加组和目录上下文
	l = l.WithGroup("watcher").With("dataDir", options.DataDir)

	return &Watcher{
		dataDir: options.DataDir,
		done:    make(chan struct{}, 1),
		logger:  l,
	}, nil
}

// OnChange 开始监听，目录下任意文件被写入、创建或重命名时
// 以去掉扩展名的文件名回调 listener
func (w *Watcher) OnChange(listener func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify.NewWatcher failed")
	}

	err = watcher.Add(w.dataDir)
	if err != nil {
		return errors.Wrap(err, "watcher.Add failed")
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				base := filepath.Base(event.Name)
				listener(strings.TrimSuffix(base, filepath.Ext(base)))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", "error", err)
			case <-w.done:
				return
			}
		}
	}()

	return nil
}

func (w *Watcher) Close() error {
	w.done <- struct{}{}
	w.wg.Wait()
	close(w.done)
	return nil
}
