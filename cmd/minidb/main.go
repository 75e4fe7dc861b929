package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hatlonely/minidb"
	"github.com/hatlonely/minidb/cfg"
	"github.com/hatlonely/minidb/log"
	"github.com/hatlonely/minidb/repl"
	"github.com/hatlonely/minidb/storage"
)

type Options struct {
	Log  log.SLogOptions  `cfg:"log"`
	DB   minidb.Options   `cfg:"db"`
	REPL repl.REPLOptions `cfg:"repl"`
}

func main() {
	configFile := flag.String("config", "", "config file (.json/.yaml/.toml/.ini)")
	dataDir := flag.String("data", "data", "data directory for the default file storage")
	yes := flag.Bool("yes", false, "skip confirmation prompts for destructive commands")
	flag.Parse()

	options := &Options{}
	if *configFile != "" {
		c, err := cfg.NewConfig(*configFile)
		if err != nil {
			fatal(err)
		}
		if err := c.ConvertTo(options); err != nil {
			fatal(err)
		}
	} else if err := cfg.SetDefaults(options); err != nil {
		fatal(err)
	}

	// 命令行参数优先于配置文件
	if *yes {
		options.REPL.AutoConfirm = true
	}
	usingFileStorage := options.DB.Storage.Type == "" || options.DB.Storage.Type == "file"
	if usingFileStorage && options.DB.Storage.File.DataDir == "" {
		options.DB.Storage.File.DataDir = *dataDir
	}

	logger, err := log.NewSLogWithOptions(&options.Log)
	if err != nil {
		fatal(err)
	}
	log.SetDefault(logger)

	if usingFileStorage {
		// 监听依赖目录存在，文件存储本身是首次写入时才建目录
		if err := os.MkdirAll(options.DB.Storage.File.DataDir, 0755); err != nil {
			fatal(err)
		}
		if options.REPL.Watcher == nil {
			options.REPL.Watcher = &storage.WatcherOptions{DataDir: options.DB.Storage.File.DataDir}
		}
	}

	db, err := minidb.NewDBWithOptions(&options.DB)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	r, err := repl.NewREPLWithOptions(db, &options.REPL)
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	if err := r.Run(context.Background()); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "minidb:", err)
	os.Exit(1)
}
