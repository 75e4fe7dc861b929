package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hatlonely/minidb"
	"github.com/hatlonely/minidb/cache"
	"github.com/hatlonely/minidb/log"
	"github.com/hatlonely/minidb/schema"
	"github.com/hatlonely/minidb/storage"
	"github.com/pkg/errors"
)

// ErrOperationCancelled 用户在确认提示处放弃了危险操作
var ErrOperationCancelled = errors.New("operation cancelled")

type REPLOptions struct {
	// Prompt 命令提示符
	Prompt string `cfg:"prompt" def:"minidb> "`

	// AutoConfirm 跳过危险操作（drop_table/delete）的确认提示
	AutoConfirm bool `cfg:"autoConfirm"`

	// Cache 非空时启用查询结果缓存。
	// 缓存键包含表数据的修改时间，存储后端不支持 ModTime 时缓存不生效
	Cache *cache.CacheOptions `cfg:"cache"`

	// Watcher 非空时监听数据目录，表文件在进程外被修改时打告警日志。
	// 本进程假定自己是唯一写入者，进程外写入属于已接受的风险，但至少可见
	Watcher *storage.WatcherOptions `cfg:"watcher"`

	// Logger 日志记录器配置
	Logger *log.SLogOptions `cfg:"logger"`
}

// REPL 命令行交互循环。读取一行命令，匹配固定的命令形态，
// 调用数据库门面执行，把结果或错误渲染成人类可读的文本。
// 任何命令失败只终止当前命令，循环继续，只有 exit 和 EOF 退出
type REPL struct {
	db *minidb.DB

	in  *bufio.Scanner
	out io.Writer

	cache       cache.Cache
	watcher     *storage.Watcher
	logger      log.Logger
	prompt      string
	autoConfirm bool
}

func NewREPLWithOptions(db *minidb.DB, options *REPLOptions) (*REPL, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if options == nil {
		options = &REPLOptions{}
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
	l = l.WithGroup("repl")

	var c cache.Cache
	if options.Cache != nil {
		var err error
		c, err = cache.NewCacheWithOptions(options.Cache)
		if err != nil {
			return nil, errors.WithMessage(err, "cache.NewCacheWithOptions failed")
		}
	}

	var w *storage.Watcher
	if options.Watcher != nil {
		var err error
		w, err = storage.NewWatcherWithOptions(options.Watcher)
		if err != nil {
			return nil, errors.WithMessage(err, "storage.NewWatcherWithOptions failed")
		}
	}

	prompt := options.Prompt
	if prompt == "" {
		prompt = "minidb> "
	}

	return &REPL{
		db:          db,
		in:          bufio.NewScanner(os.Stdin),
		out:         os.Stdout,
		cache:       c,
		watcher:     w,
		logger:      l,
		prompt:      prompt,
		autoConfirm: options.AutoConfirm,
	}, nil
}

// SetIO 替换输入输出，脚本化执行和测试用
func (r *REPL) SetIO(in io.Reader, out io.Writer) {
	r.in = bufio.NewScanner(in)
	r.out = out
}

// 命令形态，与帮助文本一一对应。大小写不敏感
var (
	createTableRegex = regexp.MustCompile(`(?i)^create_table\s+(\w+)\s+(.+)$`)
	dropTableRegex   = regexp.MustCompile(`(?i)^drop_table\s+(\w+)$`)
	listTablesRegex  = regexp.MustCompile(`(?i)^list_tables$`)
	insertRegex      = regexp.MustCompile(`(?i)^insert\s+into\s+(\w+)\s+values\s*\((.*)\)$`)
	selectRegex      = regexp.MustCompile(`(?i)^select\s+from\s+(\w+)(?:\s+where\s+(.+?))?$`)
	updateRegex      = regexp.MustCompile(`(?i)^update\s+(\w+)\s+set\s+(.+?)\s+where\s+(.+)$`)
	deleteRegex      = regexp.MustCompile(`(?i)^delete\s+from\s+(\w+)\s+where\s+(.+)$`)
	describeRegex    = regexp.MustCompile(`(?i)^(?:describe|info)\s+(\w+)$`)
	helpRegex        = regexp.MustCompile(`(?i)^help$`)
)

// Run 执行交互循环直到 exit 或输入耗尽
func (r *REPL) Run(ctx context.Context) error {
	if r.watcher != nil {
		err := r.watcher.OnChange(func(table string) {
			r.logger.Warn("table data changed outside this process", "table", table)
		})
		if err != nil {
			return errors.WithMessage(err, "watcher.OnChange failed")
		}
	}

	r.printHelp()

	for {
		fmt.Fprint(r.out, r.prompt)

		line, ok := r.readLine()
		if !ok {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			return nil
		}

		start := time.Now()
		r.dispatch(ctx, line)
		r.logger.Debug("command executed", "command", line, "elapsed", time.Since(start))
	}
}

func (r *REPL) Close() error {
	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			return err
		}
		r.watcher = nil
	}
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			return err
		}
		r.cache = nil
	}
	return nil
}

// dispatch 匹配并执行一条命令，错误在这里转成用户消息，绝不向上冒泡
func (r *REPL) dispatch(ctx context.Context, line string) {
	var err error
	switch {
	case helpRegex.MatchString(line):
		r.printHelp()
	case listTablesRegex.MatchString(line):
		err = r.runListTables(ctx)
	case createTableRegex.MatchString(line):
		g := createTableRegex.FindStringSubmatch(line)
		err = r.runCreateTable(ctx, g[1], strings.Fields(g[2]))
	case dropTableRegex.MatchString(line):
		g := dropTableRegex.FindStringSubmatch(line)
		err = r.runDropTable(ctx, g[1])
	case insertRegex.MatchString(line):
		g := insertRegex.FindStringSubmatch(line)
		err = r.runInsert(ctx, g[1], g[2])
	case selectRegex.MatchString(line):
		g := selectRegex.FindStringSubmatch(line)
		err = r.runSelect(ctx, g[1], strings.TrimSpace(g[2]))
	case updateRegex.MatchString(line):
		g := updateRegex.FindStringSubmatch(line)
		err = r.runUpdate(ctx, g[1], g[2], g[3])
	case deleteRegex.MatchString(line):
		g := deleteRegex.FindStringSubmatch(line)
		err = r.runDelete(ctx, g[1], g[2])
	case describeRegex.MatchString(line):
		g := describeRegex.FindStringSubmatch(line)
		err = r.runDescribe(ctx, g[1])
	default:
		fmt.Fprintf(r.out, "Unknown command %q. Type help for usage.\n", line)
	}

	if err != nil {
		r.printError(err)
	}
}

func (r *REPL) runCreateTable(ctx context.Context, table string, specs []string) error {
	t, err := r.db.CreateTable(ctx, table, specs)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Table %q created with columns: %s.\n", table, formatColumns(t))
	return nil
}

func (r *REPL) runDropTable(ctx context.Context, table string) error {
	if err := r.confirm("drop_table " + table); err != nil {
		return err
	}

	if err := r.db.DropTable(ctx, table); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Table %q dropped.\n", table)
	return nil
}

func (r *REPL) runListTables(ctx context.Context) error {
	tables, err := r.db.ListTables(ctx)
	if err != nil {
		return err
	}

	if len(tables) == 0 {
		fmt.Fprintln(r.out, "- (no tables)")
		return nil
	}
	for _, t := range tables {
		fmt.Fprintf(r.out, "- %s\n", t)
	}
	return nil
}

func (r *REPL) runInsert(ctx context.Context, table string, valuesInner string) error {
	id, err := r.db.Insert(ctx, table, valuesInner)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Row with ID=%d inserted into table %q.\n", id, table)
	return nil
}

func (r *REPL) runSelect(ctx context.Context, table string, whereRaw string) error {
	// 缓存键里带上数据文件的修改时间，数据变了键就变，不需要主动失效
	var key string
	if r.cache != nil {
		if mtime, ok := r.db.ModTime(table); ok {
			key = fmt.Sprintf("%s|%s|%d", table, whereRaw, mtime.UnixNano())
			if rows, hit := r.cache.Get(key); hit {
				t, err := r.db.TableSchema(ctx, table)
				if err != nil {
					return err
				}
				renderRows(r.out, t, rows)
				return nil
			}
		}
	}

	t, rows, err := r.db.Select(ctx, table, whereRaw)
	if err != nil {
		return err
	}
	if key != "" {
		r.cache.Set(key, rows)
	}

	renderRows(r.out, t, rows)
	return nil
}

func (r *REPL) runUpdate(ctx context.Context, table string, setRaw string, whereRaw string) error {
	updated, err := r.db.Update(ctx, table, setRaw, whereRaw)
	if err != nil {
		return err
	}

	if updated == 0 {
		fmt.Fprintln(r.out, "Nothing updated (no matching rows).")
	} else {
		fmt.Fprintf(r.out, "Updated %d row(s) in table %q.\n", updated, table)
	}
	return nil
}

func (r *REPL) runDelete(ctx context.Context, table string, whereRaw string) error {
	if err := r.confirm("delete from " + table); err != nil {
		return err
	}

	deleted, err := r.db.Delete(ctx, table, whereRaw)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Deleted %d row(s).\n", deleted)
	return nil
}

func (r *REPL) runDescribe(ctx context.Context, table string) error {
	info, err := r.db.Describe(ctx, table)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Table: %s\n", info.Table)
	fmt.Fprintf(r.out, "Columns: %s\n", info.Columns)
	fmt.Fprintf(r.out, "Rows: %d\n", info.Count)
	return nil
}

// confirm 危险操作的二次确认，除了 y 之外的任何输入都视为放弃
func (r *REPL) confirm(action string) error {
	if r.autoConfirm {
		return nil
	}

	fmt.Fprintf(r.out, "Are you sure you want to execute %q? [y/n]: ", action)

	line, ok := r.readLine()
	if !ok || strings.ToLower(strings.TrimSpace(line)) != "y" {
		return errors.Wrap(ErrOperationCancelled, action)
	}
	return nil
}

func (r *REPL) readLine() (string, bool) {
	if !r.in.Scan() {
		return "", false
	}
	return r.in.Text(), true
}

func (r *REPL) printError(err error) {
	switch {
	case errors.Is(err, ErrOperationCancelled):
		fmt.Fprintln(r.out, "Operation cancelled.")
	case errors.Is(err, schema.ErrInvalidValue):
		fmt.Fprintf(r.out, "Invalid value: %s. Try again.\n", err)
	default:
		fmt.Fprintf(r.out, "Error: %s.\n", err)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `
*** minidb ***
Commands:
  create_table <table> <column:type> ...     create a table
  list_tables                                list tables
  drop_table <table>                         drop a table
  insert into <table> values (...)           insert a row
  select from <table>                        show all rows
  select from <table> where a = b            filtered select
  update <table> set a = b where c = d       update rows
  delete from <table> where a = b            delete rows
  describe <table>                           table summary (alias: info)
  help                                       this help
  exit                                       quit

`)
}

func formatColumns(t schema.Table) string {
	parts := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		parts = append(parts, fmt.Sprintf("%s:%s", col.Name, col.Type))
	}
	return strings.Join(parts, ", ")
}
