package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/log"
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableStorageOptions struct {
	// Logger 日志记录器配置
	Logger *log.SLogOptions `cfg:"logger"`

	// EnableMetrics 是否启用指标收集
	EnableMetrics bool `cfg:"enableMetrics" def:"true"`

	// EnableLogging 是否启用日志记录
	EnableLogging bool `cfg:"enableLogging" def:"true"`

	// EnableTracing 是否启用分布式追踪
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 组件名称标识，用于所有观测维度
	// - Metrics: 作为指标名前缀
	// - Logging: 作为 component 字段值
	// - Tracing: 作为 span 的 component 属性
	Name string `cfg:"name" def:"storage"`
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	rowsHistogram     *prometheus.HistogramVec
}

// register 注册到默认 registry，重复注册时复用已有的收集器
func register[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(T)
		}
	}
	return c
}

// NewObservableMetrics 创建指标收集器
func NewObservableMetrics(name string) *ObservableMetrics {
	return &ObservableMetrics{
		operationCounter: register(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		)),
		operationDuration: register(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of storage operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		)),
		activeOperations: register(prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active storage operations",
			},
			[]string{"operation"},
		)),
		rowsHistogram: register(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_rows",
				Help:    "Number of rows per table load or save",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		)),
	}
}

// ObservableStorage 装饰器，为任何 Storage 添加观测能力
type ObservableStorage struct {
	storage Storage

	logger        log.Logger
	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableStorage(storage Storage, options *ObservableStorageOptions) (*ObservableStorage, error) {
	if storage == nil {
		return nil, errors.New("storage is nil")
	}
	if options == nil {
		return nil, errors.New("options is nil")
	}

	name := options.Name
	if name == "" {
		name = "storage"
	}

	obs := &ObservableStorage{
		storage:       storage,
		name:          name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	// 创建 logger（可选）
	if options.EnableLogging {
		if options.Logger != nil {
			l, err := log.NewSLogWithOptions(options.Logger)
			if err != nil {
				return nil, errors.WithMessage(err, "failed to create logger")
			}
			obs.logger = l.WithGroup("observableStorage")
		} else {
			obs.logger = log.Default().WithGroup("observableStorage")
		}
	}

	// 创建 metrics（可选）
	if options.EnableMetrics {
		obs.metrics = NewObservableMetrics(name)
	}

	// 创建 tracer（可选）
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("storage.%s", name))
	}

	return obs, nil
}

// observeOperation 统一的操作观测逻辑
func (obs *ObservableStorage) observeOperation(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()

	// 创建 tracing span
	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
			),
		)
		defer span.End()
	}

	// 记录活跃操作数
	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	// 执行实际操作
	err := fn(ctx)
	duration := time.Since(start)

	// 更新 tracing span
	if obs.enableTracing && span != nil {
		span.SetAttributes(
			attribute.Int64("duration_ms", duration.Milliseconds()),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	// 记录指标
	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	// 记录日志
	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "storage operation failed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.InfoContext(ctx, "storage operation completed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

// observeRowsOperation 表级读写操作的观测逻辑，fn 返回本次操作涉及的行数
func (obs *ObservableStorage) observeRowsOperation(ctx context.Context, operation string, fn func(context.Context) (int, error)) error {
	start := time.Now()

	// 创建 tracing span
	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
			),
		)
		defer span.End()
	}

	// 记录活跃操作数
	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	// 执行实际操作
	rows, err := fn(ctx)
	duration := time.Since(start)

	// 更新 tracing span
	if obs.enableTracing && span != nil {
		span.SetAttributes(
			attribute.Int("rows", rows),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	// 记录指标
	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
		if err == nil {
			obs.metrics.rowsHistogram.WithLabelValues(operation).Observe(float64(rows))
		}
	}

	// 记录日志
	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "storage operation failed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.InfoContext(ctx, "storage operation completed",
				"component", obs.name,
				"operation", operation,
				"rows", rows,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (obs *ObservableStorage) LoadMetadata(ctx context.Context) (schema.Metadata, error) {
	var result schema.Metadata
	err := obs.observeOperation(ctx, "load_metadata", func(ctx context.Context) error {
		var loadErr error
		result, loadErr = obs.storage.LoadMetadata(ctx)
		return loadErr
	})
	return result, err
}

func (obs *ObservableStorage) SaveMetadata(ctx context.Context, md schema.Metadata) error {
	return obs.observeOperation(ctx, "save_metadata", func(ctx context.Context) error {
		return obs.storage.SaveMetadata(ctx, md)
	})
}

func (obs *ObservableStorage) LoadRows(ctx context.Context, table string) ([]engine.Row, error) {
	var result []engine.Row
	err := obs.observeRowsOperation(ctx, "load_rows", func(ctx context.Context) (int, error) {
		var loadErr error
		result, loadErr = obs.storage.LoadRows(ctx, table)
		return len(result), loadErr
	})
	return result, err
}

func (obs *ObservableStorage) SaveRows(ctx context.Context, table string, rows []engine.Row) error {
	return obs.observeRowsOperation(ctx, "save_rows", func(ctx context.Context) (int, error) {
		return len(rows), obs.storage.SaveRows(ctx, table, rows)
	})
}

func (obs *ObservableStorage) DropTable(ctx context.Context, table string) error {
	return obs.observeOperation(ctx, "drop_table", func(ctx context.Context) error {
		return obs.storage.DropTable(ctx, table)
	})
}

// ModTime 透传底层存储的修改时间，底层不支持时返回 false
func (obs *ObservableStorage) ModTime(table string) (time.Time, bool) {
	if mt, ok := obs.storage.(ModTimer); ok {
		return mt.ModTime(table)
	}
	return time.Time{}, false
}

func (obs *ObservableStorage) Close() error {
	return obs.observeOperation(context.Background(), "close", func(ctx context.Context) error {
		return obs.storage.Close()
	})
}

var _ Storage = (*ObservableStorage)(nil)
var _ ModTimer = (*ObservableStorage)(nil)
