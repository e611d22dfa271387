// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Init 配置全局 zerolog。所有服务进程在启动时调用一次。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回一个绑定了链路信息的 logger。
// 如果上下文中存在有效的 otel Span，会自动带上 trace_id，方便在 Jaeger 和日志之间互查。
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return &log.Logger
	}
	l := log.Logger.With().Str("trace_id", spanCtx.TraceID().String()).Logger()
	return &l
}
