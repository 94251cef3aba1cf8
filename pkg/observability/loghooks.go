package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a charmbracelet logger at debug level, and
// failures at warn level. It implements all three hook interfaces.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks that log to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

func (h *LogHooks) done(msg string, d time.Duration, err error, kv ...any) {
	kv = append(kv, "elapsed", d.Round(time.Millisecond))
	if err != nil {
		h.logger.Warn(msg+" failed", append(kv, "err", err)...)
		return
	}
	h.logger.Debug(msg, kv...)
}

func (h *LogHooks) OnLoadStart(_ context.Context, kind, source string) {
	h.logger.Debug("load", "kind", kind, "source", source)
}

func (h *LogHooks) OnLoadComplete(_ context.Context, kind, source string, records int, d time.Duration, err error) {
	h.done("loaded", d, err, "kind", kind, "source", source, "records", records)
}

func (h *LogHooks) OnTransformStart(_ context.Context, src, dst string, points int) {
	h.logger.Debug("transform", "from", src, "to", dst, "points", points)
}

func (h *LogHooks) OnTransformComplete(_ context.Context, src, dst string, d time.Duration, err error) {
	h.done("transformed", d, err, "from", src, "to", dst)
}

func (h *LogHooks) OnRenderStart(_ context.Context, chart string, formats []string) {
	h.logger.Debug("render", "chart", chart, "formats", formats)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, chart string, formats []string, d time.Duration, err error) {
	h.done("rendered", d, err, "chart", chart, "formats", formats)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, route string) {
	h.logger.Debug("request", "method", method, "route", route)
}

func (h *LogHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.logger.Info("response", "method", method, "route", route, "status", status, "elapsed", d.Round(time.Microsecond))
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
