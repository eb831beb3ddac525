package cycle

import "go.uber.org/zap"

// A LogHook writes every hook site of a controller to a logger at debug
// level.
type LogHook struct {
	logger *zap.Logger
}

// NewLogHook creates a LogHook.
func NewLogHook(logger *zap.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func logs the site.
func (h *LogHook) Func(ctx HookCtx) {
	fields := []zap.Field{
		zap.String("pos", ctx.Pos.Name),
		zap.Int("year", ctx.Year),
	}

	if stage, ok := ctx.Detail.(Stage); ok {
		fields = append(fields, zap.String("stage", string(stage)))
	}

	h.logger.Debug("hook", fields...)
}
