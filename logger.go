package difacto

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with difacto-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithEpoch adds an epoch field to the logger.
func (l *Logger) WithEpoch(epoch int) *Logger {
	return &Logger{
		Logger: l.Logger.With("epoch", epoch),
	}
}

// WithBlock adds a block index field to the logger.
func (l *Logger) WithBlock(block int) *Logger {
	return &Logger{
		Logger: l.Logger.With("block", block),
	}
}

// WithShard adds a shard index field to the logger.
func (l *Logger) WithShard(shard int) *Logger {
	return &Logger{
		Logger: l.Logger.With("shard", shard),
	}
}

// WithDimension adds an embedding dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogRound logs the completion of one training round over all blocks.
func (l *Logger) LogRound(ctx context.Context, epoch, blocks int, progress Progress, err error) {
	if err != nil {
		l.ErrorContext(ctx, "round failed",
			"epoch", epoch,
			"blocks", blocks,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "round completed",
			"epoch", epoch,
			"blocks", blocks,
			"nonzero_weights", progress.NonzeroWeights,
			"embeddings", progress.Embeddings,
			"examples", progress.Examples,
			"objective", progress.Objective,
		)
	}
}

// LogBlock logs the completion of a single block update.
func (l *Logger) LogBlock(ctx context.Context, block int, examples int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "block update failed",
			"block", block,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "block update completed",
			"block", block,
			"examples", examples,
		)
	}
}

// LogCheckpointSave logs a checkpoint save.
func (l *Logger) LogCheckpointSave(ctx context.Context, manifest string, shards int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint save failed",
			"manifest", manifest,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "checkpoint saved",
			"manifest", manifest,
			"shards", shards,
		)
	}
}

// LogCheckpointLoad logs a checkpoint restore.
func (l *Logger) LogCheckpointLoad(ctx context.Context, manifest string, shards int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint load failed",
			"manifest", manifest,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "checkpoint loaded",
			"manifest", manifest,
			"shards", shards,
		)
	}
}
