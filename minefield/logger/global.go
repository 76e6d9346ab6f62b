package logger

import (
	"log/slog"
)

// LogGame logs game-engine events (rolls, deaths, arena rounds)
func LogGame(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "game")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}
