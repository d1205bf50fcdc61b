package logger

import "log/slog"

// Err returns a uniformly keyed attr for logging errors.
func Err(err error) slog.Attr {
	return slog.Any("err", err)
}
