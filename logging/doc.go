// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package logging builds the process-wide slog logger.

	level, err := logging.ParseLevel(cfg.LogLevel)
	slog.SetDefault(logging.New(os.Stderr, level))

Output is human-readable text when attached to a terminal and JSON lines
otherwise, so container logs stay machine-parseable.
*/
package logging
