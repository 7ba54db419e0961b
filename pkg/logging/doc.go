// Package logging builds the slog loggers used across collmock.
//
//	logger := logging.New(os.Stderr, "info", "text")
//	logger.Warn("collection skipped", "file", "users.json", "reason", "invalid_json")
//
// Components take a *slog.Logger in their struct fields or options and use
// OrNop when none is given. Tests that assert on warnings attach a Recorder.
package logging
