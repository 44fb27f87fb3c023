// Package log builds the application's slog loggers.
//
// Every logger returned by NewLogger is wrapped in a SecureHandler, which
// masks values that should never reach a terminal or a log file:
//   - request headers such as Cookie, Authorization and X-Api-Key
//   - keys containing words like "password", "token" or "session"
//   - token-shaped values (JWT, Bearer, Basic, AWS access keys)
//   - passwords embedded in URLs, which are logged as "user:xxxxx@host"
//
// Site configuration may carry cookies and auth headers for crawled sites,
// and the crawler logs those headers at debug level. Masking applies in
// verbose mode too.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, log.Options{Verbose: true})
//	slog.SetDefault(logger)
//
//	logger.Debug("using site request headers",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	    "url", "https://example.com/docs",
//	)
package log
