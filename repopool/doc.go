// Package repopool discovers repositories of configured owners and keeps
// bare mirrors of all of them under a single root.
//
// # Cycle
//
// every cycle lists repositories of all sources, drops duplicate remotes,
// creates parent folders and then mirrors all repositories with bounded
// concurrency. failures are collected in the cycle Report, they never stop
// the cycle or the loop.
//
// # Logging:
//
// package takes slog reference for logging and prints logs up to 'trace' level
//
// Example:
//
//	loggerLevel  = new(slog.LevelVar)
//	levelStrings = map[string]slog.Level{
//		"trace": slog.Level(-8),
//		"debug": slog.LevelDebug,
//		"info":  slog.LevelInfo,
//		"warn":  slog.LevelWarn,
//		"error": slog.LevelError,
//	}
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//		Level: loggerLevel,
//	}))
//	loggerLevel.Set(levelStrings["trace"])
//
//	repos, err := repopool.New(conf, nil, logger.With("logger", "git-backup"))
//	if err != nil {
//		panic(err)
//	}
package repopool
