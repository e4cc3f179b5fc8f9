// Package repository maintains a bare mirror (`git clone --mirror`) of a
// single remote repository in a deterministic local directory.
//
// Each call to Mirror probes the file system to decide what to do. If the
// mirror directory does not exist the remote is cloned with `--mirror`,
// otherwise the existing mirror is updated with `git remote update`.
// A clone first creates the mirror directory and fails if it already
// exists. A failed update leaves the mirror as is and a failed clone removes
// only the directory it created, so the next call simply probes again.
// there is no retry within a call.
//
// Git commands are run through an Executor so that callers (and tests)
// can replace the git binary.
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
//	desc, err := repository.NewDescriptor("/var/backup", "individual", "git@github.com:org/repo.git")
//	if err != nil {
//		panic(err)
//	}
//	repo := repository.New(desc, repository.NewGitExecutor("", nil, logger), 10*time.Minute, logger)
//	op, err := repo.Mirror(ctx)
package repository
