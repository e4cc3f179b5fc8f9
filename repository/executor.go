package repository

import (
	"context"
	"log/slog"
	"os/exec"

	"github.com/utilitywarehouse/git-backup/internal/utils"
)

var gitExecutablePath string

func init() {
	gitExecutablePath = exec.Command("git").String()
}

// Executor runs git with given arguments in the given working dir
type Executor interface {
	Run(ctx context.Context, cwd string, args ...string) (string, error)
}

// GitExecutor runs git binary as a sub process
type GitExecutor struct {
	cmd  string
	envs []string // envs which will be passed to git commands
	log  *slog.Logger
}

// NewGitExecutor returns Executor for given git binary, if gitExec is
// empty git is looked up from PATH.
func NewGitExecutor(gitExec string, envs []string, log *slog.Logger) *GitExecutor {
	if gitExec == "" {
		gitExec = gitExecutablePath
	}
	if log == nil {
		log = slog.Default()
	}
	return &GitExecutor{cmd: gitExec, envs: envs, log: log}
}

func (g *GitExecutor) Run(ctx context.Context, cwd string, args ...string) (string, error) {
	return utils.RunCommand(ctx, g.log, g.envs, cwd, g.cmd, args...)
}
