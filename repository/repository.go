package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/utilitywarehouse/git-backup/giturl"
	"github.com/utilitywarehouse/git-backup/internal/utils"
)

// MinAllowedTimeout is the shortest accepted mirror operation timeout
const MinAllowedTimeout = time.Second

// SourceIndividual is the path tag of directly configured repositories
const SourceIndividual = "individual"

// Operation is the git operation performed on a mirror
type Operation string

const (
	OpProbe  Operation = "probe"
	OpMkdir  Operation = "mkdir"
	OpClone  Operation = "clone"
	OpUpdate Operation = "update"
)

// State of the mirror as seen at the start of a mirror run
type State string

const (
	StateNotCloned State = "not-cloned"
	StateMirrored  State = "mirrored"
)

// Descriptor is the resolved location of a single repository mirror.
// it is created fresh on every discovery and never modified.
type Descriptor struct {
	// SSH clone URL of the remote
	Remote string
	// Directory containing the mirror, always parent of RepoPath
	FolderPath string
	// Path of the bare mirror itself
	RepoPath string
	// provider name or 'individual' used as first path element under root
	Source string
}

// NewDescriptor maps given remote to its mirror location under root
func NewDescriptor(root, source, remote string) (Descriptor, error) {
	remote = giturl.NormaliseURL(remote)

	repoPath, err := giturl.LocalPath(root, source, remote)
	if err != nil {
		return Descriptor{}, err
	}

	return Descriptor{
		Remote:     remote,
		FolderPath: filepath.Dir(repoPath),
		RepoPath:   repoPath,
		Source:     source,
	}, nil
}

// MirrorError is returned when a mirror operation fails for a repository
type MirrorError struct {
	Remote string
	Op     Operation
	Err    error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("%s failed for %s: %s", e.Op, e.Remote, e.Err)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}

// Repository represents the local mirror of the given remote.
type Repository struct {
	desc    Descriptor
	exec    Executor
	timeout time.Duration // time allowed for single git operation, 0 means no limit
	log     *slog.Logger
}

// New creates Repository for given descriptor. nothing is done on disk
// until Mirror is called.
func New(desc Descriptor, exec Executor, timeout time.Duration, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}
	return &Repository{
		desc:    desc,
		exec:    exec,
		timeout: timeout,
		log:     log.With("remote", desc.Remote),
	}
}

// Descriptor returns location details of the mirror
func (r *Repository) Descriptor() Descriptor {
	return r.desc
}

// State probes the file system for the mirror directory
func (r *Repository) State() (State, error) {
	exists, err := utils.PathExists(r.desc.RepoPath)
	if err != nil {
		return "", err
	}
	if exists {
		return StateMirrored, nil
	}
	return StateNotCloned, nil
}

// EnsureFolder creates parent folder of the mirror if missing
func (r *Repository) EnsureFolder() error {
	if err := utils.EnsureDir(r.desc.FolderPath); err != nil {
		return &MirrorError{Remote: r.desc.Remote, Op: OpMkdir, Err: err}
	}
	return nil
}

// Mirror will either clone or update the mirror based on current state
//  1. probe mirror dir
//  2. `clone --mirror` if it doesn't exist or
//  3. `remote update` if it does
//
// it returns operation performed and *MirrorError on failure
func (r *Repository) Mirror(ctx context.Context) (Operation, error) {
	defer updateMirrorLatency(r.desc.Remote, time.Now())

	state, err := r.State()
	if err != nil {
		return OpProbe, &MirrorError{Remote: r.desc.Remote, Op: OpProbe, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	op := OpUpdate
	start := time.Now()

	switch state {
	case StateNotCloned:
		op = OpClone
		err = r.clone(ctx)
	default:
		r.log.Info("updating mirror", "path", r.desc.RepoPath)
		// git remote update
		_, err = r.exec.Run(ctx, r.desc.RepoPath, "remote", "update")
	}

	recordGitMirror(r.desc.Remote, op, err == nil)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		return op, &MirrorError{Remote: r.desc.Remote, Op: op, Err: err}
	}

	r.log.Info("mirror complete", "op", op, "time", time.Since(start))
	return op, nil
}

// clone claims mirror dir by creating it and clones into it. on failure only
// the dir created here is removed so an existing mirror at the same path is
// never touched.
func (r *Repository) clone(ctx context.Context) error {
	if err := utils.EnsureDir(r.desc.FolderPath); err != nil {
		return err
	}
	if err := os.Mkdir(r.desc.RepoPath, 0755); err != nil {
		return fmt.Errorf("unable to create mirror dir: %w", err)
	}

	r.log.Info("cloning mirror", "path", r.desc.RepoPath)
	// clone into explicit dir so that path doesn't depend on git's naming
	// git clone --mirror <remote> <repo-dir>
	_, err := r.exec.Run(ctx, r.desc.FolderPath, "clone", "--mirror", r.desc.Remote, filepath.Base(r.desc.RepoPath))
	if err != nil {
		// a killed clone can leave partial dir behind which would be
		// treated as mirrored on next run
		if rmErr := os.RemoveAll(r.desc.RepoPath); rmErr != nil {
			r.log.Error("unable to remove partial clone", "path", r.desc.RepoPath, "err", rmErr)
		}
		return err
	}
	return nil
}
