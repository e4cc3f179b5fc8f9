package repopool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/sync/errgroup"

	"github.com/utilitywarehouse/git-backup/internal/lock"
	"github.com/utilitywarehouse/git-backup/provider"
	"github.com/utilitywarehouse/git-backup/repository"
)

var ErrRunning = errors.New("mirror loop is already running")

// RepoPool discovers repositories of all configured sources and keeps
// their local mirrors up to date.
// A RepoPool is safe for concurrent use by multiple goroutines.
type RepoPool struct {
	conf Config
	exec repository.Executor
	log  *slog.Logger

	lock       lock.RWMutex
	cycleLock  lock.Mutex
	running    bool
	lastReport *Report

	queueCycle chan struct{}
	Stopped    chan bool
}

// New will create repository pool based on given config.
// nothing is discovered or mirrored until either RunCycle() or StartLoop() is called
func New(conf Config, exec repository.Executor, log *slog.Logger) (*RepoPool, error) {
	if err := conf.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}
	if exec == nil {
		exec = repository.NewGitExecutor("", nil, log)
	}

	return &RepoPool{
		conf:       conf,
		exec:       exec,
		log:        log,
		queueCycle: make(chan struct{}, 1),
		Stopped:    make(chan bool),
	}, nil
}

// Config returns config in use including defaults
func (rp *RepoPool) Config() Config {
	return rp.conf
}

type ownerResult struct {
	repos []repository.Descriptor
	errs  []error
	// mirror sub tree of the owner if listing failed
	failedPath string
}

// Discover lists repositories of all configured sources. directly configured
// repositories come first followed by owners in config order.
// duplicates and remotes mapping to an already claimed mirror path are
// dropped, first occurrence wins. discovery errors of a
// source do not stop discovery of others.
func (rp *RepoPool) Discover(ctx context.Context) (*Pool, []error) {
	pool, errs, _ := rp.discover(ctx)
	return pool, errs
}

func (rp *RepoPool) discover(ctx context.Context) (*Pool, []error, []string) {
	var errs []error
	var failedPaths []string

	urls := make([]string, 0, len(rp.conf.Repos))
	for _, r := range rp.conf.Repos {
		urls = append(urls, r.URL)
	}
	individual, urlErrs := provider.Individual(rp.conf.Path, urls)
	for _, err := range urlErrs {
		rp.log.Warn("skipping invalid repository url", "err", err)
	}
	errs = append(errs, urlErrs...)

	mapper := iter.Mapper[provider.OwnerConfig, ownerResult]{
		MaxGoroutines: rp.conf.DiscoveryConcurrency,
	}
	results := mapper.Map(rp.conf.Owners, func(owner *provider.OwnerConfig) ownerResult {
		return rp.discoverOwner(ctx, *owner)
	})

	pool := NewPool()
	add := func(repos []repository.Descriptor) {
		for _, d := range repos {
			err := pool.Add(d)
			switch {
			case errors.Is(err, ErrExist):
				rp.log.Debug("skipping duplicate repository", "remote", d.Remote, "source", d.Source)
			case errors.Is(err, ErrPathConflict):
				rp.log.Warn("skipping repository with conflicting mirror path", "err", err)
				errs = append(errs, err)
			}
		}
	}

	add(individual)
	for _, res := range results {
		add(res.repos)
		errs = append(errs, res.errs...)
		if res.failedPath != "" {
			failedPaths = append(failedPaths, res.failedPath)
		}
	}

	return pool, errs, failedPaths
}

func (rp *RepoPool) discoverOwner(ctx context.Context, owner provider.OwnerConfig) ownerResult {
	log := rp.log.With("provider", owner.Provider, "namespace", owner.Namespace)

	p, err := provider.Resolve(owner.Provider)
	if err != nil {
		log.Warn("skipping owner with unknown provider", "supported", provider.Names())
		return ownerResult{errs: []error{fmt.Errorf("owner %s: %w", owner.Namespace, err)}}
	}

	repos, skipped, err := p.Repositories(ctx, owner, rp.conf.Path)
	if err != nil {
		log.Error("unable to list repositories", "err", err)
		return ownerResult{
			errs:       []error{err},
			failedPath: filepath.Join(rp.conf.Path, p.Name(), filepath.FromSlash(owner.Namespace)),
		}
	}
	for _, err := range skipped {
		log.Warn("skipping repository", "err", err)
	}

	log.Debug("repositories listed", "count", len(repos))
	return ownerResult{repos: repos, errs: skipped}
}

// MirrorAll will mirror every repository in the pool. parent folders of all
// mirrors are created before any git operation starts and at most
// MaxConcurrency git operations run at once. MirrorAll returns once all
// tasks are finished, failure of a task does not affect others.
// results are in pool order.
func (rp *RepoPool) MirrorAll(ctx context.Context, pool *Pool) []Result {
	descs := pool.Repositories()
	results := make([]Result, len(descs))
	repos := make([]*repository.Repository, len(descs))

	for i, d := range descs {
		repo := repository.New(d, rp.exec, rp.conf.MirrorTimeout.Duration(), rp.log)
		if err := repo.EnsureFolder(); err != nil {
			results[i] = Result{Remote: d.Remote, Op: repository.OpMkdir, Err: err}
			continue
		}
		repos[i] = repo
	}

	g := new(errgroup.Group)
	g.SetLimit(rp.conf.MaxConcurrency)

	for i, repo := range repos {
		if repo == nil {
			continue
		}
		g.Go(func() error {
			op, err := repo.Mirror(ctx)
			results[i] = Result{Remote: repo.Descriptor().Remote, Op: op, Err: err}
			return nil
		})
	}

	// tasks never return error
	_ = g.Wait()

	return results
}

// RunCycle performs a single discovery and mirror cycle and returns its report.
// cycles never overlap, a call waits for the running cycle to finish.
func (rp *RepoPool) RunCycle(ctx context.Context) *Report {
	rp.cycleLock.Lock()
	defer rp.cycleLock.Unlock()

	report := &Report{ID: uuid.NewString(), Start: time.Now()}
	log := rp.log.With("cycle", report.ID)

	log.Info("starting backup cycle", "path", rp.conf.Path)

	pool, errs, failedPaths := rp.discover(ctx)
	report.DiscoveryErrors = errs
	report.Repositories = pool.Len()

	log.Info("discovery complete", "repositories", pool.Len(), "errors", len(errs))

	for _, res := range rp.MirrorAll(ctx, pool) {
		report.addResult(res)
	}

	orphans, err := findOrphans(rp.conf.Path, pool, failedPaths)
	if err != nil {
		log.Error("unable to scan for orphaned mirrors", "err", err)
	}
	for _, o := range orphans {
		log.Warn("mirror is no longer referenced by any source", "path", o)
	}
	report.Orphans = orphans

	report.Duration = time.Since(report.Start)
	recordCycle(report)

	rp.lock.Lock()
	rp.lastReport = report
	rp.lock.Unlock()

	for _, err := range report.MirrorErrors {
		log.Error("mirror failed", "err", err)
	}
	log.Info("backup cycle complete", "report", report)

	return report
}

// LastReport returns report of the last completed cycle or nil
func (rp *RepoPool) LastReport() *Report {
	rp.lock.RLock()
	defer rp.lock.RUnlock()
	return rp.lastReport
}

// QueueCycle will shorten the wait before the next cycle. if a cycle is
// running, next one will start immediately after it.
func (rp *RepoPool) QueueCycle() {
	select {
	case rp.queueCycle <- struct{}{}:
		rp.log.Debug("backup cycle queued")
	default:
		rp.log.Debug("backup cycle already queued")
	}
}

// StartLoop runs cycles until given context is cancelled, waiting for the
// configured interval between end of one cycle and start of the next.
// it blocks and closes Stopped on return.
func (rp *RepoPool) StartLoop(ctx context.Context) error {
	rp.lock.Lock()
	if rp.running {
		rp.lock.Unlock()
		return ErrRunning
	}
	rp.running = true
	rp.lock.Unlock()

	defer close(rp.Stopped)

	for {
		rp.RunCycle(ctx)

		if ctx.Err() != nil {
			rp.log.Info("mirror loop stopped")
			return nil
		}

		rp.log.Info("waiting for next cycle", "interval", rp.conf.Interval.Duration())
		t := time.NewTimer(rp.conf.Interval.Duration())
		select {
		case <-t.C:
		case <-rp.queueCycle:
			t.Stop()
		case <-ctx.Done():
			t.Stop()
			rp.log.Info("mirror loop stopped")
			return nil
		}
	}
}
