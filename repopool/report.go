package repopool

import (
	"log/slog"
	"time"

	"github.com/utilitywarehouse/git-backup/repository"
)

// Result of a single repository mirror task
type Result struct {
	Remote string
	Op     repository.Operation
	Err    error
}

// Report is the outcome of one discovery and mirror cycle
type Report struct {
	ID       string
	Start    time.Time
	Duration time.Duration

	// number of unique repositories discovered
	Repositories int
	Cloned       int
	Updated      int

	// unknown providers, provider listing failures and malformed urls
	DiscoveryErrors []error
	// failed clone or update, *repository.MirrorError
	MirrorErrors []error

	// bare repositories under root not referenced by this cycle
	Orphans []string
}

// Failed returns number of all failures in the cycle
func (r *Report) Failed() int {
	return len(r.DiscoveryErrors) + len(r.MirrorErrors)
}

func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.Duration("time", r.Duration),
		slog.Int("repositories", r.Repositories),
		slog.Int("cloned", r.Cloned),
		slog.Int("updated", r.Updated),
		slog.Int("discovery-errors", len(r.DiscoveryErrors)),
		slog.Int("mirror-errors", len(r.MirrorErrors)),
		slog.Int("orphans", len(r.Orphans)),
	)
}

func (r *Report) addResult(res Result) {
	if res.Err != nil {
		r.MirrorErrors = append(r.MirrorErrors, res.Err)
		return
	}
	switch res.Op {
	case repository.OpClone:
		r.Cloned++
	case repository.OpUpdate:
		r.Updated++
	}
}
