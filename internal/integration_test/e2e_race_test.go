//go:build deadlock_test

package e2e_test

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/utilitywarehouse/git-backup/repopool"
)

func Test_mirror_detect_race_loop(t *testing.T) {
	tmp := mustTmpDir(t)
	upstreamRoot := filepath.Join(tmp, "upstream")
	root := filepath.Join(tmp, "mirrors")

	var repos []repopool.RepoConfig
	for i := range 5 {
		name := fmt.Sprintf("repo%d.git", i)
		mustInitRepo(t, filepath.Join(upstreamRoot, "acme", name), "file", name+"-1")
		repos = append(repos, repopool.RepoConfig{URL: testHost + "acme/" + name})
	}

	rp, err := repopool.New(repopool.Config{
		Path:           root,
		Interval:       repopool.Seconds(time.Second),
		MaxConcurrency: 2,
		Repos:          repos,
	}, gitExecutor(t, upstreamRoot), slog.Default())
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go rp.StartLoop(ctx)

	wg := &sync.WaitGroup{}

	// all following assertions will always be true
	// this test is about testing deadlocks and detecting race conditions
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rp.QueueCycle()
			if r := rp.LastReport(); r != nil && len(r.MirrorErrors) > 0 {
				t.Error("unexpected mirror errors", "errors", r.MirrorErrors)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			if r := rp.RunCycle(ctx); len(r.MirrorErrors) > 0 {
				t.Error("unexpected mirror errors", "errors", r.MirrorErrors)
			}
		}
	}()

	for i := 2; i < 5; i++ {
		mustCommit(t, filepath.Join(upstreamRoot, "acme", "repo0.git"), "file", fmt.Sprintf("repo0.git-%d", i))
		time.Sleep(500 * time.Millisecond)
	}

	wg.Wait()

	// final cycle after all upstream changes
	want := mustHead(t, filepath.Join(upstreamRoot, "acme", "repo0.git"))
	rp.RunCycle(ctx)
	assertMirrorHead(t, filepath.Join(root, "individual", "acme", "repo0.git"), want)

	cancel()
	select {
	case <-rp.Stopped:
	case <-time.After(time.Minute):
		t.Fatal("mirror loop did not stop")
	}
}
