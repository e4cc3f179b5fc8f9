package repopool_test

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/utilitywarehouse/git-backup/repopool"
)

func Example() {
	config := `
interval: 3600
path: /var/lib/git-backup
repos:
  - url: git@github.com:utilitywarehouse/git-mirror.git
owners:
  - provider: github_org
    namespace: utilitywarehouse
    auth_token: ${GITHUB_TOKEN}
`
	conf := repopool.Config{}
	if err := yaml.Unmarshal([]byte(config), &conf); err != nil {
		panic(err)
	}

	repos, err := repopool.New(conf, nil, slog.Default())
	if err != nil {
		panic(err)
	}

	// a real process would call repos.StartLoop(ctx) here
	c := repos.Config()
	fmt.Println(c.Path, c.Interval.Duration(), c.MirrorTimeout.Duration(), c.MaxConcurrency)
	// Output: /var/lib/git-backup 1h0m0s 30m0s 8
}
