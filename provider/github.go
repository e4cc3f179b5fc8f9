package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-github/v84/github"

	"github.com/utilitywarehouse/git-backup/giturl"
	"github.com/utilitywarehouse/git-backup/repository"
)

const (
	githubAPIURL    = "https://api.github.com"
	githubUserAgent = "git-backup"
)

type gitHub struct {
	name    string
	pathFmt string
}

func newGitHub(name, pathFmt string) *gitHub {
	return &gitHub{name: name, pathFmt: pathFmt}
}

func (g *gitHub) Name() string {
	return g.name
}

func (g *gitHub) Repositories(ctx context.Context, owner OwnerConfig, root string) ([]repository.Descriptor, []error, error) {
	req := PageRequest{
		Provider:  g.name,
		Namespace: owner.Namespace,
		BaseURL:   apiURL(owner, githubAPIURL),
		Path:      fmt.Sprintf(g.pathFmt, url.PathEscape(owner.Namespace)),
		Header: http.Header{
			"Accept":               {"application/vnd.github+json"},
			"User-Agent":           {githubUserAgent},
			"X-Github-Api-Version": {"2022-11-28"},
		},
	}

	repos, err := FetchAll(ctx, httpClient(ctx, owner.AuthToken), req, DecodeJSON[*github.Repository])
	if err != nil {
		return nil, nil, err
	}

	var skipped []error
	urls := make([]string, 0, len(repos))
	for _, r := range repos {
		if r.GetSSHURL() == "" {
			skipped = append(skipped, fmt.Errorf("%w, repository %q has no ssh_url", giturl.ErrMalformedURL, r.GetName()))
			continue
		}
		urls = append(urls, r.GetSSHURL())
	}

	descs, errs := toDescriptors(root, g.name, urls)
	return descs, append(skipped, errs...), nil
}
