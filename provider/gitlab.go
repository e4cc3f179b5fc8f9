package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/utilitywarehouse/git-backup/repository"
)

const gitlabAPIURL = "https://gitlab.com"

type gitLab struct {
	name    string
	pathFmt string
	query   url.Values
}

func newGitLab(name, pathFmt string, query url.Values) *gitLab {
	return &gitLab{name: name, pathFmt: pathFmt, query: query}
}

func (g *gitLab) Name() string {
	return g.name
}

func (g *gitLab) Repositories(ctx context.Context, owner OwnerConfig, root string) ([]repository.Descriptor, []error, error) {
	req := PageRequest{
		Provider:  g.name,
		Namespace: owner.Namespace,
		BaseURL:   apiURL(owner, gitlabAPIURL),
		// gitlab accepts url encoded full path of subgroups as id
		Path:  fmt.Sprintf(g.pathFmt, url.PathEscape(owner.Namespace)),
		Query: g.query,
	}

	urls, err := FetchAll(ctx, httpClient(ctx, owner.AuthToken), req, decodeProjectURLs)
	if err != nil {
		return nil, nil, err
	}

	descs, errs := toDescriptors(root, g.name, urls)
	return descs, errs, nil
}

// decodeProjectURLs returns 'ssh_url_to_repo' of every project in the page.
// projects without the field are kept as empty url so page size is not affected
func decodeProjectURLs(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json")
	}

	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("expected json array got %s", res.Type)
	}

	urls := []string{}
	res.ForEach(func(_, project gjson.Result) bool {
		urls = append(urls, project.Get("ssh_url_to_repo").String())
		return true
	})
	return urls, nil
}
