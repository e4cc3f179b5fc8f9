package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"

	"golang.org/x/oauth2"

	"github.com/utilitywarehouse/git-backup/repository"
)

// ErrUnknownProvider is returned by Resolve for unsupported provider names
var ErrUnknownProvider = errors.New("no provider available")

// OwnerConfig is a remote account or group to enumerate
type OwnerConfig struct {
	// one of github_user, github_org, gitlab_user or gitlab_group
	Provider string `yaml:"provider"`
	// user, org or group name. gitlab subgroups can be given as 'group/sub'
	Namespace string `yaml:"namespace"`
	// optional bearer token, $VAR and ${VAR} are expanded from env
	AuthToken string `yaml:"auth_token"`
	// optional API base url for self hosted instances
	APIURL string `yaml:"api_url"`
}

// Provider lists all repositories of an owner
type Provider interface {
	// Name is the provider identifier, it is also used as path tag for
	// mirrors of the owner
	Name() string

	// Repositories returns descriptors of all repositories of the owner.
	// entries with malformed urls are skipped and returned as []error,
	// error is returned if listing itself failed
	Repositories(ctx context.Context, owner OwnerConfig, root string) ([]repository.Descriptor, []error, error)
}

var providers = map[string]Provider{}

func register(p Provider, aliases ...string) {
	providers[p.Name()] = p
	for _, a := range aliases {
		providers[a] = p
	}
}

func init() {
	register(newGitHub("github_user", "/users/%s/repos"))
	register(newGitHub("github_org", "/orgs/%s/repos"))
	register(newGitLab("gitlab_user", "/api/v4/users/%s/projects", nil))
	register(newGitLab("gitlab_group", "/api/v4/groups/%s/projects", url.Values{"include_subgroups": {"true"}}), "gitlab_org")
}

// Resolve returns provider for the given identifier
func Resolve(name string) (Provider, error) {
	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns all supported provider identifiers including aliases
func Names() []string {
	var names []string
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Individual maps directly configured repository urls to descriptors.
// no network call is made, urls are only validated.
func Individual(root string, urls []string) ([]repository.Descriptor, []error) {
	return toDescriptors(root, repository.SourceIndividual, urls)
}

// token given as whole "$VAR" or "${VAR}" is read from env
var envTokenRgx = regexp.MustCompile(`^\$(?:\{(?P<braced>\w+)\}|(?P<plain>\w+))$`)

// expandToken returns value of the env var if token references one,
// otherwise token is returned as is
func expandToken(token string) string {
	sections := envTokenRgx.FindStringSubmatch(token)
	if sections == nil {
		return token
	}
	name := sections[envTokenRgx.SubexpIndex("braced")]
	if name == "" {
		name = sections[envTokenRgx.SubexpIndex("plain")]
	}
	return os.Getenv(name)
}

// httpClient returns client which adds bearer token to all requests.
// base client can be set on ctx with oauth2.HTTPClient key
func httpClient(ctx context.Context, token string) *http.Client {
	token = expandToken(token)
	if token == "" {
		return oauth2.NewClient(ctx, nil)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func apiURL(owner OwnerConfig, def string) string {
	if owner.APIURL != "" {
		return owner.APIURL
	}
	return def
}

func toDescriptors(root, source string, urls []string) ([]repository.Descriptor, []error) {
	var descs []repository.Descriptor
	var errs []error

	for _, u := range urls {
		d, err := repository.NewDescriptor(root, source, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		descs = append(descs, d)
	}
	return descs, errs
}
