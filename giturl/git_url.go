// Package giturl parses scp-like git url syntax and maps remotes to
// local mirror paths
package giturl

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrMalformedURL is returned for remotes which are not in
// 'user@host:namespace/repo' form
var ErrMalformedURL = errors.New("url is not in SSH format")

var (
	// user@host.xz:path/to/repo.git
	scpURLRgx = regexp.MustCompile(`^(?P<user>[^@\s/:]+)@(?P<host>[^@\s/:]+):(?P<path>[^\s]+)$`)
)

// URL represents parsed scp-like git url
type URL struct {
	User      string // user part before '@'
	Host      string // host part before ':'
	Namespace string // everything between ':' and the last '/', subgroups are kept as is
	Repo      string // repository name from the path includes .git if present
}

// NormaliseURL will return trimmed url
func NormaliseURL(rawURL string) string {
	return strings.TrimSpace(rawURL)
}

// IsSCPURL returns true if supplied URL is scp-like syntax
func IsSCPURL(rawURL string) bool {
	return scpURLRgx.MatchString(rawURL)
}

// Parse parses a raw url into a URL structure.
// only 'user@host.xz:path/to/repo.git' is valid, https or ssh:// urls
// are rejected rather then being mis-split.
func Parse(rawURL string) (*URL, error) {
	rawURL = NormaliseURL(rawURL)

	sections := scpURLRgx.FindStringSubmatch(rawURL)
	if sections == nil {
		return nil, fmt.Errorf("%w, was %q", ErrMalformedURL, rawURL)
	}

	gURL := &URL{
		User: sections[scpURLRgx.SubexpIndex("user")],
		Host: sections[scpURLRgx.SubexpIndex("host")],
	}

	// the final colon-delimited segment is the remote path
	remotePath := sections[scpURLRgx.SubexpIndex("path")]
	if i := strings.LastIndex(remotePath, ":"); i >= 0 {
		remotePath = remotePath[i+1:]
	}
	remotePath = strings.Trim(remotePath, "/")

	i := strings.LastIndex(remotePath, "/")
	if i <= 0 {
		return nil, fmt.Errorf("%w, namespace missing in %q", ErrMalformedURL, rawURL)
	}
	gURL.Namespace = remotePath[:i]
	gURL.Repo = remotePath[i+1:]

	if gURL.Repo == "" || gURL.Repo == ".git" {
		return nil, fmt.Errorf("%w, repo name is invalid in %q", ErrMalformedURL, rawURL)
	}

	// mapped path must stay under the given root
	for _, seg := range strings.Split(remotePath, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return nil, fmt.Errorf("%w, invalid path segment %q in %q", ErrMalformedURL, seg, rawURL)
		}
	}

	return gURL, nil
}

// LocalPath returns path of the mirror directory for the given remote.
// path is constructed as root/tag/namespace/repo where tag is either
// provider name or 'individual' for directly configured repositories.
// same remote always maps to the same path.
func LocalPath(root, tag, rawURL string) (string, error) {
	gURL, err := Parse(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, tag, filepath.FromSlash(gURL.Namespace), gURL.Repo), nil
}
