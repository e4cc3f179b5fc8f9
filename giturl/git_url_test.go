package giturl

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    *URL
		wantErr bool
	}{
		{"1",
			"user@host.xz:path/to/repo.git",
			&URL{User: "user", Host: "host.xz", Namespace: "path/to", Repo: "repo.git"},
			false,
		},
		{"2",
			"git@github.com:org/repo.git",
			&URL{User: "git", Host: "github.com", Namespace: "org", Repo: "repo.git"},
			false},
		{"no_git_suffix",
			"git@github.com:org/repo",
			&URL{User: "git", Host: "github.com", Namespace: "org", Repo: "repo"},
			false},
		{"gitlab_subgroup",
			"git@gitlab.com:group/sub/deeper/project.git",
			&URL{User: "git", Host: "gitlab.com", Namespace: "group/sub/deeper", Repo: "project.git"},
			false},
		{"surrounding_spaces",
			"  git@github.com:org/repo.git ",
			&URL{User: "git", Host: "github.com", Namespace: "org", Repo: "repo.git"},
			false},
		{"last_colon_segment",
			"git@github.com:2222:org/repo.git",
			&URL{User: "git", Host: "github.com", Namespace: "org", Repo: "repo.git"},
			false},

		{"https", "https://github.com/acme/widgets", nil, true},
		{"ssh_scheme", "ssh://git@github.com/org/repo.git", nil, true},
		{"file", "file:///path/to/repo.git", nil, true},
		{"no_user", "github.com:org/repo.git", nil, true},
		{"no_colon", "git@github.com/org/repo.git", nil, true},
		{"empty", "", nil, true},

		{"invalid_path_1", "git@host.xz:/r.git", nil, true},
		{"invalid_path_2", "git@host.xz:.git", nil, true},
		{"invalid_path_3", "git@host.xz:/.git", nil, true},
		{"invalid_path_4", "git@host.xz:dd/.git", nil, true},
		{"invalid_path_5", "git@host.xz:../repo.git", nil, true},
		{"invalid_path_6", "git@host.xz:org/../../repo.git", nil, true},
		{"invalid_path_7", "git@host.xz:org//repo.git", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedURL) {
				t.Errorf("Parse() error = %v, want ErrMalformedURL", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		tag     string
		rawURL  string
		want    string
		wantErr bool
	}{
		{"individual", "./mirrors", "individual", "git@github.com:acme/widgets.git", filepath.Join("mirrors", "individual", "acme", "widgets.git"), false},
		{"github_user", "/backup", "github_user", "git@github.com:acme/widgets.git", "/backup/github_user/acme/widgets.git", false},
		{"gitlab_group", "/backup", "gitlab_group", "git@gitlab.com:acme/tools/cli.git", "/backup/gitlab_group/acme/tools/cli.git", false},
		{"https_rejected", "/backup", "individual", "https://github.com/acme/widgets", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalPath(tt.root, tt.tag, tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LocalPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("LocalPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocalPath_deterministic(t *testing.T) {
	urls := []string{
		"git@github.com:acme/widgets.git",
		"git@gitlab.com:acme/tools/cli.git",
		"deploy@example.org:team/service",
	}

	first := make(map[string]string)
	for _, u := range urls {
		p, err := LocalPath("/root", "individual", u)
		if err != nil {
			t.Fatalf("unexpected err:%s", err)
		}
		first[u] = p
	}

	// reverse order and repeat
	for i := 0; i < 3; i++ {
		for j := len(urls) - 1; j >= 0; j-- {
			p, err := LocalPath("/root", "individual", urls[j])
			if err != nil {
				t.Fatalf("unexpected err:%s", err)
			}
			if p != first[urls[j]] {
				t.Errorf("LocalPath() not deterministic got:%s want:%s", p, first[urls[j]])
			}
		}
	}
}
