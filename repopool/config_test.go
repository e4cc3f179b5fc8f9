package repopool

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/utilitywarehouse/git-backup/provider"
)

func TestSeconds_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "interval: 86400", 24 * time.Hour, false},
		{"zero", "interval: 0", 0, false},
		{"duration", "interval: 90m", 90 * time.Minute, false},
		{"quoted_seconds", "interval: \"30\"", 30 * time.Second, false},
		{"invalid", "interval: daily", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Interval Seconds `yaml:"interval"`
			}
			err := yaml.Unmarshal([]byte(tt.in), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Interval.Duration() != tt.want {
				t.Errorf("Unmarshal() got = %s, want %s", got.Interval.Duration(), tt.want)
			}
		})
	}
}

func TestRepoPoolConfig_validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"valid", Config{
			Interval:      Seconds(time.Minute),
			Path:          "/backup",
			MirrorTimeout: Seconds(time.Minute),
			Repos:         []RepoConfig{{URL: "git@github.com:acme/widgets.git"}},
			Owners:        []provider.OwnerConfig{{Provider: "github_org", Namespace: "acme"}},
		}, false},
		{"unknown_provider_is_valid", Config{
			Owners: []provider.OwnerConfig{{Provider: "bitbucket", Namespace: "acme"}},
		}, false},
		{"invalid_interval", Config{Interval: Seconds(time.Millisecond)}, true},
		{"negative_interval", Config{Interval: Seconds(-time.Second)}, true},
		{"invalid_timeout", Config{MirrorTimeout: Seconds(time.Millisecond)}, true},
		{"invalid_concurrency", Config{MaxConcurrency: -1}, true},
		{"invalid_discovery_concurrency", Config{DiscoveryConcurrency: -1}, true},
		{"missing_url", Config{Repos: []RepoConfig{{}}}, true},
		{"missing_provider", Config{Owners: []provider.OwnerConfig{{Namespace: "acme"}}}, true},
		{"missing_namespace", Config{Owners: []provider.OwnerConfig{{Provider: "github_org"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRepoPoolConfig_applyDefaults(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   Config
	}{
		{
			"empty",
			Config{},
			Config{
				Interval:             Seconds(DefaultInterval),
				Path:                 DefaultPath,
				MirrorTimeout:        Seconds(DefaultMirrorTimeout),
				MaxConcurrency:       DefaultMaxConcurrency,
				DiscoveryConcurrency: DefaultDiscoveryConcurrency,
			},
		},
		{
			"no_override",
			Config{
				Interval:             Seconds(time.Hour),
				Path:                 "/backup",
				MirrorTimeout:        Seconds(time.Minute),
				MaxConcurrency:       2,
				DiscoveryConcurrency: 1,
				Repos:                []RepoConfig{{URL: "git@github.com:acme/widgets.git"}},
			},
			Config{
				Interval:             Seconds(time.Hour),
				Path:                 "/backup",
				MirrorTimeout:        Seconds(time.Minute),
				MaxConcurrency:       2,
				DiscoveryConcurrency: 1,
				Repos:                []RepoConfig{{URL: "git@github.com:acme/widgets.git"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.applyDefaults()
			if diff := cmp.Diff(tt.want, tt.config); diff != "" {
				t.Errorf("applyDefaults() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfig_yaml(t *testing.T) {
	in := `
interval: 3600
path: /var/backup
mirror_timeout: 10m
max_concurrency: 4
repos:
  - url: git@github.com:acme/widgets.git
owners:
  - provider: github_org
    namespace: acme
  - provider: gitlab_group
    namespace: acme/tools
    api_url: https://gitlab.example.com
    auth_token: ${GITLAB_TOKEN}
`
	want := Config{
		Interval:       Seconds(time.Hour),
		Path:           "/var/backup",
		MirrorTimeout:  Seconds(10 * time.Minute),
		MaxConcurrency: 4,
		Repos:          []RepoConfig{{URL: "git@github.com:acme/widgets.git"}},
		Owners: []provider.OwnerConfig{
			{Provider: "github_org", Namespace: "acme"},
			{Provider: "gitlab_group", Namespace: "acme/tools", APIURL: "https://gitlab.example.com", AuthToken: "${GITLAB_TOKEN}"},
		},
	}

	var got Config
	if err := yaml.Unmarshal([]byte(in), &got); err != nil {
		t.Fatalf("unexpected err:%s", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}
