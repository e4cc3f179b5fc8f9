package repopool

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/utilitywarehouse/git-backup/provider"
	"github.com/utilitywarehouse/git-backup/repository"
)

const (
	DefaultInterval             = 24 * time.Hour
	DefaultPath                 = "./git-backup-repos"
	DefaultMirrorTimeout        = 30 * time.Minute
	DefaultMaxConcurrency       = 8
	DefaultDiscoveryConcurrency = 4

	minAllowedInterval = time.Second
)

// Seconds is a duration which is given in config as plain number of
// seconds. Go duration strings like '24h' are also accepted.
type Seconds time.Duration

func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*s = Seconds(time.Duration(n) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q at line %d, must be seconds or duration string", value.Value, value.Line)
	}
	*s = Seconds(d)
	return nil
}

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

// RepoConfig is a directly configured repository
type RepoConfig struct {
	// SSH clone url, ie git@github.com:org/repo.git
	URL string `yaml:"url"`
}

// Config is the configuration to create repoPool
type Config struct {
	// Interval is time to wait between end of one mirror cycle and start of
	// the next one
	Interval Seconds `yaml:"interval"`

	// Path is the root dir where all mirrors will be created
	Path string `yaml:"path"`

	// MirrorTimeout is the time allowed for single clone or update
	MirrorTimeout Seconds `yaml:"mirror_timeout"`

	// MaxConcurrency is the max number of git operations running at once
	MaxConcurrency int `yaml:"max_concurrency"`

	// DiscoveryConcurrency is the max number of owners listed at once
	DiscoveryConcurrency int `yaml:"discovery_concurrency"`

	// List of mirrored repositories.
	Repos []RepoConfig `yaml:"repos"`

	// List of remote accounts or groups whose repositories will be mirrored
	Owners []provider.OwnerConfig `yaml:"owners"`
}

// validate will verify config, unknown provider is not a config error
// since those owners are skipped with warning
func (c *Config) validate() error {
	var errs []error

	if c.Interval != 0 && c.Interval.Duration() < minAllowedInterval {
		errs = append(errs, fmt.Errorf("provided interval between mirroring is too short (%s), must be >= %s", c.Interval.Duration(), minAllowedInterval))
	}

	if c.MirrorTimeout != 0 && c.MirrorTimeout.Duration() < repository.MinAllowedTimeout {
		errs = append(errs, fmt.Errorf("provided mirroring timeout is too short (%s), must be >= %s", c.MirrorTimeout.Duration(), repository.MinAllowedTimeout))
	}

	if c.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("max_concurrency must be positive"))
	}

	if c.DiscoveryConcurrency < 0 {
		errs = append(errs, fmt.Errorf("discovery_concurrency must be positive"))
	}

	for i, r := range c.Repos {
		if r.URL == "" {
			errs = append(errs, fmt.Errorf("repos[%d]: url is required", i))
		}
	}

	for i, o := range c.Owners {
		if o.Provider == "" {
			errs = append(errs, fmt.Errorf("owners[%d]: provider is required", i))
		}
		if o.Namespace == "" {
			errs = append(errs, fmt.Errorf("owners[%d]: namespace is required", i))
		}
	}

	return errors.Join(errs...)
}

// applyDefaults will set default values for the missing config
func (c *Config) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = Seconds(DefaultInterval)
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.MirrorTimeout == 0 {
		c.MirrorTimeout = Seconds(DefaultMirrorTimeout)
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.DiscoveryConcurrency == 0 {
		c.DiscoveryConcurrency = DefaultDiscoveryConcurrency
	}
}

// ValidateAndApplyDefaults will validate config and apply defaults
func (c *Config) ValidateAndApplyDefaults() error {
	if err := c.validate(); err != nil {
		return err
	}
	c.applyDefaults()
	return nil
}
