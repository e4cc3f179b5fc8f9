package main

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/utilitywarehouse/git-backup/provider"
	"github.com/utilitywarehouse/git-backup/repopool"
)

var (
	configSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "git_backup_config_last_load_successful",
		Help: "Whether the last configuration load attempt was successful.",
	})
	configSuccessTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "git_backup_config_last_load_success_timestamp_seconds",
		Help: "Timestamp of the last successful configuration load.",
	})
)

// ConfigError is returned when config file can't be read or is invalid
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// loadConfig reads, validates and applies defaults to the config file
func loadConfig(path string) (*repopool.Config, error) {
	conf, err := parseConfigFile(path)
	if err == nil {
		err = conf.ValidateAndApplyDefaults()
	}
	if err != nil {
		configSuccess.Set(0)
		return nil, &ConfigError{Path: path, Err: err}
	}

	if len(conf.Repos) == 0 && len(conf.Owners) == 0 {
		logger.Warn("no repos or owners configured, nothing will be mirrored", "path", path)
	}

	configSuccess.Set(1)
	configSuccessTime.SetToCurrentTime()
	return conf, nil
}

func parseConfigFile(path string) (*repopool.Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(yamlFile); err != nil {
		return nil, err
	}

	conf := &repopool.Config{}
	dec := yaml.NewDecoder(bytes.NewReader(yamlFile))
	dec.KnownFields(true)
	if err := dec.Decode(conf); err != nil {
		return nil, err
	}

	return conf, nil
}

// validateConfig checks config sections for unexpected keys so that typos
// are reported with their location
func validateConfig(yamlData []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(yamlData, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("config file is empty")
	}

	allowedConfig := getAllowedKeys(repopool.Config{})
	if key := findUnexpectedKey(raw, allowedConfig); key != "" {
		return fmt.Errorf("unexpected key: .%v", key)
	}

	allowedRepoKeys := getAllowedKeys(repopool.RepoConfig{})
	if err := validateList(raw, "repos", allowedRepoKeys); err != nil {
		return err
	}

	allowedOwnerKeys := getAllowedKeys(provider.OwnerConfig{})
	return validateList(raw, "owners", allowedOwnerKeys)
}

func validateList(raw map[string]any, section string, allowedKeys []string) error {
	value, ok := raw[section]
	if !ok || value == nil {
		return nil
	}

	list, ok := value.([]any)
	if !ok {
		return fmt.Errorf("%s config section is not valid", section)
	}

	for i, item := range list {
		itemMap, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("%s[%d] config section is not valid", section, i)
		}
		if key := findUnexpectedKey(itemMap, allowedKeys); key != "" {
			return fmt.Errorf("unexpected key: .%s[%d].%v", section, i, key)
		}
	}
	return nil
}

// getAllowedKeys retrieves a list of allowed keys from the specified struct
func getAllowedKeys(config any) []string {
	var allowedKeys []string
	typ := reflect.TypeOf(config)

	for i := 0; i < typ.NumField(); i++ {
		yamlTag, _, _ := strings.Cut(typ.Field(i).Tag.Get("yaml"), ",")
		if yamlTag != "" {
			allowedKeys = append(allowedKeys, yamlTag)
		}
	}
	return allowedKeys
}

func findUnexpectedKey(raw map[string]any, allowedKeys []string) string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	// report same key on every run
	slices.Sort(keys)

	for _, key := range keys {
		if !slices.Contains(allowedKeys, key) {
			return key
		}
	}
	return ""
}
