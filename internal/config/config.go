// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package config

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/units"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Kind         string             `mapstructure:"kind"`
	ApiVersion   string             `mapstructure:"apiVersion"`
	Build        BuildConfig        `mapstructure:"build"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Notification NotificationConfig `mapstructure:"notification"`
	Verification VerificationConfig `mapstructure:"verification"`
	Http         HttpConfig         `mapstructure:"http"`
}

type BuildConfig struct {
	Dir        string `mapstructure:"dir"`
	TagName    string `mapstructure:"tagName"`
	BranchName string `mapstructure:"branchName"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
}

type NotificationConfig struct {
	HookUrl string        `mapstructure:"hookUrl"`
	Channel string        `mapstructure:"channel"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type VerificationConfig struct {
	Repository      RepositoryConfig `mapstructure:"repository"`
	Token           string           `mapstructure:"token"`
	Platform        string           `mapstructure:"platform"`
	DownloadBaseUrl string           `mapstructure:"downloadBaseUrl"`
	MaxDownloadSize string           `mapstructure:"maxDownloadSize"`
	CommandTimeout  time.Duration    `mapstructure:"commandTimeout"`
}

type RepositoryConfig struct {
	Owner  string `mapstructure:"owner"`
	Name   string `mapstructure:"name"`
	Branch string `mapstructure:"branch"`
}

type HttpConfig struct {
	MaxRetries int           `mapstructure:"maxRetries"`
	BackoffMin time.Duration `mapstructure:"backoffMin"`
	BackoffMax time.Duration `mapstructure:"backoffMax"`
}

type fileReader func(path string) ([]byte, error)

type ConfigAccess struct {
	config           *viper.Viper
	readEmbeddedFile fileReader
	readUserFile     fileReader
}

const (
	ConfigFileFlagName = "config"
	BuildDirFlagName   = "build-dir"
	PlatformFlagName   = "platform"

	kind                = "ci"
	SupportedApiVersion = "v1"

	embeddedConfigPath = "embed/ci.config.yaml"
)

var (
	//go:embed embed/*.config.yaml
	embeddedConfigFiles embed.FS

	envBindings = map[string]string{
		"build.tagName":      "TAG_NAME",
		"build.branchName":   "BRANCH_NAME",
		"notification.token": "SLACK_API_TOKEN",
		"verification.token": "GITHUB_TOKEN",
	}

	flagBindings = map[string]string{
		BuildDirFlagName: "build.dir",
		PlatformFlagName: "verification.platform",
	}
)

func NewConfigAccess() *ConfigAccess {
	return &ConfigAccess{
		config:           viper.New(),
		readEmbeddedFile: embeddedConfigFiles.ReadFile,
		readUserFile:     os.ReadFile,
	}
}

// Load merges, with increasing precedence, the embedded defaults, the user config file given via '--config',
// the CI environment variables and explicitly set flags.
func (c *ConfigAccess) Load(flags *pflag.FlagSet) (*Config, error) {
	if err := c.loadBaseConfig(); err != nil {
		return nil, err
	}

	if userPath := c.userConfigPath(flags); userPath != "" {
		if err := c.loadUserConfig(userPath); err != nil {
			return nil, err
		}
	}

	for key, envVar := range envBindings {
		if err := c.config.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("could not bind env var '%s': %w", envVar, err)
		}
	}

	if err := c.bindFlags(flags); err != nil {
		return nil, err
	}

	var result Config
	if err := c.config.Unmarshal(&result); err != nil {
		return nil, fmt.Errorf("could not convert config: %w", err)
	}

	if err := result.validate(); err != nil {
		return nil, err
	}

	slog.Debug("Config loaded", "bucket", result.Storage.Bucket, "region", result.Storage.Region, "tag", result.Build.TagName, "branch", result.Build.BranchName)

	return &result, nil
}

// MaxDownloadBytes returns the download size cap, e.g. '512MiB' or '100MB'
func (c *VerificationConfig) MaxDownloadBytes() (int64, error) {
	size, err := units.ParseStrictBytes(c.MaxDownloadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max download size '%s': %w", c.MaxDownloadSize, err)
	}
	return size, nil
}

func (c *ConfigAccess) loadBaseConfig() error {
	slog.Debug("Loading embedded config file", "path", embeddedConfigPath)

	content, err := c.readEmbeddedFile(embeddedConfigPath)
	if err != nil {
		return err
	}

	c.config.SetConfigType("yaml")

	return c.config.ReadConfig(bytes.NewReader(content))
}

func (c *ConfigAccess) loadUserConfig(path string) error {
	slog.Debug("Loading user-provided config file", "path", path)

	content, err := c.readUserFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file '%s': %w", path, err)
	}

	user := viper.New()
	user.SetConfigType("yaml")
	if err := user.ReadConfig(bytes.NewReader(content)); err != nil {
		return fmt.Errorf("could not parse config file '%s': %w", path, err)
	}

	if err := validateUserConfig(user); err != nil {
		return err
	}

	slog.Debug("Merging user-provided config file")

	return c.config.MergeConfigMap(user.AllSettings())
}

func (c *ConfigAccess) userConfigPath(flags *pflag.FlagSet) string {
	if flags == nil {
		return ""
	}
	flag := flags.Lookup(ConfigFileFlagName)
	if flag == nil {
		return ""
	}
	return flag.Value.String()
}

func (c *ConfigAccess) bindFlags(flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	for flagName, key := range flagBindings {
		flag := flags.Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}

		slog.Debug("Overwriting config with CLI param", "param", flagName)

		if err := c.config.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("could not bind flag '%s': %w", flagName, err)
		}
	}
	return nil
}

func validateUserConfig(user *viper.Viper) error {
	slog.Debug("Validating user-provided config file")

	if user.IsSet("kind") && user.GetString("kind") != kind {
		return fmt.Errorf("error in user-provided config: expected kind '%s', but found: '%s'", kind, user.GetString("kind"))
	}

	if user.IsSet("apiVersion") && user.GetString("apiVersion") != SupportedApiVersion {
		return fmt.Errorf("error in user-provided config: API version mismatch. Supported: %s, found: '%s'", SupportedApiVersion, user.GetString("apiVersion"))
	}
	return nil
}

func (c *Config) validate() error {
	if c.Storage.Bucket == "" {
		return fmt.Errorf("invalid config: storage bucket must not be empty")
	}
	if c.Http.MaxRetries < 0 {
		return fmt.Errorf("invalid config: max retries must not be negative, found %d", c.Http.MaxRetries)
	}
	if _, err := c.Verification.MaxDownloadBytes(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
