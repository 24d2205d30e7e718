// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cluster

import (
	"fmt"
	"maps"
	"strings"
)

type Scheme string

// Config describes which cluster to provision. The name selects the set of
// '<PREFIX>_<NAME>_CLUSTER_*' environment variables holding the connection parameters.
type Config struct {
	Name   string
	Scheme Scheme
	// Insecure disables TLS certificate validation of the client
	Insecure bool
	// Env is merged over the ambient environment for all calls tied to the resulting handle
	Env map[string]string
}

type Option func(*Config)

type connectionParams struct {
	host     string
	variant  string
	username string
	password string
}

const (
	SchemeHttps Scheme = "https"
	SchemeHttp  Scheme = "http"

	DefaultName = "DEFAULT"

	hostSuffix     = "HOST"
	variantSuffix  = "VARIANT"
	usernameSuffix = "USERNAME"
	passwordSuffix = "PASSWORD"
)

func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

func WithScheme(scheme Scheme) Option {
	return func(c *Config) {
		c.Scheme = scheme
	}
}

func WithInsecure(insecure bool) Option {
	return func(c *Config) {
		c.Insecure = insecure
	}
}

// WithEnv adds environment overrides; repeated calls are merged, later values win.
func WithEnv(env map[string]string) Option {
	return func(c *Config) {
		if c.Env == nil {
			c.Env = make(map[string]string, len(env))
		}
		maps.Copy(c.Env, env)
	}
}

// NewConfig returns the default config (name 'DEFAULT', https, insecure, no env overrides) with the given options applied.
func NewConfig(options ...Option) Config {
	config := Config{
		Name:     DefaultName,
		Scheme:   SchemeHttps,
		Insecure: true,
	}

	for _, option := range options {
		option(&config)
	}
	return config
}

func (c Config) envKey(prefix, suffix string) string {
	return fmt.Sprintf("%s_%s_CLUSTER_%s", prefix, strings.ToUpper(c.Name), suffix)
}

func (c Config) resolve(prefix string, env map[string]string) (*connectionParams, error) {
	hostKey := c.envKey(prefix, hostSuffix)

	host := env[hostKey]
	if host == "" {
		return nil, fmt.Errorf("environment variable '%s' not set", hostKey)
	}

	return &connectionParams{
		host:     host,
		variant:  env[c.envKey(prefix, variantSuffix)],
		username: env[c.envKey(prefix, usernameSuffix)],
		password: env[c.envKey(prefix, passwordSuffix)],
	}, nil
}

func (c Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("cluster config name must not be empty")
	}
	if c.Scheme != SchemeHttps && c.Scheme != SchemeHttp {
		return fmt.Errorf("unsupported scheme '%s', supported are (%s|%s)", c.Scheme, SchemeHttps, SchemeHttp)
	}
	return nil
}
