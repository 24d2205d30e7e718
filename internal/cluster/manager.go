// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	bos "os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekmixon/dcos-cli/internal/os"
)

type Runner interface {
	Execute(ctx context.Context, request os.ExecutionRequest) (*os.ExecutionResult, error)
}

// Manager provisions and removes ephemeral cluster registrations by driving the client CLI.
// It holds no per-cluster state and can be shared between concurrently running tests.
type Manager struct {
	runner          Runner
	cliPath         string
	envPrefix       string
	commandTimeout  time.Duration
	environ         func() []string
	newLabel        func() string
	configDirEnvVar string
}

type ManagerOption func(*Manager)

const (
	DefaultCliPath   = "dcos"
	DefaultEnvPrefix = "DCOS_TEST"

	labelPrefix        = "test_cluster_"
	accessTokenSetting = "core.dcos_acs_token"
	configDirPattern   = "dcos-test-cluster-*"

	defaultRollbackTimeout = time.Minute
)

func WithCliPath(path string) ManagerOption {
	return func(m *Manager) {
		m.cliPath = path
	}
}

func WithEnvPrefix(prefix string) ManagerOption {
	return func(m *Manager) {
		m.envPrefix = prefix
	}
}

// WithCommandTimeout bounds every single client call; zero means unbounded.
func WithCommandTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.commandTimeout = timeout
	}
}

// WithEnviron sets the source of the ambient environment.
func WithEnviron(environ func() []string) ManagerOption {
	return func(m *Manager) {
		m.environ = environ
	}
}

func WithLabelGenerator(newLabel func() string) ManagerOption {
	return func(m *Manager) {
		m.newLabel = newLabel
	}
}

// WithIsolatedConfigDir gives every handle its own temporary client config dir, passed to the client
// via the given env var. Concurrent handles then never see each other's registrations.
func WithIsolatedConfigDir(envVar string) ManagerOption {
	return func(m *Manager) {
		m.configDirEnvVar = envVar
	}
}

func NewManager(runner Runner, options ...ManagerOption) *Manager {
	manager := &Manager{
		runner:    runner,
		cliPath:   DefaultCliPath,
		envPrefix: DefaultEnvPrefix,
		environ:   bos.Environ,
		newLabel:  func() string { return labelPrefix + uuid.NewString() },
	}

	for _, option := range options {
		option(manager)
	}
	return manager
}

// Setup registers and attaches a new cluster. It either returns an attached handle or an error;
// on error, a possibly half-registered cluster has been removed, even if ctx is already done.
// If the cluster was registered and its removal failed, the returned error also matches ErrTeardown.
func (m *Manager) Setup(ctx context.Context, config Config) (*Handle, error) {
	if err := config.validate(); err != nil {
		return nil, &SetupError{Step: StepResolve, Reason: "invalid config", Err: err}
	}

	handle := &Handle{Name: m.newLabel()}
	handle.env = os.MergeEnv(m.environ(), config.Env)

	params, err := config.resolve(m.envPrefix, handle.env)
	if err != nil {
		return nil, &SetupError{Label: handle.Name, Step: StepResolve, Reason: "missing connection parameters", Err: err}
	}

	handle.Variant = params.variant
	handle.Username = params.username

	if m.configDirEnvVar != "" {
		dir, err := bos.MkdirTemp("", configDirPattern)
		if err != nil {
			return nil, &SetupError{Label: handle.Name, Step: StepResolve, Reason: "could not create isolated config dir", Err: err}
		}
		handle.configDir = dir
		handle.env[m.configDirEnvVar] = dir

		slog.Debug("Using isolated client config dir", "label", handle.Name, "dir", dir)
	}

	slog.Info("Setting up cluster", "label", handle.Name, "config", config.Name, "host", params.host, "variant", params.variant)

	if err := m.attach(ctx, handle, config, params); err != nil {
		return nil, errors.Join(err, m.rollback(ctx, handle, err))
	}

	handle.state = StateAttached

	slog.Info("Cluster attached", "label", handle.Name, "cluster-id", handle.ClusterId, "url", handle.Url, "version", handle.Version)

	return handle, nil
}

// Teardown removes the cluster registration. The handle is torn down afterwards even if the removal failed,
// so that it cannot be torn down twice. Tearing down a handle that is not attached fails without calling the client.
func (m *Manager) Teardown(ctx context.Context, handle *Handle) error {
	if handle == nil {
		return fmt.Errorf("%w: cannot tear down nil cluster handle", ErrInvalidState)
	}

	previous, ok := handle.markTornDown()
	if !ok {
		return fmt.Errorf("%w: cannot tear down cluster '%s' in state '%s'", ErrInvalidState, handle.Name, previous)
	}

	slog.Info("Tearing down cluster", "label", handle.Name, "cluster-id", handle.ClusterId)

	err := m.remove(ctx, handle)

	if dirErr := m.removeConfigDir(handle); dirErr != nil {
		err = errors.Join(err, &TeardownError{Label: handle.Name, Reason: "could not remove isolated config dir", Err: dirErr})
	}
	if err != nil {
		return err
	}

	slog.Info("Cluster torn down", "label", handle.Name)

	return nil
}

func (m *Manager) attach(ctx context.Context, handle *Handle, config Config, params *connectionParams) error {
	result, err := m.runRedacted(ctx, handle, []string{params.password}, m.registerArgs(handle.Name, config, params)...)
	if err != nil {
		return &SetupError{Label: handle.Name, Step: StepRegister, Reason: "could not run cluster setup", Err: err}
	}
	if result.ExitCode != 0 {
		return &SetupError{Label: handle.Name, Step: StepRegister, Reason: fmt.Sprintf("cluster setup exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.StdErr))}
	}

	result, err = m.run(ctx, handle, "cluster", "list", "--json", "--attached")
	if err != nil {
		return &SetupError{Label: handle.Name, Step: StepList, Reason: "could not run cluster list", Err: err}
	}
	if result.ExitCode != 0 {
		return &SetupError{Label: handle.Name, Step: StepList, Reason: fmt.Sprintf("cluster list exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.StdErr))}
	}

	clusters, err := parseListing(result.StdOut)
	if err != nil {
		return &SetupError{Label: handle.Name, Step: StepList, Reason: "invalid cluster listing", Err: err}
	}
	if len(clusters) != 1 {
		return &SetupError{Label: handle.Name, Step: StepList, Reason: fmt.Sprintf("expected exactly one attached cluster, found %d", len(clusters))}
	}

	attached := clusters[0]
	if attached.Name != handle.Name {
		return &SetupError{Label: handle.Name, Step: StepList, Reason: fmt.Sprintf("attached cluster is '%s'", attached.Name)}
	}

	handle.Url = attached.Url
	handle.Version = attached.Version
	handle.ClusterId = attached.ClusterId

	result, err = m.run(ctx, handle, "config", "show", accessTokenSetting)
	if err != nil {
		return &SetupError{Label: handle.Name, Step: StepCredential, Reason: "could not run config show", Err: err}
	}
	if result.ExitCode != 0 {
		return &SetupError{Label: handle.Name, Step: StepCredential, Reason: fmt.Sprintf("config show exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.StdErr))}
	}

	handle.AccessToken = strings.TrimSpace(result.StdOut)
	return nil
}

func (m *Manager) registerArgs(label string, config Config, params *connectionParams) []string {
	args := []string{
		"cluster", "setup",
		"--name=" + label,
		"--username=" + params.username,
		"--password=" + params.password,
		fmt.Sprintf("%s://%s", config.Scheme, params.host),
	}

	if config.Scheme == SchemeHttps {
		args = append(args, "--no-check")
	}
	if config.Insecure {
		args = append(args, "--insecure")
	}
	return args
}

// rollback removes a possibly half-registered cluster. The removal outlives ctx but is bounded by the command timeout.
// A failing removal is only reported when registration succeeded, since it is expected otherwise.
func (m *Manager) rollback(ctx context.Context, handle *Handle, cause error) error {
	slog.Warn("Cluster setup failed, rolling back", "label", handle.Name, "error", cause)

	timeout := m.commandTimeout
	if timeout <= 0 {
		timeout = defaultRollbackTimeout
	}
	rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var err error
	if removeErr := m.remove(rollbackCtx, handle); removeErr != nil {
		if registered(cause) {
			slog.Error("Rolling back registered cluster failed, cluster might be leaked", "label", handle.Name, "error", removeErr)
			err = removeErr
		} else {
			slog.Debug("Rollback removal failed", "label", handle.Name, "error", removeErr)
		}
	}

	if dirErr := m.removeConfigDir(handle); dirErr != nil {
		err = errors.Join(err, fmt.Errorf("rollback of cluster '%s' incomplete: %w", handle.Name, dirErr))
	}
	return err
}

// registered tells whether the client accepted the registration before setup failed
func registered(cause error) bool {
	var setupErr *SetupError
	if !errors.As(cause, &setupErr) {
		return false
	}
	return setupErr.Step != StepResolve && setupErr.Step != StepRegister
}

func (m *Manager) remove(ctx context.Context, handle *Handle) error {
	result, err := m.run(ctx, handle, "cluster", "remove", handle.Name)
	if err != nil {
		return &TeardownError{Label: handle.Name, Reason: "could not run cluster remove", Err: err}
	}
	if result.ExitCode != 0 {
		return &TeardownError{Label: handle.Name, Reason: fmt.Sprintf("cluster remove exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.StdErr))}
	}
	return nil
}

func (m *Manager) removeConfigDir(handle *Handle) error {
	if handle.configDir == "" {
		return nil
	}
	return os.RemovePaths(handle.configDir)
}

func (m *Manager) run(ctx context.Context, handle *Handle, args ...string) (*os.ExecutionResult, error) {
	return m.runRedacted(ctx, handle, nil, args...)
}

func (m *Manager) runRedacted(ctx context.Context, handle *Handle, secrets []string, args ...string) (*os.ExecutionResult, error) {
	return m.runner.Execute(ctx, os.ExecutionRequest{
		Command: append([]string{m.cliPath}, args...),
		Env:     handle.env,
		Timeout: m.commandTimeout,
		Redact:  secrets,
	})
}
