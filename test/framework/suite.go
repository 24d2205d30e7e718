// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package framework

import (
	"context"
	"fmt"
	bos "os"
	"reflect"
	"time"

	//lint:ignore ST1001 test framework code
	. "github.com/onsi/ginkgo/v2"
	//lint:ignore ST1001 test framework code
	"github.com/onsi/gomega/gexec"

	"github.com/ekmixon/dcos-cli/internal/cluster"
	"github.com/ekmixon/dcos-cli/internal/os"
	"github.com/ekmixon/dcos-cli/test/framework/dcos"
)

type DcosTestSuite struct {
	cliPath        string
	commandTimeout time.Duration
	runner         *os.CmdRunner
	manager        *cluster.Manager
	dcosCli        *dcos.CliRunner
}

// CliPath overrides the client binary, e.g. with a binary built by gexec.Build
type CliPath string

// CommandTimeout bounds every single client call
type CommandTimeout time.Duration

type EnvPrefix string

// AmbientEnv is merged over the process environment and serves as base env of every cluster
type AmbientEnv map[string]string

type isolateConfigType bool

const (
	SharedConfig = isolateConfigType(false)
)

func Setup(ctx context.Context, args ...any) *DcosTestSuite {
	cliPath := determineCliPath()
	commandTimeout := determineCommandTimeout()
	isolateConfig := determineConfigIsolation()
	configDirEnvVar := determineConfigDirEnvVar()

	envPrefix := cluster.DefaultEnvPrefix
	var ambientEnv AmbientEnv

	for _, arg := range args {
		switch t := reflect.TypeOf(arg); {
		case t == reflect.TypeOf(CliPath("")):
			cliPath = string(arg.(CliPath))
		case t == reflect.TypeOf(CommandTimeout(0)):
			commandTimeout = time.Duration(arg.(CommandTimeout))
		case t == reflect.TypeOf(EnvPrefix("")):
			envPrefix = string(arg.(EnvPrefix))
		case t == reflect.TypeOf(AmbientEnv{}):
			ambientEnv = arg.(AmbientEnv)
		case t == reflect.TypeOf(SharedConfig):
			isolateConfig = bool(arg.(isolateConfigType))
		default:
			Fail(fmt.Sprintf("type < %v > invalid as parameter for suite.Setup() method", t))
		}
	}

	runner := os.NewCmdRunner(os.WithOutputWriter(GinkgoWriter))

	managerOptions := []cluster.ManagerOption{
		cluster.WithCliPath(cliPath),
		cluster.WithEnvPrefix(envPrefix),
		cluster.WithCommandTimeout(commandTimeout),
	}
	if ambientEnv != nil {
		managerOptions = append(managerOptions, cluster.WithEnviron(func() []string {
			return os.MapToEnv(os.MergeEnv(bos.Environ(), ambientEnv))
		}))
	}
	if isolateConfig {
		managerOptions = append(managerOptions, cluster.WithIsolatedConfigDir(configDirEnvVar))
	}

	dcosCli := dcos.NewCli(cliPath, runner, commandTimeout)

	expectCliToBeAvailable(ctx, dcosCli)

	return &DcosTestSuite{
		cliPath:        cliPath,
		commandTimeout: commandTimeout,
		runner:         runner,
		manager:        cluster.NewManager(runner, managerOptions...),
		dcosCli:        dcosCli,
	}
}

func (s *DcosTestSuite) TearDown(ctx context.Context) {
	GinkgoWriter.Println("Waiting for all started processes to die..")

	gexec.KillAndWait()

	GinkgoWriter.Println("All processes exited")
}

// how long a single client call may take
func (s *DcosTestSuite) CommandTimeout() time.Duration {
	return s.commandTimeout
}

func (s *DcosTestSuite) CliPath() string {
	return s.cliPath
}

// convenience wrapper around the dcos client
func (s *DcosTestSuite) DcosCli() *dcos.CliRunner {
	return s.dcosCli
}

func (s *DcosTestSuite) Manager() *cluster.Manager {
	return s.manager
}

func expectCliToBeAvailable(ctx context.Context, dcosCli *dcos.CliRunner) {
	GinkgoWriter.Println("Checking client <", dcosCli.Path(), ">..")

	output := dcosCli.RunOrFail(ctx, "--version")

	GinkgoWriter.Println("Client is available:", output)
}
