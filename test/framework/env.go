// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package framework

import (
	"os"
	"strconv"
	"time"

	//lint:ignore ST1001 test framework code
	. "github.com/onsi/ginkgo/v2"
	//lint:ignore ST1001 test framework code
	. "github.com/onsi/gomega"

	"github.com/ekmixon/dcos-cli/internal/cluster"
)

const (
	defaultCommandTimeout  = 5 * time.Minute
	defaultConfigDirEnvVar = "DCOS_DIR"
)

func determineCliPath() string {
	return determineStringFromEnv("DCOS_TEST_CLI_PATH", "Client path", cluster.DefaultCliPath)
}

func determineCommandTimeout() time.Duration {
	return determineDurationFromEnv("DCOS_TEST_TIMEOUT", "Command timeout", defaultCommandTimeout)
}

func determineConfigIsolation() bool {
	envValue := os.Getenv("DCOS_TEST_ISOLATE_CONFIG")

	if envValue == "" {
		return true
	}

	GinkgoWriter.Println("Config isolation set to <", envValue, ">")

	value, err := strconv.ParseBool(envValue)

	Expect(err).ToNot(HaveOccurred())

	return value
}

func determineConfigDirEnvVar() string {
	return determineStringFromEnv("DCOS_TEST_CONFIG_DIR_ENV", "Config dir env var", defaultConfigDirEnvVar)
}

func determineStringFromEnv(key string, displayName string, defaultValue string) string {
	envValue := os.Getenv(key)

	if envValue != "" {
		GinkgoWriter.Println(displayName, "set to <", envValue, ">")

		return envValue
	}

	return defaultValue
}

func determineDurationFromEnv(key string, displayName string, defaultValue time.Duration) time.Duration {
	envValue := os.Getenv(key)

	if envValue != "" {
		GinkgoWriter.Println(displayName, "set to <", envValue, ">")

		value, err := time.ParseDuration(envValue)

		Expect(err).ToNot(HaveOccurred())

		return value
	}

	return defaultValue
}
