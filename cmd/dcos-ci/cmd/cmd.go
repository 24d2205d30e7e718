// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/common"
	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/release"
	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/verify"
	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/version"
	"github.com/ekmixon/dcos-cli/internal/cli"
	"github.com/ekmixon/dcos-cli/internal/config"
	"github.com/ekmixon/dcos-cli/internal/logging"
)

func CreateRootCmd(logger *logging.Slogger) *cobra.Command {
	verbosity := logging.LevelToLowerString(slog.LevelInfo)
	showLog := false
	logFilePath := logging.DefaultLogFilePath()
	configPath := ""

	cmd := &cobra.Command{
		Use:               common.CliName,
		Short:             "dcos-ci – publishes DC/OS CLI binaries and verifies the published downloads",
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.SetVerbosity(verbosity); err != nil {
				return err
			}

			logHandlers := []logging.HandlerBuilder{logging.NewFileHandler(logFilePath)}
			if showLog {
				logHandlers = append(logHandlers, logging.NewCliHandler())
			}
			logger.SetHandlers(logHandlers...).SetGlobally()

			slog.Debug("log level set", "level", verbosity)

			config, err := config.NewConfigAccess().Load(cmd.Flags())
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), common.ContextKeyCmdContext, common.NewCmdContext(config, logger)))

			return nil
		},
	}

	cmd.AddCommand(release.NewCmd())
	cmd.AddCommand(verify.NewCmd())
	cmd.AddCommand(version.NewCmd())

	persistentFlags := cmd.PersistentFlags()
	persistentFlags.BoolVarP(&showLog, cli.OutputFlagName, cli.OutputFlagShorthand, showLog, cli.OutputFlagUsage)
	persistentFlags.StringVarP(&verbosity, cli.VerbosityFlagName, cli.VerbosityFlagShorthand, verbosity, cli.VerbosityFlagHelp())
	persistentFlags.StringVar(&logFilePath, cli.LogFileFlagName, logFilePath, cli.LogFileFlagUsage)
	persistentFlags.StringVar(&configPath, config.ConfigFileFlagName, configPath, "Config file overwriting the embedded defaults")

	return cmd
}
