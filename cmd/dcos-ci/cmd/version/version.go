// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package version

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ekmixon/dcos-cli/cmd/dcos-ci/cmd/common"
	ve "github.com/ekmixon/dcos-cli/internal/version"
)

func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of " + common.CliName,
		RunE: func(cmd *cobra.Command, args []string) error {
			ve.GetVersion().Print(common.CliName, pterm.Printf)
			return nil
		},
	}
}
