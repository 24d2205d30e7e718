// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// fakedcos mimics the cluster related commands of the dcos client. Its state lives in a JSON file inside
// the client config dir ($DCOS_DIR, defaulting to ~/.dcos), so that the test fixtures can be exercised
// without a live cluster.
//
// Behavior can be tuned with environment variables:
//
//	FAKEDCOS_PASSWORD         when set, 'cluster setup' rejects any other password
//	FAKEDCOS_CLUSTER_VERSION  version reported for registered clusters (default 2.2.0)
//	FAKEDCOS_VERSION          client version reported by '--version' (default 0.8.0)
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ekmixon/dcos-cli/internal/json"
)

type clusterEntry struct {
	Name      string `json:"name"`
	Url       string `json:"url"`
	Version   string `json:"version"`
	ClusterId string `json:"cluster_id"`
	Attached  bool   `json:"attached"`
	Status    string `json:"status"`
}

type storedCluster struct {
	clusterEntry
	Token string `json:"token"`
}

type state struct {
	Clusters []storedCluster `json:"clusters"`
}

const (
	stateFileName      = "fake-state.json"
	accessTokenSetting = "core.dcos_acs_token"

	defaultClusterVersion = "2.2.0"
	defaultClientVersion  = "0.8.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var printVersion bool

	rootCmd := &cobra.Command{
		Use:           "dcos",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !printVersion {
				return cmd.Help()
			}
			fmt.Printf("dcoscli.version=%s\ndcos.version=N/A\n", envOrDefault("FAKEDCOS_VERSION", defaultClientVersion))
			return nil
		},
	}
	rootCmd.Flags().BoolVar(&printVersion, "version", false, "print version information")

	clusterCmd := &cobra.Command{Use: "cluster"}
	clusterCmd.AddCommand(newSetupCmd(), newListCmd(), newRemoveCmd())

	configCmd := &cobra.Command{Use: "config"}
	configCmd.AddCommand(newShowCmd())

	rootCmd.AddCommand(clusterCmd, configCmd)
	return rootCmd
}

func newSetupCmd() *cobra.Command {
	var name, username, password string
	var noCheck, insecure bool

	cmd := &cobra.Command{
		Use:  "setup URL",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if expected, ok := os.LookupEnv("FAKEDCOS_PASSWORD"); ok && expected != password {
				return fmt.Errorf("authentication failed for user '%s'", username)
			}
			if name == "" {
				return errors.New("--name is required")
			}

			return update(func(s *state) error {
				if slices.ContainsFunc(s.Clusters, func(c storedCluster) bool { return c.Name == name }) {
					return fmt.Errorf("cluster '%s' already exists", name)
				}

				for i := range s.Clusters {
					s.Clusters[i].Attached = false
				}

				s.Clusters = append(s.Clusters, storedCluster{
					clusterEntry: clusterEntry{
						Name:      name,
						Url:       args[0],
						Version:   envOrDefault("FAKEDCOS_CLUSTER_VERSION", defaultClusterVersion),
						ClusterId: uuid.NewString(),
						Attached:  true,
						Status:    "AVAILABLE",
					},
					Token: "token-" + uuid.NewString(),
				})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "cluster name")
	cmd.Flags().StringVar(&username, "username", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "skip certificate fingerprint check")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS verification")
	return cmd
}

func newListCmd() *cobra.Command {
	var asJson, attachedOnly bool

	cmd := &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := load()
			if err != nil {
				return err
			}

			entries := lo.FilterMap(s.Clusters, func(c storedCluster, _ int) (clusterEntry, bool) {
				return c.clusterEntry, c.Attached || !attachedOnly
			})

			if !asJson {
				for _, entry := range entries {
					fmt.Printf("%s\t%s\t%s\n", entry.Name, entry.ClusterId, entry.Url)
				}
				return nil
			}

			output, err := json.MarshalIndent(entries)
			if err != nil {
				return err
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJson, "json", false, "print JSON")
	cmd.Flags().BoolVar(&attachedOnly, "attached", false, "attached cluster only")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "remove NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return update(func(s *state) error {
				index := slices.IndexFunc(s.Clusters, func(c storedCluster) bool { return c.Name == args[0] })
				if index < 0 {
					return fmt.Errorf("unknown cluster '%s'", args[0])
				}
				s.Clusters = slices.Delete(s.Clusters, index, index+1)
				return nil
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "show KEY",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != accessTokenSetting {
				return fmt.Errorf("property '%s' does not exist", args[0])
			}

			s, err := load()
			if err != nil {
				return err
			}

			attached, found := lo.Find(s.Clusters, func(c storedCluster) bool { return c.Attached })
			if !found {
				return errors.New("no cluster is attached")
			}
			fmt.Println(attached.Token)
			return nil
		},
	}
}

func update(mutate func(*state) error) error {
	s, err := load()
	if err != nil {
		return err
	}
	if err := mutate(s); err != nil {
		return err
	}

	path, err := statePath()
	if err != nil {
		return err
	}
	return json.ToFile(path, s)
}

func load() (*state, error) {
	path, err := statePath()
	if err != nil {
		return nil, err
	}

	s, err := json.FromFile[state](path)
	if errors.Is(err, os.ErrNotExist) {
		return &state{}, nil
	}
	return s, err
}

func statePath() (string, error) {
	if dir := os.Getenv("DCOS_DIR"); dir != "" {
		return filepath.Join(dir, stateFileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dcos", stateFileName), nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
