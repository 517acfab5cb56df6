package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psantana5/grain/internal/config"
)

var (
	cfgFile       string
	clientCfgFile string
	serverURL     string
	outputFormat  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "grain",
	Short: "Woodworking shop inventory, projects and costing",
	Long: `grain runs the Grain server and talks to it.

Server commands (serve, db, mcp, cert) read grain.yaml and GRAIN_* variables.
Client commands keep the server URL and session token in ~/.grain/config.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "server config file (default grain.yaml in ., $HOME/.grain, /etc/grain)")
	rootCmd.PersistentFlags().StringVar(&clientCfgFile, "client-config", "", "client config file (default $HOME/.grain/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Grain server URL (default from client config or "+config.DefaultServer+")")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml or toml")
}

func clientConfigPath() (string, error) {
	if clientCfgFile != "" {
		return clientCfgFile, nil
	}
	return config.ClientConfigPath()
}

// loadClientConfig reads the client config and applies the --server flag
func loadClientConfig() (*config.ClientConfig, string, error) {
	path, err := clientConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadClient(path)
	if err != nil {
		return nil, "", err
	}
	if serverURL != "" {
		cfg.Server = strings.TrimRight(serverURL, "/")
	}
	return cfg, path, nil
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
