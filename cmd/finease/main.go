package main

import (
	"os"

	"github.com/spf13/cobra"

	"finease/internal/buildinfo"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand wires every subcommand; running finease without one
// starts the server.
func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	rootCmd := &cobra.Command{
		Use:     "finease",
		Short:   "Personal finance tracking API",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	rootCmd.PersistentFlags().String("env-file", "", "load environment variables from this file instead of .env")

	rootCmd.AddCommand(serve, newMigrateCommand(), newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("finease " + buildinfo.String())
		},
	}
}

// envFiles returns the --env-file value as godotenv arguments.
func envFiles(cmd *cobra.Command) []string {
	path, _ := cmd.Flags().GetString("env-file")
	if path == "" {
		return nil
	}
	return []string{path}
}
