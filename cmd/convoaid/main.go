package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/convoai/internal/cli"
	"github.com/cloo-solutions/convoai/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "convoaid",
		Short: "Convoai daemon and CLI",
		Long:  "Convoai daemon for running the API server and managing workspaces",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.WorkspaceCmd())
	rootCmd.AddCommand(admin.ChunksCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
