package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signlingo/api/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "signlingo-configure",
		Short: "Configuration tool for the Signlingo API",
		Long:  "CLI tool for provisioning the database, managing rate limits and operating the reminder pipeline",
	}

	rootCmd.AddCommand(commands.NewProvisionCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewRemindersCmd())
	rootCmd.AddCommand(commands.NewSMTPCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
