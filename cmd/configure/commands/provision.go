package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signlingo/api/internal/config"
	"github.com/signlingo/api/internal/database"
)

// NewProvisionCmd creates the provision command
func NewProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Apply the database schema",
		Long:  "Create or update the tables and indexes the API expects. Idempotent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			if err := db.ApplySchema(context.Background()); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}

			fmt.Println("Schema applied.")
			return nil
		},
	}
}
