package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/signlingo/api/internal/config"
	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/models"
)

var rateLimitScopes = []string{
	models.RateLimitScopeGlobal,
	models.RateLimitScopeLogin,
	models.RateLimitScopeRegister,
}

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update the per-scope fixed-window caps stored in the database.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := ratelimitRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := context.Background()
			found := false
			for _, scope := range rateLimitScopes {
				c, err := repo.Get(ctx, scope)
				if err != nil {
					return fmt.Errorf("failed to get ratelimit config: %w", err)
				}
				if c == nil {
					continue
				}
				found = true
				fmt.Printf("  - Scope: %s\n", c.Scope)
				fmt.Printf("    Max requests: %d\n", c.MaxRequests)
				fmt.Printf("    Window: %s\n", c.Window())
			}
			if !found {
				fmt.Println("No rate limit configuration in database. Use 'ratelimit set' to add one.")
			}
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var (
		scope       string
		maxRequests int64
		window      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the cap for one scope",
		Long:  "Update the fixed-window cap for a scope (global, login or register). Servers pick up the change on restart.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validScope(scope) {
				return fmt.Errorf("--scope must be one of %v", rateLimitScopes)
			}
			if maxRequests <= 0 {
				return fmt.Errorf("--max-requests must be positive")
			}
			if window <= 0 {
				return fmt.Errorf("--window must be positive")
			}

			repo, closeDB, err := ratelimitRepo()
			if err != nil {
				return err
			}
			defer closeDB()

			c := &models.RateLimit{
				Scope:         scope,
				MaxRequests:   maxRequests,
				WindowSeconds: int64(window.Seconds()),
			}
			if err := repo.Set(context.Background(), c); err != nil {
				return fmt.Errorf("failed to set ratelimit config: %w", err)
			}
			fmt.Printf("Rate limit for scope %q set to %d per %s.\n", scope, maxRequests, window)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "Scope to update: global, login or register (required)")
	cmd.Flags().Int64Var(&maxRequests, "max-requests", 0, "Maximum requests per window (required)")
	cmd.Flags().DurationVar(&window, "window", 0, "Window length, e.g. 1m or 15m (required)")
	return cmd
}

func validScope(scope string) bool {
	for _, s := range rateLimitScopes {
		if s == scope {
			return true
		}
	}
	return false
}

func ratelimitRepo() (*database.RatelimitConfigRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return database.NewRatelimitConfigRepository(db), closeDB, nil
}
