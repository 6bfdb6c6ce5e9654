package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/mailer"
)

// NewSMTPCmd creates the smtp command
func NewSMTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smtp",
		Short: "Check SMTP configuration",
	}
	cmd.AddCommand(newSMTPTestCmd())
	return cmd
}

func newSMTPTestCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test email through the configured SMTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}

			zapLogger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = zapLogger.Sync() }()

			mail, err := mailer.NewMailer(zapLogger)
			if err != nil {
				return fmt.Errorf("failed to configure mailer: %w", err)
			}

			fmt.Printf("Sending test email from %s to %s\n", mail.From(), to)
			err = mail.Send(mailer.Email{
				To:      []string{to},
				Subject: "Signlingo SMTP test",
				Body:    "This is a test email from the Signlingo configure tool.",
			})
			if err != nil {
				return fmt.Errorf("failed to send test email: %w", err)
			}

			fmt.Println("✓ Test email sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient address (required)")
	return cmd
}
