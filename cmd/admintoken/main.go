package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"licensetracker/internal/middleware"
)

var rootCmd = &cobra.Command{
	Use:   "admintoken <subject>",
	Short: "Sign an admin token for the license register API",
	Long: `Sign an HS256 admin token accepted by /api/v1.

The signing secret is read from ADMIN_JWT_SECRET (a .env file is honoured)
unless --secret is given.

Examples:
  admintoken ops@company.co.th
  admintoken --ttl 720h ops@company.co.th`,
	Args: cobra.ExactArgs(1),
	RunE: runIssue,
}

func init() {
	rootCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	rootCmd.Flags().String("secret", "", "Signing secret (overrides ADMIN_JWT_SECRET)")
}

func runIssue(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv("ADMIN_JWT_SECRET")
	}
	if secret == "" {
		return errors.New("ADMIN_JWT_SECRET is not set")
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	token, err := middleware.IssueAdminToken(secret, args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
