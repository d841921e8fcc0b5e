package cmd

import (
	"clubctl/internal/auth"
	"clubctl/internal/daemon"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored access token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the access token used for API requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.SaveToken(cfg.TokenPath, &oauth2.Token{AccessToken: args[0], TokenType: "Bearer"}); err != nil {
			return err
		}

		fmt.Printf("token saved to %s\n", cfg.TokenPath)
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.ClearToken(cfg.TokenPath); err != nil {
			return err
		}

		fmt.Println("token removed")
		return nil
	},
}

var (
	issueSubject string
	issueTTL     time.Duration
	issueSave    bool
)

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a token for a local server configured with server_secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		signed, err := daemon.IssueToken(cfg.ServerSecret, issueSubject, issueTTL, time.Now())
		if err != nil {
			return err
		}

		if !issueSave {
			fmt.Println(signed)
			return nil
		}

		token := &oauth2.Token{AccessToken: signed, TokenType: "Bearer", Expiry: time.Now().Add(issueTTL)}
		if err := auth.SaveToken(cfg.TokenPath, token); err != nil {
			return err
		}

		fmt.Printf("token valid for %s saved to %s\n", issueTTL, cfg.TokenPath)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&issueSubject, "subject", "admin", "token subject")
	tokenIssueCmd.Flags().DurationVar(&issueTTL, "ttl", 8*time.Hour, "token lifetime")
	tokenIssueCmd.Flags().BoolVar(&issueSave, "save", false, "store the token instead of printing it")

	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd, tokenIssueCmd)
	rootCmd.AddCommand(tokenCmd)
}
