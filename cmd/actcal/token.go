package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"actcal/internal/model"
	"actcal/internal/token"
)

var (
	tokenAccess  string
	tokenRefresh string
	tokenExpiry  string

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage the stored calendar token",
	}

	tokenSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Store an access token obtained elsewhere",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tok := model.CalendarToken{AccessToken: tokenAccess, RefreshToken: tokenRefresh}
			if tokenExpiry != "" {
				if tok.Expiry, err = time.Parse(time.RFC3339, tokenExpiry); err != nil {
					return fmt.Errorf("--expiry: %w", err)
				}
			}

			store, err := token.Open(cfg.TokenDB)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Save(cmd.Context(), tok)
		},
	}

	tokenShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show whether a token is stored and when it expires",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := token.Open(cfg.TokenDB)
			if err != nil {
				return err
			}
			defer store.Close()

			tok, err := store.Token(cmd.Context())
			if err != nil {
				return err
			}
			state := "valid"
			if tok.Expired(time.Now()) {
				state = "expired"
			}
			expiry := "never"
			if !tok.Expiry.IsZero() {
				expiry = tok.Expiry.Format(time.RFC3339)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token %s (expires %s)\n", state, expiry)
			return nil
		},
	}
)

func init() {
	tokenSetCmd.Flags().StringVar(&tokenAccess, "access", "", "access token")
	tokenSetCmd.Flags().StringVar(&tokenRefresh, "refresh", "", "refresh token")
	tokenSetCmd.Flags().StringVar(&tokenExpiry, "expiry", "", "expiry instant (RFC3339); empty never expires")
	_ = tokenSetCmd.MarkFlagRequired("access")

	tokenCmd.AddCommand(tokenSetCmd, tokenShowCmd)
	rootCmd.AddCommand(tokenCmd)
}
