package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/rd-classifier/internal/cli"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/config"
	"github.com/Veraticus/rd-classifier/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}
	cmd.AddCommand(authSheetsCmd())
	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authorize rdc to publish results to Google Sheets",
		Long: `Run the OAuth2 browser flow and save the token. classify --sheets then
uses the saved refresh token when sheets.refresh_token is not set.`,
		Args: cobra.NoArgs,
		RunE: runAuthSheets,
	}
	cmd.Flags().String("client-id", "", "OAuth2 client ID (default from sheets.client_id)")
	cmd.Flags().String("client-secret", "", "OAuth2 client secret (default from sheets.client_secret)")
	cmd.Flags().String("callback", "localhost:8080", "local address for the OAuth2 redirect")
	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	clientID := viper.GetString("sheets.client_id")
	clientSecret := viper.GetString("sheets.client_secret")
	if v, _ := cmd.Flags().GetString("client-id"); v != "" {
		clientID = v
	}
	if v, _ := cmd.Flags().GetString("client-secret"); v != "" {
		clientSecret = v
	}
	if clientID == "" || clientSecret == "" {
		return common.NewUserError(
			"OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret or pass --client-id and --client-secret.",
			common.ErrMissingConfig)
	}
	callback, _ := cmd.Flags().GetString("callback")

	tokenFile := config.SheetsTokenFile()
	slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

	out := cmd.OutOrStdout()
	token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
		CallbackAddr: callback,
	}, func(url string) {
		fmt.Fprintln(out, cli.FormatInfo("Open this URL in your browser to authorize rdc:"))
		fmt.Fprintln(out, url)
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if token.RefreshToken == "" {
		return errors.New("google did not return a refresh token; revoke rdc's access and try again")
	}

	fmt.Fprintln(out, cli.FormatSuccess("Google Sheets is authorized. Token saved to "+filepath.Clean(tokenFile)))
	return nil
}
