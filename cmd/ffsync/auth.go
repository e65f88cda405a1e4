package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"ffsync/internal/cli"
	gsheet "ffsync/internal/sheets/google"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type authOptions struct {
	clientFile string
	tokenFile  string
	port       int
	timeout    time.Duration
}

// newAuthCmd obtains the OAuth refresh token used by the sheets backend. It
// runs before a complete configuration exists, so it skips validation.
func newAuthCmd() *cobra.Command {
	var opts authOptions

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access and store an OAuth token",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.clientFile, "client", "", "OAuth client JSON file (default: GOOGLE_OAUTH_CLIENT_JSON)")
	cmd.Flags().StringVar(&opts.tokenFile, "out", "token.json", "Where to store the token")
	cmd.Flags().IntVar(&opts.port, "port", 8085, "Local port for the redirect URI")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "How long to wait for consent")
	return cmd
}

func runAuth(cmd *cobra.Command, opts authOptions) error {
	var clientJSON []byte
	switch {
	case opts.clientFile != "":
		b, err := os.ReadFile(opts.clientFile)
		if err != nil {
			return fmt.Errorf("read client file: %w", err)
		}
		clientJSON = b
	case os.Getenv("GOOGLE_OAUTH_CLIENT_JSON") != "":
		clientJSON = []byte(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	default:
		return errors.New("set --client or GOOGLE_OAUTH_CLIENT_JSON")
	}

	cfg, err := gsheet.OAuthConfig(clientJSON)
	if err != nil {
		return err
	}

	// The OAuth client must list http://localhost:<port>/callback as a redirect URI.
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", opts.port))
	if err != nil {
		return fmt.Errorf("listen for redirect: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	tok, err := gsheet.AuthorizeLoopback(ctx, cfg, ln, uuid.NewString(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := gsheet.SaveToken(opts.tokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s; put its contents in GOOGLE_OAUTH_TOKEN_JSON\n", opts.tokenFile)
	return nil
}
