package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthConfig parses an OAuth client (the JSON downloaded from the Cloud
// console) for the spreadsheets scope.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// AuthorizeLoopback runs the installed-app flow: it prints the consent URL to
// out, waits on ln for the redirect carrying the code and exchanges it.
// ln decides the redirect URI (http://<ln addr>/callback).
func AuthorizeLoopback(ctx context.Context, cfg *oauth2.Config, ln net.Listener, state string, out io.Writer) (*oauth2.Token, error) {
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/callback"

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("authorization state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("authorization code missing")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	}
}

// SaveToken writes tok as JSON readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
