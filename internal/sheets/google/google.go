package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"ffsync/internal/core"
	"ffsync/internal/log"
	ports "ffsync/internal/sheets"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials selects how the client authenticates. Service account
// credentials win over OAuth user credentials.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthTokenJSON     string
}

type Client struct {
	svc *gsheet.Service

	// Sheet titles per spreadsheet, refreshed after titleTTL.
	mu       sync.Mutex
	titles   map[string]titleEntry
	titleTTL time.Duration
}

type titleEntry struct {
	titles    map[string]struct{}
	expiresAt time.Time
}

// Sheet is a handle on one sheet of a Google spreadsheet.
type Sheet struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.Opener = (*Client)(nil)
	_ ports.Sheet  = (*Sheet)(nil)
)

// jsonUnmarshal is an indirection for tests.
var jsonUnmarshal = json.Unmarshal

// CredentialsFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// (falling back to GOOGLE_APPLICATION_CREDENTIALS), GOOGLE_OAUTH_CLIENT_JSON and
// GOOGLE_OAUTH_TOKEN_JSON.
func CredentialsFromEnv() Credentials {
	c := Credentials{
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
		OAuthClientJSON:    strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")),
		OAuthTokenJSON:     strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON")),
	}
	if c.ServiceAccountJSON == "" && c.ServiceAccountFile == "" {
		c.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return c
}

// NewFromEnv creates a Sheets client from environment credentials.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, CredentialsFromEnv())
}

func New(ctx context.Context, creds Credentials) (*Client, error) {
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service) *Client {
	return &Client{
		svc:      svc,
		titles:   map[string]titleEntry{},
		titleTTL: 10 * time.Minute,
	}
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentSheets)
	logger.InfoContext(ctx, "Checking Google credentials",
		"has_service_account_json", creds.ServiceAccountJSON != "",
		"service_account_file", creds.ServiceAccountFile,
		"has_oauth_client", creds.OAuthClientJSON != "")

	var credentialsJSON []byte
	switch {
	case creds.ServiceAccountJSON != "":
		credentialsJSON = []byte(creds.ServiceAccountJSON)
	case creds.ServiceAccountFile != "":
		b, err := os.ReadFile(creds.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	case creds.OAuthClientJSON != "":
		return newOAuthService(ctx, creds)
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_CLIENT_JSON)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created with service account")
	return service, nil
}

// newOAuthService authenticates as a user with a stored refresh token.
func newOAuthService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	cfg, err := goauth.ConfigFromJSON([]byte(creds.OAuthClientJSON), gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if creds.OAuthTokenJSON == "" {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON)")
	}
	var tok oauth2.Token
	if err := jsonUnmarshal([]byte(creds.OAuthTokenJSON), &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := cfg.Client(base, &tok)

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentSheets).InfoContext(ctx, "Google Sheets service created with oauth token")
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// OpenSheet implements ports.Opener. It fails with ports.ErrSheetNotFound when
// the spreadsheet has no sheet with that title.
func (c *Client) OpenSheet(ctx context.Context, spreadsheetID, sheetName string) (ports.Sheet, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	titles, err := c.sheetTitles(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	if _, ok := titles[sheetName]; !ok {
		return nil, fmt.Errorf("%w: %q in spreadsheet %s", ports.ErrSheetNotFound, sheetName, spreadsheetID)
	}
	return &Sheet{svc: c.svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// InvalidateTitles drops cached sheet titles.
func (c *Client) InvalidateTitles() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles = map[string]titleEntry{}
}

func (c *Client) sheetTitles(ctx context.Context, spreadsheetID string) (map[string]struct{}, error) {
	c.mu.Lock()
	entry, ok := c.titles[spreadsheetID]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.titles, nil
	}

	resp, err := c.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: spreadsheet %s", ports.ErrSheetNotFound, spreadsheetID)
		}
		return nil, fmt.Errorf("read spreadsheet %s: %w", spreadsheetID, err)
	}

	titles := make(map[string]struct{}, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = struct{}{}
		}
	}

	c.mu.Lock()
	c.titles[spreadsheetID] = titleEntry{titles: titles, expiresAt: time.Now().Add(c.titleTTL)}
	c.mu.Unlock()
	return titles, nil
}

// GetRange implements ports.Sheet. Values come back formatted, the way the
// sheet displays them.
func (s *Sheet) GetRange(ctx context.Context, ref core.RangeRef) (core.Grid, error) {
	rng := a1(s.sheetName, ref.String())
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.Grid{}, fmt.Errorf("read %s: %w", rng, err)
	}
	return core.Grid{Origin: ref.Origin(), Values: resp.Values}, nil
}

// SetCellValue implements ports.Sheet.
func (s *Sheet) SetCellValue(ctx context.Context, row, col int, value any) error {
	cell := core.Cell{Row: row, Col: col}
	rng := a1(s.sheetName, cell.A1())
	vr := &gsheet.ValueRange{Values: [][]any{{value}}}

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// a1 prefixes a range with a quoted sheet name.
func a1(sheetName, rng string) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'!" + rng
}
