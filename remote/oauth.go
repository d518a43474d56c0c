package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/golang/glog"

	gdrive "google.golang.org/api/drive/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthConfig carries the external collaborator pieces the caller
// supplies: a client id/secret pair issued by Google, and the path to a
// cached token file. It is deliberately thin — token acquisition and
// storage is not this project's concern, only wiring an
// already-obtained token into an *http.Client the Drive SDK can use.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
}

var driveScopes = []string{gdrive.DriveFileScope}

// NewOAuthHTTPClient builds the http.Client the gdrive.NewService call
// needs, by loading a previously-obtained token from TokenPath. It does
// not perform the interactive authorization-code exchange itself; run a
// one-time setup flow to populate TokenPath before starting the daemon.
func NewOAuthHTTPClient(ctx context.Context, c OAuthConfig) (*http.Client, error) {
	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       driveScopes,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
	}
	tok, err := tokenFromFile(c.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("loading cached oauth token from %s: %w", c.TokenPath, err)
	}
	glog.V(2).Infof("oauth: loaded cached token from %s", c.TokenPath)
	return conf.Client(ctx, tok), nil
}

// SaveToken persists tok to path in the format tokenFromFile expects,
// for use by an interactive setup flow run outside the daemon.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating token file %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("writing token file %s: %w", path, err)
	}
	return nil
}

// AuthCodeURL returns the URL a user visits to authorize this
// application, for use by an interactive setup flow.
func AuthCodeURL(c OAuthConfig) string {
	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       driveScopes,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
	}
	return conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// ExchangeAndSave exchanges an authorization code for a token and
// writes it to c.TokenPath, for use by an interactive setup flow.
func ExchangeAndSave(ctx context.Context, c OAuthConfig, code string) error {
	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       driveScopes,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return SaveToken(c.TokenPath, tok)
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}
