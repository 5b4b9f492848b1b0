// Package gcreds resolves which Google credential mode a deployment uses.
//
// Exactly one of three sources is expected: an inline service-account JSON
// document, the same document base64 encoded, or an OAuth client id, secret
// and refresh token triple. The source is resolved once at startup.
package gcreds

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

var (
	ErrNoCredentials   = errors.New("no Google credentials configured: set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_BASE64 or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET/GOOGLE_REFRESH_TOKEN")
	ErrIncompleteOAuth = errors.New("incomplete OAuth credentials: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN are all required")
)

type Kind int

const (
	KindInlineJSON Kind = iota + 1
	KindBase64JSON
	KindOAuth
)

func (k Kind) String() string {
	switch k {
	case KindInlineJSON:
		return "service-account-json"
	case KindBase64JSON:
		return "service-account-base64"
	case KindOAuth:
		return "oauth-refresh-token"
	default:
		return "none"
	}
}

type OAuth struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Source is the resolved credential. JSON is set for the two service
// account kinds (already decoded for KindBase64JSON), OAuth for KindOAuth.
type Source struct {
	Kind  Kind
	JSON  []byte
	OAuth OAuth
}

// Settings is the raw environment input.
type Settings struct {
	ServiceAccountJSON   string
	ServiceAccountBase64 string
	ClientID             string
	ClientSecret         string
	RefreshToken         string
}

func (s Settings) oauthAny() bool {
	return s.ClientID != "" || s.ClientSecret != "" || s.RefreshToken != ""
}

// Resolve picks the credential mode. Precedence is inline JSON, then base64
// JSON, then OAuth; configuring more than one mode only logs a warning.
func Resolve(s Settings) (Source, error) {
	s.ServiceAccountJSON = strings.TrimSpace(s.ServiceAccountJSON)
	s.ServiceAccountBase64 = strings.TrimSpace(s.ServiceAccountBase64)

	configured := 0
	for _, set := range []bool{s.ServiceAccountJSON != "", s.ServiceAccountBase64 != "", s.oauthAny()} {
		if set {
			configured++
		}
	}
	if configured > 1 {
		log.Printf("⚠️ Several Google credential modes configured, using the first of: inline JSON, base64 JSON, OAuth")
	}

	switch {
	case s.ServiceAccountJSON != "":
		data := []byte(s.ServiceAccountJSON)
		if !json.Valid(data) {
			return Source{}, errors.New("GOOGLE_SERVICE_ACCOUNT_JSON is not valid JSON")
		}
		return Source{Kind: KindInlineJSON, JSON: data}, nil
	case s.ServiceAccountBase64 != "":
		data, err := base64.StdEncoding.DecodeString(s.ServiceAccountBase64)
		if err != nil {
			return Source{}, fmt.Errorf("decode GOOGLE_SERVICE_ACCOUNT_BASE64: %w", err)
		}
		if !json.Valid(data) {
			return Source{}, errors.New("GOOGLE_SERVICE_ACCOUNT_BASE64 does not decode to JSON")
		}
		return Source{Kind: KindBase64JSON, JSON: data}, nil
	case s.oauthAny():
		if s.ClientID == "" || s.ClientSecret == "" || s.RefreshToken == "" {
			return Source{}, ErrIncompleteOAuth
		}
		return Source{Kind: KindOAuth, OAuth: OAuth{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RefreshToken: s.RefreshToken,
		}}, nil
	default:
		return Source{}, ErrNoCredentials
	}
}

// ClientOption turns the source into an option for Google API clients.
func (s Source) ClientOption(ctx context.Context, scopes ...string) (option.ClientOption, error) {
	switch s.Kind {
	case KindInlineJSON, KindBase64JSON:
		creds, err := google.CredentialsFromJSON(ctx, s.JSON, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		return option.WithCredentials(creds), nil
	case KindOAuth:
		cfg := &oauth2.Config{
			ClientID:     s.OAuth.ClientID,
			ClientSecret: s.OAuth.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
		}
		ts := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: s.OAuth.RefreshToken})
		return option.WithTokenSource(ts), nil
	default:
		return nil, ErrNoCredentials
	}
}
