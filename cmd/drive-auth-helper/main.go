package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// OAuth2Credentials is the client section of a Google Cloud Console download.
type OAuth2Credentials struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURIs []string `json:"redirect_uris"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
}

// GoogleCredentialsFile is the credentials.json layout from Google Cloud Console.
type GoogleCredentialsFile struct {
	Installed *OAuth2Credentials `json:"installed,omitempty"`
	Web       *OAuth2Credentials `json:"web,omitempty"`
}

type callbackResult struct {
	code string
	err  error
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: drive-auth-helper <credentials.json>")
	}

	credentialsData, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read credentials file: %v", err)
	}
	credentials, err := parseGoogleCredentials(credentialsData)
	if err != nil {
		log.Fatalf("Failed to parse credentials: %v", err)
	}

	// Loopback redirect; Google no longer accepts the out-of-band flow.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("Failed to open loopback listener: %v", err)
	}

	config := &oauth2.Config{
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://%s/callback", ln.Addr().String()),
		Scopes:       []string{drive.DriveScope},
		Endpoint:     google.Endpoint,
	}

	state := uuid.NewString()
	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackRouter(state, results), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			results <- callbackResult{err: err}
		}
	}()

	// ApprovalForce нужен, чтобы Google повторно выдал refresh token
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Printf("🔗 Google Drive OAuth2 Authorization Helper\n")
	fmt.Printf("============================================\n")
	fmt.Printf("1. Open this URL in your browser:\n")
	fmt.Printf("   %s\n\n", authURL)
	fmt.Printf("2. Authorize the application\n")
	fmt.Printf("3. Waiting for the redirect on %s ...\n\n", config.RedirectURL)

	var res callbackResult
	select {
	case res = <-results:
	case <-time.After(5 * time.Minute):
		res.err = errors.New("timed out waiting for authorization")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_ = srv.Shutdown(shutdownCtx)
	cancel()

	if res.err != nil {
		log.Fatalf("Authorization failed: %v", res.err)
	}

	token, err := config.Exchange(context.Background(), res.code)
	if err != nil {
		log.Fatalf("Failed to exchange code for token: %v", err)
	}
	if token.RefreshToken == "" {
		log.Fatal("No refresh token returned; revoke the app's access and try again")
	}

	fmt.Printf("\n✅ Successfully obtained tokens!\n")
	fmt.Printf("============================================\n")
	fmt.Printf("Add these to the relay's .env file:\n\n")
	fmt.Printf("GOOGLE_CLIENT_ID='%s'\n", credentials.ClientID)
	fmt.Printf("GOOGLE_CLIENT_SECRET='%s'\n", credentials.ClientSecret)
	fmt.Printf("GOOGLE_REFRESH_TOKEN='%s'\n", token.RefreshToken)
	fmt.Printf("\n📝 Access token expires: %v\n", token.Expiry)
}

func callbackRouter(state string, results chan<- callbackResult) http.Handler {
	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = errors.New("state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("no authorization code in redirect")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this tab.")
		}
		select {
		case results <- res:
		default:
		}
	})
	return r
}

// parseGoogleCredentials accepts both the bare client JSON and the
// Cloud Console download with an "installed" or "web" section.
func parseGoogleCredentials(credentialsData []byte) (*OAuth2Credentials, error) {
	var directCredentials OAuth2Credentials
	if err := json.Unmarshal(credentialsData, &directCredentials); err == nil {
		if directCredentials.ClientID != "" && directCredentials.ClientSecret != "" {
			return &directCredentials, nil
		}
	}

	var googleFile GoogleCredentialsFile
	if err := json.Unmarshal(credentialsData, &googleFile); err != nil {
		return nil, fmt.Errorf("failed to parse credentials as Google format: %w", err)
	}
	if googleFile.Installed != nil {
		fmt.Printf("✅ Parsed Google Cloud Console credentials (installed/desktop format)\n")
		return googleFile.Installed, nil
	}
	if googleFile.Web != nil {
		fmt.Printf("✅ Parsed Google Cloud Console credentials (web format)\n")
		return googleFile.Web, nil
	}
	return nil, fmt.Errorf("no valid credentials found in JSON - expected 'installed' or 'web' section")
}
