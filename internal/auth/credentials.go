package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// driveScope limits the app to files it created or opened.
const driveScope = "https://www.googleapis.com/auth/drive.file"

// Credentials identifies the OAuth client. They come from the
// "installed app" JSON downloaded from the Google Cloud console.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// clientSecretFile mirrors the Google console download. Desktop clients are
// under "installed"; "web" is accepted for users who picked the wrong type.
type clientSecretFile struct {
	Installed *clientSecretEntry `json:"installed"`
	Web       *clientSecretEntry `json:"web"`
}

type clientSecretEntry struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// LoadCredentials reads a client-secret JSON file.
func LoadCredentials(path string) (Credentials, error) {
	if path == "" {
		return Credentials{}, ErrNoCredentials
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, fmt.Errorf("%w: %s", ErrNoCredentials, path)
	}

	if err != nil {
		return Credentials{}, fmt.Errorf("auth: reading credentials %s: %w", path, err)
	}

	var f clientSecretFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Credentials{}, fmt.Errorf("auth: decoding credentials %s: %w", path, err)
	}

	entry := f.Installed
	if entry == nil {
		entry = f.Web
	}

	if entry == nil || entry.ClientID == "" {
		return Credentials{}, fmt.Errorf("auth: credentials %s have no installed.client_id", path)
	}

	return Credentials{ClientID: entry.ClientID, ClientSecret: entry.ClientSecret}, nil
}

func oauthConfig(creds Credentials, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       []string{driveScope},
		Endpoint:     endpoint,
	}
}

// GoogleEndpoint is the production endpoint set, including the device
// authorization URL.
var GoogleEndpoint = endpoints.Google
