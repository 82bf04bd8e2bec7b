package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/seagent/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// TokenEnvVar overrides the stored access token when set.
	TokenEnvVar = "SEAGENT_TOKEN"
)

// ErrNotAuthenticated is returned when a command needs a token and none is
// stored or provided through TokenEnvVar.
var ErrNotAuthenticated = errors.New("not logged in: run 'seagent auth login'")

// Manager manages reading and writing credentials.toml in the .seagent/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .seagent/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{Version: currentVersion}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SaveToken stores the access token. An empty tokenType defaults to "bearer".
func (m *Manager) SaveToken(accessToken, tokenType string) error {
	if accessToken == "" {
		return errors.New("cannot save empty access token")
	}
	if tokenType == "" {
		tokenType = "bearer"
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Token = &Token{AccessToken: accessToken, TokenType: tokenType}

	return m.Save(creds)
}

// Token returns the access token to send with requests. TokenEnvVar wins over
// the stored file. Returns an empty string when neither is set.
func (m *Manager) Token() (string, error) {
	if tok := os.Getenv(TokenEnvVar); tok != "" {
		return tok, nil
	}

	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	if creds.Token == nil {
		return "", nil
	}

	return creds.Token.AccessToken, nil
}

// RemoveToken deletes the stored token together with the user profile.
func (m *Manager) RemoveToken() error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Token = nil
	creds.User = nil

	return m.Save(creds)
}

// SaveUser stores the profile of the logged in user.
func (m *Manager) SaveUser(user StoredUser) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.User = &user

	return m.Save(creds)
}

// User returns the stored user profile, or nil when none is stored.
func (m *Manager) User() (*StoredUser, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	return creds.User, nil
}

// RequireUser returns the stored user, or ErrNotAuthenticated when there is
// no token or no profile.
func (m *Manager) RequireUser() (*StoredUser, error) {
	ok, err := m.IsAuthenticated()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}

	user, err := m.User()
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	return user, nil
}

// IsAuthenticated reports whether a token is available.
func (m *Manager) IsAuthenticated() (bool, error) {
	tok, err := m.Token()
	if err != nil {
		return false, err
	}

	return tok != "", nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}
