package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// CredentialKeys are the environment variables adapters read API keys from.
var CredentialKeys = []string{
	"A2Z_GITHUB_TOKEN",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"A2Z_OPENAI_KEY",
	"OPENAI_API_KEY",
	"OPENAI_KEY",
}

// credMu guards read-modify-write cycles on the credentials file.
var credMu sync.Mutex

// CredentialsPath is a dotenv file holding API keys, kept next to the config.
func CredentialsPath() string {
	return CredentialsPathIn(ConfigDir())
}

func CredentialsPathIn(dir string) string {
	return filepath.Join(dir, "credentials.env")
}

// LoadEnvFrom exports variables from files into the process environment.
// Variables that are already set win. Missing files are ignored.
func LoadEnvFrom(files ...string) error {
	var errs []error
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}

func LoadCredentialsFrom(path string) (map[string]string, error) {
	creds, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return map[string]string{}, fmt.Errorf("reading credentials %s: %w", path, err)
	}
	return creds, nil
}

func SaveCredentialTo(path, name, value string) error {
	if err := validateKeyName(name); err != nil {
		return err
	}

	credMu.Lock()
	defer credMu.Unlock()

	creds, err := LoadCredentialsFrom(path)
	if err != nil {
		creds = map[string]string{}
	}
	creds[name] = value
	return writeCredentials(path, creds)
}

func DeleteCredentialFrom(path, name string) error {
	credMu.Lock()
	defer credMu.Unlock()

	creds, err := LoadCredentialsFrom(path)
	if err != nil {
		return err
	}
	delete(creds, name)
	return writeCredentials(path, creds)
}

func validateKeyName(name string) error {
	if name == "" {
		return errors.New("credential name is empty")
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("invalid credential name %q: use upper-case letters, digits and underscores", name)
		}
	}
	if strings.IndexFunc(name[:1], func(r rune) bool { return r >= '0' && r <= '9' }) == 0 {
		return fmt.Errorf("invalid credential name %q: must not start with a digit", name)
	}
	return nil
}

func writeCredentials(path string, creds map[string]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating credentials dir: %w", err)
	}

	content, err := godotenv.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}
