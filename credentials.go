package csda

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bgentry/go-netrc/netrc"
)

// Environment variables read by [EnvCredential].
const (
	EnvUsername = "EARTHDATA_USERNAME"
	EnvPassword = "EARTHDATA_PASSWORD"
)

// Credential authenticates the single request sent to Earthdata Login
// during [Client.Login]. It is never attached to the client.
type Credential interface {
	Apply(req *http.Request) error
}

// BasicAuth is an Earthdata Login username and password.
type BasicAuth struct {
	Username string
	Password string
}

// Apply sets HTTP basic authentication on req.
func (b BasicAuth) Apply(req *http.Request) error {
	if b.Username == "" || b.Password == "" {
		return errors.New("username and password are required")
	}
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// String hides the password.
func (b BasicAuth) String() string {
	return fmt.Sprintf("BasicAuth{Username: %q, Password: <redacted>}", b.Username)
}

// EnvCredential returns the credential in EARTHDATA_USERNAME and
// EARTHDATA_PASSWORD. Apply fails if either is unset.
func EnvCredential() BasicAuth {
	return BasicAuth{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
}

// NetrcAuth looks up the credential for the request host in a .netrc file.
type NetrcAuth struct {
	// Path is the netrc file. Defaults to ~/.netrc (~/_netrc on Windows).
	Path string
}

// Apply sets HTTP basic authentication on req from the matching netrc
// entry.
func (n NetrcAuth) Apply(req *http.Request) error {
	path := n.Path
	if path == "" {
		var err error
		if path, err = DefaultNetrcPath(); err != nil {
			return err
		}
	}

	host := req.URL.Hostname()
	machine, err := netrc.FindMachine(path, host)
	if err != nil {
		return fmt.Errorf("reading netrc %s: %w", path, err)
	}
	if machine == nil || machine.Login == "" {
		return fmt.Errorf("no netrc entry for %s in %s", host, path)
	}

	req.SetBasicAuth(machine.Login, machine.Password)
	return nil
}

// DefaultNetrcPath returns the netrc file in the user's home directory.
func DefaultNetrcPath() (string, error) {
	if path := os.Getenv("NETRC"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	name := ".netrc"
	if runtime.GOOS == "windows" {
		name = "_netrc"
	}
	return filepath.Join(home, name), nil
}
