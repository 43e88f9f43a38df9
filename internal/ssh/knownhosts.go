package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/die-net/connectproxy/internal/logger"
)

// NewHostKeyCallback verifies host keys against the known_hosts file at
// path, appending keys for hosts it has never seen (trust on first use). A
// host that is listed with a different key is rejected.
//
// The file and its directory are created if missing. An empty path
// disables host key checking.
func NewHostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // Operator disabled host key checking.
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("known_hosts dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) //nolint:gosec // Path comes from the operator.
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	_ = f.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}

	var mu sync.Mutex
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return err
		}
		if len(keyErr.Want) > 0 {
			return fmt.Errorf("host key mismatch for %s (possible MITM attack): %w", hostname, err)
		}

		mu.Lock()
		defer mu.Unlock()

		af, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // Path comes from the operator.
		if err != nil {
			return fmt.Errorf("known_hosts append: %w", err)
		}
		defer af.Close()

		line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
		if _, err := af.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("known_hosts append: %w", err)
		}

		logger.Info("ssh: added host key for %s to %s", hostname, path)
		return nil
	}, nil
}
