package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// AgentKeySource is the --ssh-key value that selects the SSH agent.
const AgentKeySource = "agent"

// AgentAvailable reports whether SSH_AUTH_SOCK is set.
func AgentAvailable() bool {
	return os.Getenv("SSH_AUTH_SOCK") != ""
}

// LoadSigners resolves a key source:
//   - "": no key authentication
//   - "agent": every key held by the SSH agent
//   - anything else: path to an OpenSSH private key file
func LoadSigners(source string) ([]ssh.Signer, error) {
	switch source {
	case "":
		return nil, nil
	case AgentKeySource:
		return agentSigners()
	default:
		signer, err := loadPrivateKey(source)
		if err != nil {
			return nil, err
		}
		return []ssh.Signer{signer}, nil
	}
}

func agentSigners() ([]ssh.Signer, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, errors.New("ssh agent: SSH_AUTH_SOCK not set")
	}

	var d net.Dialer
	conn, err := d.DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("ssh agent: %w", err)
	}

	// conn stays open: the signers call back into the agent for every
	// signature.
	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh agent signers: %w", err)
	}
	if len(signers) == 0 {
		_ = conn.Close()
		return nil, errors.New("ssh agent: no keys loaded")
	}
	return signers, nil
}

func loadPrivateKey(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path) //nolint:gosec // Path comes from the operator.
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key %s: %w", path, err)
	}
	return signer, nil
}
