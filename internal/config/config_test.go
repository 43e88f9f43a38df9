package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("listen", "127.0.0.1:8080", "")
	fs.String("upstream", "direct://", "")
	fs.Duration("dial-timeout", 0, "")
	fs.Duration("negotiation-timeout", 0, "")
	fs.Duration("idle-timeout", 0, "")
	fs.Int("max-target-length", 1024, "")
	fs.String("proxy-agent", "connectproxy/0.1.0", "")
	fs.String("tcp-keepalive", "45:45:3", "")
	fs.Bool("reuse-port", false, "")
	fs.String("ssh-key", "", "")
	fs.String("ssh-known-hosts", "", "")
	fs.String("debug-listen", "", "")
	fs.String("log-level", "info", "")
	return fs
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "proxy.hcl", `
listen              = "0.0.0.0:3128"
upstream            = "socks5://127.0.0.1:1080"
dial_timeout        = "5s"
negotiation_timeout = "10s"
max_target_length   = 255
reuse_port          = true
log_level           = "debug"
`)

	f, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, f.Listen)
	assert.Equal(t, "0.0.0.0:3128", *f.Listen)
	require.NotNil(t, f.Upstream)
	assert.Equal(t, "socks5://127.0.0.1:1080", *f.Upstream)
	require.NotNil(t, f.MaxTargetLength)
	assert.Equal(t, 255, *f.MaxTargetLength)
	require.NotNil(t, f.ReusePort)
	assert.True(t, *f.ReusePort)

	assert.Nil(t, f.IdleTimeout)
	assert.Nil(t, f.ProxyAgent)
	assert.Nil(t, f.SSHKey)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unknown attribute", file: "a.hcl", content: `listen_addr = "x"`},
		{name: "bad duration", file: "b.hcl", content: `idle_timeout = "forever"`},
		{name: "wrong type", file: "c.hcl", content: `max_target_length = "lots"`},
		{name: "syntax", file: "d.hcl", content: `listen = `},
		{name: "unknown extension", file: "e.conf", content: `listen = "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
}

func TestApplyFlagsWin(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "proxy.hcl", `
listen            = "0.0.0.0:3128"
idle_timeout      = "2m"
max_target_length = 255
proxy_agent       = "edge/2.0"
reuse_port        = true
`)
	f, err := Load(path)
	require.NoError(t, err)

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--listen=127.0.0.1:9999", "--max-target-length=64"}))
	require.NoError(t, f.Apply(fs))

	listen, _ := fs.GetString("listen")
	assert.Equal(t, "127.0.0.1:9999", listen)
	maxLen, _ := fs.GetInt("max-target-length")
	assert.Equal(t, 64, maxLen)

	idle, _ := fs.GetDuration("idle-timeout")
	assert.Equal(t, 2*time.Minute, idle)
	agent, _ := fs.GetString("proxy-agent")
	assert.Equal(t, "edge/2.0", agent)
	reuse, _ := fs.GetBool("reuse-port")
	assert.True(t, reuse)

	upstream, _ := fs.GetString("upstream")
	assert.Equal(t, "direct://", upstream)
}

func TestApplyUnknownFlag(t *testing.T) {
	t.Parallel()

	listen := "127.0.0.1:1"
	f := &File{Listen: &listen}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.Error(t, f.Apply(fs))
}
