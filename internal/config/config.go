// Package config loads the optional HCL config file and merges it into the
// command line flags.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/pflag"
)

// File is the config file layout. Every attribute is optional and named
// after its flag with dashes replaced by underscores. Durations use Go
// duration syntax, e.g. "30s".
type File struct {
	Listen             *string `hcl:"listen,optional"`
	Upstream           *string `hcl:"upstream,optional"`
	DialTimeout        *string `hcl:"dial_timeout,optional"`
	NegotiationTimeout *string `hcl:"negotiation_timeout,optional"`
	IdleTimeout        *string `hcl:"idle_timeout,optional"`
	MaxTargetLength    *int    `hcl:"max_target_length,optional"`
	ProxyAgent         *string `hcl:"proxy_agent,optional"`
	TCPKeepAlive       *string `hcl:"tcp_keepalive,optional"`
	ReusePort          *bool   `hcl:"reuse_port,optional"`
	SSHKey             *string `hcl:"ssh_key,optional"`
	SSHKnownHosts      *string `hcl:"ssh_known_hosts,optional"`
	DebugListen        *string `hcl:"debug_listen,optional"`
	LogLevel           *string `hcl:"log_level,optional"`
}

// Load reads an HCL file. The name must end in .hcl (or .json for the JSON
// flavor of HCL).
func Load(path string) (*File, error) {
	var f File
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	for name, d := range map[string]*string{
		"dial_timeout":        f.DialTimeout,
		"negotiation_timeout": f.NegotiationTimeout,
		"idle_timeout":        f.IdleTimeout,
	} {
		if d == nil {
			continue
		}
		if _, err := time.ParseDuration(*d); err != nil {
			return nil, fmt.Errorf("load config %s: %s: %w", path, name, err)
		}
	}

	return &f, nil
}

// Apply sets every flag the file names unless it was given on the command
// line.
func (f *File) Apply(fs *pflag.FlagSet) error {
	for name, v := range f.flagValues() {
		if fs.Lookup(name) == nil {
			return fmt.Errorf("config: no flag %q", name)
		}
		if fs.Changed(name) {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

func (f *File) flagValues() map[string]string {
	m := make(map[string]string)
	str := func(name string, v *string) {
		if v != nil {
			m[name] = *v
		}
	}

	str("listen", f.Listen)
	str("upstream", f.Upstream)
	str("dial-timeout", f.DialTimeout)
	str("negotiation-timeout", f.NegotiationTimeout)
	str("idle-timeout", f.IdleTimeout)
	str("proxy-agent", f.ProxyAgent)
	str("tcp-keepalive", f.TCPKeepAlive)
	str("ssh-key", f.SSHKey)
	str("ssh-known-hosts", f.SSHKnownHosts)
	str("debug-listen", f.DebugListen)
	str("log-level", f.LogLevel)

	if f.MaxTargetLength != nil {
		m["max-target-length"] = strconv.Itoa(*f.MaxTargetLength)
	}
	if f.ReusePort != nil {
		m["reuse-port"] = strconv.FormatBool(*f.ReusePort)
	}
	return m
}
