package testutil

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
)

type directTCPIP struct {
	Host       string
	Port       uint32
	OriginHost string
	OriginPort uint32
}

// StartSSHForwardServer starts an SSH server with a throwaway host key that
// accepts username/password and serves "direct-tcpip" channels by dialing
// the requested destination.
func StartSSHForwardServer(ctx context.Context, t *testing.T, username, password string) net.Listener {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() != username || string(pass) != password {
				return nil, errors.New("invalid credentials")
			}
			return &ssh.Permissions{}, nil
		},
	}
	cfg.AddHostKey(signer)

	ln := listen(ctx, t)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(ctx, c, cfg)
		}
	}()

	return ln
}

func serveSSH(ctx context.Context, c net.Conn, cfg *ssh.ServerConfig) {
	defer c.Close()

	sconn, chans, reqs, err := ssh.NewServerConn(c, cfg)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "direct-tcpip" {
			_ = nc.Reject(ssh.UnknownChannelType, "unsupported channel")
			continue
		}

		var p directTCPIP
		if err := ssh.Unmarshal(nc.ExtraData(), &p); err != nil {
			_ = nc.Reject(ssh.Prohibited, "bad direct-tcpip payload")
			continue
		}

		var d net.Dialer
		dst, err := d.DialContext(ctx, "tcp", net.JoinHostPort(p.Host, fmt.Sprint(p.Port)))
		if err != nil {
			_ = nc.Reject(ssh.ConnectionFailed, err.Error())
			continue
		}

		ch, chReqs, err := nc.Accept()
		if err != nil {
			_ = dst.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)

		go func() {
			defer ch.Close()
			defer dst.Close()

			var g errgroup.Group
			g.Go(func() error {
				_, err := io.Copy(dst, ch)
				_ = dst.Close()
				return err
			})
			g.Go(func() error {
				_, err := io.Copy(ch, dst)
				_ = ch.Close()
				return err
			})
			_ = g.Wait()
		}()
	}
}
