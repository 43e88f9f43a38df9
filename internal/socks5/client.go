package socks5

import (
	"errors"
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// RFC 1928 method value for "no acceptable methods".
const noAcceptableMethods = 0xff

// Auth holds optional username/password credentials.
type Auth struct {
	Username string
	Password string
}

var (
	// ErrAuthRequired means the server insists on credentials we do not have.
	ErrAuthRequired = errors.New("socks5: server requires username/password")
	// ErrAuthFailed means the server rejected our credentials.
	ErrAuthFailed = errors.New("socks5: authentication failed")
)

// ReplyError is a non-success reply to a CONNECT request.
type ReplyError struct {
	Rep byte
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("socks5: connect failed: %s", replyText(e.Rep))
}

// ClientDial negotiates authentication on rw and asks the server to
// connect to address. On success rw is a tunnel to address.
func ClientDial(rw io.ReadWriter, auth Auth, address string) error {
	if err := negotiate(rw, auth); err != nil {
		return err
	}
	return connect(rw, address)
}

func negotiate(rw io.ReadWriter, auth Auth) error {
	methods := []byte{txsocks5.MethodNone}
	if auth.Username != "" {
		methods = append(methods, txsocks5.MethodUsernamePassword)
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(rw); err != nil {
		return fmt.Errorf("socks5: write negotiation: %w", err)
	}
	rep, err := txsocks5.NewNegotiationReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("socks5: read negotiation: %w", err)
	}

	switch rep.Method {
	case txsocks5.MethodNone:
		return nil
	case txsocks5.MethodUsernamePassword:
		if auth.Username == "" {
			return ErrAuthRequired
		}
		req := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password))
		if _, err := req.WriteTo(rw); err != nil {
			return fmt.Errorf("socks5: write credentials: %w", err)
		}
		urep, err := txsocks5.NewUserPassNegotiationReplyFrom(rw)
		if err != nil {
			return fmt.Errorf("socks5: read credentials reply: %w", err)
		}
		if urep.Status != txsocks5.UserPassStatusSuccess {
			return ErrAuthFailed
		}
		return nil
	case noAcceptableMethods:
		if auth.Username == "" {
			return ErrAuthRequired
		}
		return errors.New("socks5: server accepted none of our auth methods")
	default:
		return fmt.Errorf("socks5: server chose unsupported method %#x", rep.Method)
	}
}

func connect(rw io.ReadWriter, address string) error {
	atyp, host, port, err := txsocks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("socks5: parse address %q: %w", address, err)
	}
	if atyp == txsocks5.ATYPDomain {
		// ParseAddress length-prefixes domains; NewRequest adds its own.
		host = host[1:]
	}

	if _, err := txsocks5.NewRequest(txsocks5.CmdConnect, atyp, host, port).WriteTo(rw); err != nil {
		return fmt.Errorf("socks5: write request: %w", err)
	}
	rep, err := txsocks5.NewReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("socks5: read reply: %w", err)
	}
	if rep.Rep != txsocks5.RepSuccess {
		return &ReplyError{Rep: rep.Rep}
	}
	return nil
}

func replyText(rep byte) string {
	switch rep {
	case txsocks5.RepServerFailure:
		return "general server failure"
	case txsocks5.RepNotAllowed:
		return "not allowed by ruleset"
	case txsocks5.RepNetworkUnreachable:
		return "network unreachable"
	case txsocks5.RepHostUnreachable:
		return "host unreachable"
	case txsocks5.RepConnectionRefused:
		return "connection refused"
	case txsocks5.RepTTLExpired:
		return "TTL expired"
	case txsocks5.RepCommandNotSupported:
		return "command not supported"
	case txsocks5.RepAddressNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("reply %#x", rep)
	}
}
