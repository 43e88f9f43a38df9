package connect

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/die-net/connectproxy/internal/logger"
)

const (
	methodPrefix = "CONNECT "

	// DefaultMaxTargetLength caps the accumulated host and port bytes when
	// a Parser is not given an explicit limit.
	DefaultMaxTargetLength = 1024

	readBufferSize = 1024
)

var (
	// ErrUnsupportedMethod means the request did not start with "CONNECT ".
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrMalformedTarget means the target could not be turned into a host
	// and port: it was too long or was not valid UTF-8.
	ErrMalformedTarget = errors.New("malformed target")

	// ErrReadFailed wraps I/O errors (including a premature end of stream)
	// hit while reading the request line.
	ErrReadFailed = errors.New("read failed")
)

// Target is the host and port named by a CONNECT request.
type Target struct {
	Host string
	Port string
}

// Addr returns the dial address. Host and port are joined verbatim with a
// colon; no bracketing is added.
func (t Target) Addr() string {
	return t.Host + ":" + t.Port
}

func (t Target) String() string {
	return t.Addr()
}

// Parser incrementally scans a CONNECT request line. The zero value is
// ready to use and applies DefaultMaxTargetLength.
//
// State is kept between calls to Scan, so the request may arrive split
// across any number of reads.
type Parser struct {
	// MaxTargetLength bounds len(host)+len(port). Zero or negative means
	// DefaultMaxTargetLength.
	MaxTargetLength int

	matched int // bytes of methodPrefix seen so far
	host    []byte
	port    []byte
	inPort  bool
	done    bool
}

// Scan consumes bytes from b. It returns how many bytes were consumed and
// whether the terminating space was reached. Bytes after the space are left
// unconsumed.
//
// Every colon switches accumulation to the port and is dropped, so for
// "a:b:c" the host is "a" and the port is "bc".
func (p *Parser) Scan(b []byte) (int, bool, error) {
	if p.done {
		return 0, true, nil
	}

	limit := p.limit()
	for i, c := range b {
		if p.matched < len(methodPrefix) {
			if c != methodPrefix[p.matched] {
				return i, false, ErrUnsupportedMethod
			}
			p.matched++
			continue
		}

		switch c {
		case ' ':
			p.done = true
			return i + 1, true, nil
		case ':':
			p.inPort = true
			continue
		}

		if len(p.host)+len(p.port) >= limit {
			return i, false, fmt.Errorf("%w: target longer than %d bytes", ErrMalformedTarget, limit)
		}
		if p.inPort {
			p.port = append(p.port, c)
		} else {
			p.host = append(p.host, c)
		}
	}

	return len(b), false, nil
}

// Done reports whether the terminating space has been scanned.
func (p *Parser) Done() bool {
	return p.done
}

// Target validates and returns the scanned target. It must only be called
// once Scan has reported completion.
func (p *Parser) Target() (Target, error) {
	if !p.done {
		return Target{}, fmt.Errorf("%w: request line incomplete", ErrMalformedTarget)
	}
	if !utf8.Valid(p.host) {
		return Target{}, fmt.Errorf("%w: host is not valid UTF-8", ErrMalformedTarget)
	}
	if !utf8.Valid(p.port) {
		return Target{}, fmt.Errorf("%w: port is not valid UTF-8", ErrMalformedTarget)
	}
	return Target{Host: string(p.host), Port: string(p.port)}, nil
}

func (p *Parser) limit() int {
	if p.MaxTargetLength <= 0 {
		return DefaultMaxTargetLength
	}
	return p.MaxTargetLength
}

// ReadTarget reads from r until the CONNECT target has been scanned.
//
// Whatever else arrived in the read that completed the target (the rest of
// the request line, headers) is discarded. maxTargetLength has the meaning
// of Parser.MaxTargetLength.
func ReadTarget(r io.Reader, maxTargetLength int) (Target, error) {
	p := Parser{MaxTargetLength: maxTargetLength}
	buf := make([]byte, readBufferSize)

	for {
		n, err := r.Read(buf)
		logger.Trace("connect: read %d bytes", n)
		if n > 0 {
			_, done, serr := p.Scan(buf[:n])
			if serr != nil {
				return Target{}, serr
			}
			if done {
				return p.Target()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Target{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
		}
	}
}
