package connect

import "io"

// DefaultProxyAgent is sent in the Proxy-agent header of the success
// response unless configured otherwise.
const DefaultProxyAgent = "connectproxy/0.1.0"

// UnsupportedMethodResponse is written verbatim to clients whose request is
// not a CONNECT. The duplicated Content-Length of 26 is part of the wire
// format existing clients see and is kept as is.
const UnsupportedMethodResponse = "HTTP/1.1 405 Method Not Supported\r\n" +
	"Content-Type: text/plain;charset=utf-8\r\n" +
	"Content-Length: 26\r\n" +
	"Content-Length: 26\r\n" +
	"\r\n" +
	"Only CONNECT Supported\r\n\r\n"

// EstablishedResponse returns the response that opens the tunnel.
func EstablishedResponse(proxyAgent string) string {
	if proxyAgent == "" {
		proxyAgent = DefaultProxyAgent
	}
	return "HTTP/1.1 200 Connection Established\r\n" +
		"Proxy-agent: " + proxyAgent + "\r\n" +
		"\r\n"
}

// WriteUnsupportedMethod writes UnsupportedMethodResponse to w.
func WriteUnsupportedMethod(w io.Writer) (int, error) {
	return io.WriteString(w, UnsupportedMethodResponse)
}

// WriteEstablished writes the tunnel-established response to w.
func WriteEstablished(w io.Writer, proxyAgent string) (int, error) {
	return io.WriteString(w, EstablishedResponse(proxyAgent))
}
