// Package network lets the API serve HTTPS and answer plain HTTP requests on
// the same port with a redirect.
package network

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
	"sync"
)

// tlsHandshake is the first byte of a TLS record carrying a handshake.
const tlsHandshake = 0x16

// AutoHttpsConn peeks at the first bytes of a connection. A TLS client hello
// passes through untouched; anything that parses as an HTTP request gets a 307
// to the https:// URL and the connection is closed.
type AutoHttpsConn struct {
	net.Conn

	peeked []byte
	once   sync.Once
}

func NewAutoHttpsConn(conn net.Conn) net.Conn {
	return &AutoHttpsConn{Conn: conn}
}

func (c *AutoHttpsConn) peek() {
	buf := make([]byte, 2048)
	n, err := c.Conn.Read(buf)
	c.peeked = buf[:n]
	if err != nil || n == 0 || c.peeked[0] == tlsHandshake {
		return
	}

	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(c.peeked)))
	if err != nil {
		return
	}
	resp := http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
	}
	resp.Header.Set("Location", "https://"+req.Host+req.RequestURI)
	resp.Header.Set("Connection", "close")
	_ = resp.Write(c.Conn)
	_ = c.Conn.Close()
	c.peeked = nil
}

func (c *AutoHttpsConn) Read(buf []byte) (int, error) {
	c.once.Do(c.peek)

	if len(c.peeked) > 0 {
		n := copy(buf, c.peeked)
		c.peeked = c.peeked[n:]
		return n, nil
	}
	return c.Conn.Read(buf)
}
