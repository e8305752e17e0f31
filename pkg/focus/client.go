package focus

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

// DefaultBaudRate of the CDC serial port.
const DefaultBaudRate = 115200

// Client issues commands to a focus endpoint.
type Client struct {
	rw      io.ReadWriter
	scanner *bufio.Scanner
	lock    sync.Mutex
}

// NewClient creates a client over a stream.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw, scanner: bufio.NewScanner(rw)}
}

// Dial connects to target: ws:// or wss:// URLs, tcp://host:port,
// otherwise a serial device path.
func Dial(target string, baud int) (*Client, error) {
	switch {
	case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
		origin := "http://" + strings.SplitN(strings.SplitN(target, "://", 2)[1], "/", 2)[0]
		conn, err := websocket.Dial(target, "", origin)
		if err != nil {
			return nil, err
		}
		return NewClient(conn), nil
	case strings.HasPrefix(target, "tcp://"):
		conn, err := net.Dial("tcp", strings.TrimPrefix(target, "tcp://"))
		if err != nil {
			return nil, err
		}
		return NewClient(conn), nil
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := OpenSerial(target, baud)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	return NewClient(port), nil
}

// Do sends a command and returns the response lines.
func (c *Client) Do(cmd string, args ...string) ([]string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	line := strings.Join(append([]string{cmd}, args...), " ")
	if _, err := io.WriteString(c.rw, line+"\n"); err != nil {
		return nil, err
	}
	var lines []string
	for c.scanner.Scan() {
		text := strings.TrimRight(c.scanner.Text(), "\r")
		switch text {
		case ".":
			return lines, nil
		case "":
			continue
		}
		lines = append(lines, text)
	}
	if err := c.scanner.Err(); err != nil {
		return lines, err
	}
	return lines, io.ErrUnexpectedEOF
}

// Close closes the underlying stream if possible.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
