// Package mpd implements the small part of the MPD line protocol needed to
// read the properties of the current song.
package mpd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/coverfetch/internal/failure"
)

const (
	greetingPrefix = "OK MPD "
	okLine         = "OK"
	ackPrefix      = "ACK"
	keySeparator   = ": "

	// CommandCurrentSong asks the daemon for the playing song's tags
	CommandCurrentSong = "currentsong"
)

// Client opens a fresh connection for each query. There is no pooling.
type Client struct {
	addr     string
	password string
	timeout  time.Duration
}

// NewClient creates a client for the daemon at addr (host:port).
// An empty password skips authentication.
func NewClient(addr, password string, timeout time.Duration) *Client {
	return &Client{
		addr:     addr,
		password: password,
		timeout:  timeout,
	}
}

// CurrentSong connects, reads the current song's properties and disconnects.
func (c *Client) CurrentSong(ctx context.Context) (mpd.Attrs, error) {
	conn, err := Dial(ctx, c.addr, c.timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if c.password != "" {
		if err := conn.Authenticate(c.password); err != nil {
			return nil, err
		}
	}

	return conn.CurrentSong()
}

// Conn is a single handshaken daemon connection.
type Conn struct {
	conn    net.Conn
	reader  *bufio.Reader
	version string
}

// Dial opens a TCP connection within timeout and performs the greeting
// handshake.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Conn, error) {
	log.Debug().Str("addr", addr).Dur("timeout", timeout).Msg("Connecting to MPD")

	dialer := net.Dialer{Timeout: timeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to MPD at %s: %v", failure.ErrConnection, addr, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok && timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	nc.SetDeadline(deadline)

	c := &Conn{
		conn:   nc,
		reader: bufio.NewReader(nc),
	}

	if err := c.handshake(); err != nil {
		nc.Close()
		return nil, err
	}

	log.Debug().Str("addr", addr).Str("version", c.version).Msg("Connected to MPD")
	return c, nil
}

// Version returns the protocol version announced in the greeting.
func (c *Conn) Version() string {
	return c.version
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) handshake() error {
	line, err := c.readLine()
	if err != nil {
		return err
	}

	version, err := ParseGreeting(line)
	if err != nil {
		return err
	}

	c.version = version
	return nil
}

// Authenticate sends the password command. A rejection is an auth error.
func (c *Conn) Authenticate(password string) error {
	if err := c.writeCommand("password " + quote(password)); err != nil {
		return err
	}

	_, err := c.readResponse()
	if err != nil {
		var ackErr mpd.Error
		if errors.As(err, &ackErr) {
			return fmt.Errorf("%w: MPD authentication failed: %w", failure.ErrAuth, ackErr)
		}
		return err
	}
	return nil
}

// CurrentSong issues "currentsong" and returns the key/value pairs of the
// response. The last occurrence of a repeated key wins.
func (c *Conn) CurrentSong() (mpd.Attrs, error) {
	if err := c.writeCommand(CommandCurrentSong); err != nil {
		return nil, err
	}
	return c.readResponse()
}

func (c *Conn) writeCommand(cmd string) error {
	if _, err := io.WriteString(c.conn, cmd+"\n"); err != nil {
		return fmt.Errorf("%w: failed to send command: %v", failure.ErrConnection, err)
	}
	return nil
}

// readResponse reads key/value lines up to the "OK" terminator.
func (c *Conn) readResponse() (mpd.Attrs, error) {
	attrs := make(mpd.Attrs)

	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(line) == okLine {
			return attrs, nil
		}

		if strings.HasPrefix(line, ackPrefix) {
			ackErr := ParseAck(line)
			return nil, fmt.Errorf("%w: %w", failure.ErrProtocol, ackErr)
		}

		key, value, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		attrs[key] = value
	}
}

// readLine returns the next line without its line terminator.
func (c *Conn) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: connection closed by MPD", failure.ErrProtocol)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", fmt.Errorf("%w: timed out reading from MPD: %v", failure.ErrConnection, err)
		}
		return "", fmt.Errorf("%w: failed to read from MPD: %v", failure.ErrConnection, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ParseGreeting validates the first line sent by the daemon and returns the
// protocol version.
func ParseGreeting(line string) (string, error) {
	if !strings.HasPrefix(line, greetingPrefix) {
		return "", fmt.Errorf("%w: unexpected greeting: %q", failure.ErrProtocol, line)
	}
	return strings.TrimSpace(line[len(greetingPrefix):]), nil
}

// ParseLine splits a "Key: Value" response line on the first separator.
func ParseLine(line string) (key, value string, err error) {
	key, value, ok := strings.Cut(line, keySeparator)
	if !ok {
		return "", "", fmt.Errorf("%w: malformed response line: %q", failure.ErrParse, line)
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), nil
}

// ParseAck decodes "ACK [code@index] {command} message". Parts that do not
// follow that shape end up in Message.
func ParseAck(line string) mpd.Error {
	rest := strings.TrimSpace(strings.TrimPrefix(line, ackPrefix))
	ackErr := mpd.Error{Message: rest}

	if !strings.HasPrefix(rest, "[") {
		return ackErr
	}
	end := strings.Index(rest, "]")
	if end < 0 {
		return ackErr
	}

	if code, index, ok := strings.Cut(rest[1:end], "@"); ok {
		if n, err := strconv.Atoi(code); err == nil {
			ackErr.Code = mpd.ErrorCode(n)
		}
		if n, err := strconv.Atoi(index); err == nil {
			ackErr.CommandListIndex = n
		}
	}
	rest = strings.TrimSpace(rest[end+1:])

	if strings.HasPrefix(rest, "{") {
		if end := strings.Index(rest, "}"); end >= 0 {
			ackErr.CommandName = rest[1:end]
			rest = strings.TrimSpace(rest[end+1:])
		}
	}

	ackErr.Message = rest
	return ackErr
}

// quote wraps an argument in double quotes, escaping quotes and backslashes.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
