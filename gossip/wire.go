// Package gossip is the framed object broadcast/receive layer of spec.md
// §4.6: a fixed 64-byte ASCII decimal length header, the opaque payload,
// then a short ACK, all over plain TCP (stdlib net — see SPEC_FULL.md §4
// for why no pack dependency fits this bespoke framing better).
package gossip

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	glog "github.com/driftchain/driftchain/log"
)

var logger = glog.NewModuleLogger(glog.Gossip)

const (
	HeaderLen     = 64
	DefaultPort   = 5050
	ConfirmMsg    = "Object received"
	SendTimeout   = 30 * time.Second
	startupWindow = 10 * time.Second
)

var ErrNetworkError = errors.New("network error")

func init() {
	gob.Register(Envelope{})
}

// writeHeader writes the fixed 64-byte space-padded decimal length header.
func writeHeader(w io.Writer, length int) error {
	s := strconv.Itoa(length)
	if len(s) > HeaderLen {
		return errors.New("payload too large to frame")
	}
	header := s + strings.Repeat(" ", HeaderLen-len(s))
	_, err := w.Write([]byte(header))
	return err
}

func readHeader(r io.Reader) (int, error) {
	buf := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(buf)))
	if err != nil {
		return 0, errors.Wrap(err, "parse length header")
	}
	return n, nil
}

// Send opens a connection to addr, frames env, and waits for the ACK,
// bounded by timeout (spec.md §5: "every outbound send has a bounded
// timeout"). A failure here is always non-fatal to the caller: Broadcast
// treats it as a dropped message, never a blocked fan-out.
func Send(addr string, env Envelope, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return errors.Wrap(ErrNetworkError, err.Error())
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	if err := writeHeader(conn, buf.Len()); err != nil {
		return errors.Wrap(ErrNetworkError, err.Error())
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return errors.Wrap(ErrNetworkError, err.Error())
	}
	ack := make([]byte, len(ConfirmMsg))
	if _, err := io.ReadFull(conn, ack); err != nil {
		return errors.Wrap(ErrNetworkError, err.Error())
	}
	return nil
}

// Broadcast fans Send out to every peer except self, one short-lived
// goroutine per destination, never touching shared state (spec.md §5).
func Broadcast(peers []string, self string, env Envelope) {
	for _, p := range peers {
		if p == self {
			continue
		}
		peer := p
		go func() {
			if err := Send(peer, env, SendTimeout); err != nil {
				logger.Warn("broadcast send failed", "peer", peer, "err", err)
			}
		}()
	}
}

// Listener accepts inbound connections and pushes decoded envelopes onto a
// single bounded inbox, the consumer-owned queue of spec.md §5.
type Listener struct {
	Inbox chan Envelope

	ln net.Listener
}

// NewListener starts accepting on addr; each inbound connection is handled
// by its own short-lived goroutine that parses the frame and ACKs.
func NewListener(addr string, inboxSize int) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(ErrNetworkError, err.Error())
	}
	l := &Listener{Inbox: make(chan Envelope, inboxSize), ln: ln}
	go l.acceptLoop()
	return l, nil
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return // listener closed
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(SendTimeout))

	n, err := readHeader(conn)
	if err != nil {
		logger.Warn("failed to read frame header", "err", err)
		return
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		logger.Warn("failed to read frame payload", "err", err)
		return
	}
	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&env); err != nil {
		logger.Warn("dropping unparseable object", "err", err)
		return
	}
	if _, err := conn.Write([]byte(ConfirmMsg)); err != nil {
		return
	}
	l.Inbox <- env
}

func (l *Listener) Close() error { return l.ln.Close() }

// Addr reports the actual bound address, useful when the configured port
// is 0 in tests.
func (l *Listener) Addr() string { return l.ln.Addr().String() }

// StartupWindow is how long a node waits for listeners to initialize and
// peer summaries to arrive before proceeding with whatever it has
// collected (spec.md §4.6).
func StartupWindow() time.Duration { return startupWindow }

// FormatAddr joins a host and port into a dial address.
func FormatAddr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
