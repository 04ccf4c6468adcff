// Package resolver implements a minimal stub DNS resolver: given a
// question, it queries a fixed, ordered list of upstream servers over
// UDP, retrying on timeout and falling back to TCP when a reply is
// truncated. It answers one question per call; it does not cache, and
// it does not implement recursive resolution itself — it relies on the
// upstream servers for that, exactly like the original resolver this
// package is modeled on.
package resolver

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/context"

	"aqwari.net/net/vosftp/dnswire"
	"aqwari.net/net/vosftp/netio"
)

// ErrTimeout is returned when every configured server has been tried
// the configured number of times with no accepted reply.
var ErrTimeout = errors.New("resolver: no upstream server answered")

// Config holds the resolver's server list and retry parameters.
type Config struct {
	// Servers is an ordered list of upstream server IP literals,
	// tried in order for each query. An entry may carry a port
	// ("ip:port"); an entry without one uses port 53.
	Servers []string
	// Timeout is how long to wait for a reply to a single UDP
	// attempt before retrying or moving to the next server.
	Timeout time.Duration
	// MaxAttempts is how many times each server is tried over UDP
	// before moving on. 0 means try each server once.
	MaxAttempts int
	// MaxUDPSize bounds the UDP receive buffer.
	MaxUDPSize int
}

// DefaultConfig returns the defaults named in the resolver contract:
// a 3-second per-attempt timeout, one attempt per server, and a
// 512-byte UDP ceiling.
func DefaultConfig(servers ...string) Config {
	return Config{
		Servers:     servers,
		Timeout:     3 * time.Second,
		MaxAttempts: 1,
		MaxUDPSize:  dnswire.MaxUDPMessage,
	}
}

// A Resolver queries upstream servers per Config.
type Resolver struct {
	cfg Config
}

// New returns a Resolver using cfg, filling in DefaultConfig's zero
// values for any field left unset.
func New(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxUDPSize <= 0 {
		cfg.MaxUDPSize = dnswire.MaxUDPMessage
	}
	return &Resolver{cfg: cfg}
}

// Query resolves qname (type qtype, class qclass) against the
// resolver's configured servers in order, retrying each server up to
// MaxAttempts times over UDP and falling back to TCP when a reply has
// the truncated bit set. The first accepted reply is returned; a reply
// is accepted iff its id matches the query, its rcode is 0, it carries
// at least one answer (or has the truncated bit set), and its question
// name matches qname case-insensitively.
func (r *Resolver) Query(ctx context.Context, qname string, qtype, qclass uint16) (*dnswire.Message, error) {
	for _, server := range r.cfg.Servers {
		for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
			msg, err := r.tryUDP(ctx, server, qname, qtype, qclass)
			if err != nil {
				continue
			}
			if msg.Truncated() {
				msg, err = r.tryTCP(ctx, server, qname, qtype, qclass)
				if err != nil {
					continue
				}
			}
			return msg, nil
		}
	}
	return nil, ErrTimeout
}

func (r *Resolver) tryUDP(ctx context.Context, server, qname string, qtype, qclass uint16) (*dnswire.Message, error) {
	id := dnswire.NewID()
	query, err := dnswire.EncodeQuery(id, qname, qtype, qclass)
	if err != nil {
		return nil, err
	}

	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, "53")
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(r.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	if _, err := conn.Write(query); err != nil {
		return nil, err
	}
	buf := make([]byte, r.cfg.MaxUDPSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return r.accept(buf[:n], id, qname)
}

func (r *Resolver) tryTCP(ctx context.Context, server, qname string, qtype, qclass uint16) (*dnswire.Message, error) {
	id := dnswire.NewID()
	query, err := dnswire.EncodeQuery(id, qname, qtype, qclass)
	if err != nil {
		return nil, err
	}
	framed := dnswire.EncodeTCPLength(query)

	host, port := server, 53
	if h, p, err := net.SplitHostPort(server); err == nil {
		if n, err := strconv.Atoi(p); err == nil {
			host, port = h, n
		}
	}
	c, err := netio.DialTCP(ctx, host, port)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(r.cfg.Timeout))

	if err := c.Send(framed); err != nil {
		return nil, err
	}

	var lenBuf [2]byte
	if _, err := readFull(c, lenBuf[:]); err != nil {
		return nil, err
	}
	replyLen := int(lenBuf[0])<<8 | int(lenBuf[1])
	reply := make([]byte, replyLen)
	if _, err := readFull(c, reply); err != nil {
		return nil, err
	}
	return r.accept(reply, id, qname)
}

func readFull(c *netio.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Recv(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// accept decodes raw and applies the acceptance rule: matching id,
// rcode 0, at least one answer (not required of a truncated reply,
// which Query answers by retrying over TCP), and a question name
// matching qname case-insensitively.
func (r *Resolver) accept(raw []byte, wantID uint16, qname string) (*dnswire.Message, error) {
	msg, err := dnswire.Decode(raw)
	if err != nil {
		return nil, err
	}
	if msg.ID != wantID {
		return nil, errors.New("resolver: reply id mismatch")
	}
	if msg.Rcode() != 0 {
		return nil, errors.New("resolver: reply rcode " + strconv.Itoa(msg.Rcode()))
	}
	if msg.ANCount < 1 && !msg.Truncated() {
		return nil, errors.New("resolver: reply carries no answers")
	}
	if len(msg.Question) == 0 || !strings.EqualFold(msg.Question[0].Name, qname) {
		return nil, errors.New("resolver: reply question name mismatch")
	}
	return msg, nil
}
