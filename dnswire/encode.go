package dnswire

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"strings"
)

// NewID returns a random 16-bit query ID, used to frustrate off-path
// response spoofing (each attempt in the resolver's retry loop should
// call this again rather than reusing an ID).
func NewID() uint16 {
	var buf [2]byte
	// crypto/rand.Read on the standard library's global reader
	// never returns a short read without an error; if it errors
	// (entropy source unavailable) we fall back to a fixed id
	// rather than fail query construction outright.
	if _, err := rand.Read(buf[:]); err != nil {
		return 0x1234
	}
	return binary.BigEndian.Uint16(buf[:])
}

// EncodeQuery builds a wire-format DNS query for qname/qtype/qclass
// with the given id, RD set, and a single question. The returned
// slice has no length prefix; callers sending over TCP must prepend
// one (see EncodeTCPLength).
func EncodeQuery(id uint16, qname string, qtype, qclass uint16) ([]byte, error) {
	name, err := encodeName(qname)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, HeaderLen+len(name)+4)
	buf = appendUint16(buf, id)
	buf = appendUint16(buf, FlagRD)
	buf = appendUint16(buf, 1) // qdcount
	buf = appendUint16(buf, 0) // ancount
	buf = appendUint16(buf, 0) // nscount
	buf = appendUint16(buf, 0) // arcount
	buf = append(buf, name...)
	buf = appendUint16(buf, qtype)
	buf = appendUint16(buf, qclass)
	return buf, nil
}

// EncodeTCPLength prepends a 16-bit big-endian length to msg, as
// required when a DNS message is sent over a TCP stream.
func EncodeTCPLength(msg []byte) []byte {
	out := make([]byte, 0, tcpLengthBytes+len(msg))
	out = appendUint16(out, uint16(len(msg)))
	out = append(out, msg...)
	return out
}

func appendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

// encodeName renders a dotted domain name into its wire form: a
// sequence of length-prefixed labels terminated by a zero byte.
// It never emits a compression pointer; outbound queries from this
// package always carry one question and have nothing earlier in the
// message worth pointing at.
func encodeName(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return []byte{0}, nil
	}
	labels := strings.Split(name, ".")
	var buf []byte
	for _, label := range labels {
		if len(label) == 0 || len(label) > MaxLabelLen {
			return nil, errors.New("dnswire: invalid label length in " + name)
		}
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	if len(buf) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	buf = append(buf, 0)
	return buf, nil
}
