package netio

import (
	"context"
	"net"
	"strconv"
)

// A Listener wraps a net.Listener, recording the address it was bound
// to so a PASV reply can report it back to the client without a second
// syscall.
type Listener struct {
	net.Listener
	Addr net.IP
	Port int
}

// ListenTCP binds addr:port (port 0 picks an ephemeral port) and listens
// with the system's default backlog.
func ListenTCP(addr net.IP, port int) (*Listener, error) {
	lc := net.ListenConfig{}
	l, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	tcpAddr := l.Addr().(*net.TCPAddr)
	return &Listener{Listener: l, Addr: tcpAddr.IP, Port: tcpAddr.Port}, nil
}

// Accept returns the next completed connection, wrapped in a *Conn.
func (l *Listener) Accept() (*Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

// A PacketConn wraps a UDP socket for the resolver's datagram queries.
type PacketConn struct {
	net.PacketConn
}

// ListenUDP binds a UDP socket on addr:port.
func ListenUDP(addr net.IP, port int) (*PacketConn, error) {
	c, err := net.ListenUDP("udp", &net.UDPAddr{IP: addr, Port: port})
	if err != nil {
		return nil, err
	}
	return &PacketConn{PacketConn: c}, nil
}

// SendTo writes a single datagram to dst.
func (p *PacketConn) SendTo(dst net.Addr, b []byte) error {
	_, err := p.WriteTo(b, dst)
	return err
}
