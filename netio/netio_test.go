package netio_test

import (
	"net"
	"testing"

	"aqwari.net/net/vosftp/netio"
)

func TestReadLineLFOnly(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	go func() {
		cli.Write([]byte("USER anonymous\nPASS x\n"))
	}()

	c := netio.NewConn(srv)
	line, err := c.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if line != "USER anonymous" {
		t.Errorf("line = %q, want %q", line, "USER anonymous")
	}
	line, err = c.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if line != "PASS x" {
		t.Errorf("line = %q, want %q", line, "PASS x")
	}
}

func TestReadLineCRLF(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	go func() {
		cli.Write([]byte("220 ready\r\nUSER anonymous\r\n"))
	}()

	c := netio.NewConn(srv)
	line, err := c.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if line != "220 ready" {
		t.Errorf("line = %q, want %q", line, "220 ready")
	}
	line, err = c.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if line != "USER anonymous" {
		t.Errorf("line = %q, want %q", line, "USER anonymous")
	}
}

func TestListenTCPRecordsBindAddress(t *testing.T) {
	l, err := netio.ListenTCP(net.ParseIP("127.0.0.1"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if l.Port == 0 {
		t.Error("Listener.Port = 0, want an assigned ephemeral port")
	}
	if !l.Addr.Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("Listener.Addr = %v, want 127.0.0.1", l.Addr)
	}
}
