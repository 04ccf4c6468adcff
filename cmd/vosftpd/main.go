// Command vosftpd serves a directory tree over passive-mode FTP.
package main

import (
	"flag"
	"log"
	"net"

	"aqwari.net/net/vosftp"
)

func main() {
	addr := flag.String("addr", ":2121", "address to listen on")
	root := flag.String("root", ".", "directory to serve")
	anon := flag.Bool("anonymous", true, "accept any USER/PASS without checking credentials")
	flag.Parse()

	srv, err := vosftp.Open(*root)
	if err != nil {
		log.Fatalf("vosftpd: %v", err)
	}
	srv.Logger = log.Default()
	if *anon {
		srv.AuthMode = vosftp.Anonymous
	} else {
		srv.AuthMode = vosftp.PasswordRequired
	}

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("vosftpd: %v", err)
	}
	log.Printf("vosftpd: serving %s on %s", *root, l.Addr())
	log.Fatal(srv.Serve(l))
}
