/*
Package vosftp implements a passive-mode FTP server backed by a
statically scanned directory tree, plus a small stub DNS resolver used
to look up upstream addresses.

A Server is created with Open, which scans a root directory into an
in-memory tree (package dirtree) and returns a Server ready to accept
connections:

	srv, err := vosftp.Open("/srv/ftp")
	if err != nil {
		log.Fatal(err)
	}
	srv.AuthMode = vosftp.Anonymous
	l, err := net.Listen("tcp", ":2121")
	if err != nil {
		log.Fatal(err)
	}
	log.Fatal(srv.Serve(l))

Each accepted connection is served in its own goroutine reading one
command line at a time and dispatching it through a fixed verb table;
within a connection, replies are always delivered in command order.

The companion package resolver implements the DNS client the server's
operators use to look up addresses it does not serve directly; it does
not participate in the FTP protocol itself.
*/
package vosftp
