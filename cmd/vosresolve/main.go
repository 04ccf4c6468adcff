// Command vosresolve sends a single DNS query to one or more servers
// and prints the answers it receives, for smoke-testing the resolver
// package against a live server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"aqwari.net/net/vosftp/dnswire"
	"aqwari.net/net/vosftp/resolver"
)

func main() {
	servers := flag.String("servers", "8.8.8.8:53", "comma-separated list of host:port DNS servers to query")
	timeout := flag.Duration("timeout", 3*time.Second, "per-attempt timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: vosresolve [flags] <name>")
	}
	qname := flag.Arg(0)

	cfg := resolver.DefaultConfig(strings.Split(*servers, ",")...)
	cfg.Timeout = *timeout
	r := resolver.New(cfg)

	msg, err := r.Query(context.Background(), qname, dnswire.TypeA, dnswire.ClassIN)
	if err != nil {
		log.Fatalf("vosresolve: %v", err)
	}
	for _, rr := range msg.Answer {
		fmt.Printf("%s\t%s\n", rr.Name, rr.Text)
	}
}
