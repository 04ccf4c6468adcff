package vosftp

import (
	"net"
	"runtime"
	"time"

	"aqwari.net/retry"

	"aqwari.net/net/vosftp/dirtree"
	"aqwari.net/net/vosftp/internal/threadsafe"
	"aqwari.net/net/vosftp/internal/util"
	"aqwari.net/net/vosftp/netio"
)

// pasvBasePort is the default nextPasvPort a session starts from, and
// the port PASV allocation wraps back to once it walks off the top of
// the port range, per the ">= 65536" wraparound rule.
const pasvBasePort = 49152

// AuthMode selects how USER/PASS are evaluated.
type AuthMode int

const (
	// Anonymous accepts any USER unconditionally.
	Anonymous AuthMode = iota
	// PasswordRequired checks credentials via Server.Authenticate.
	PasswordRequired
)

// Logger receives diagnostic output during a server's operation. It is
// satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...interface{})
}

// A Server holds the directory tree served to every client and the
// login policy sessions are checked against.
type Server struct {
	// AuthMode selects Anonymous or PasswordRequired login.
	AuthMode AuthMode
	// Authenticate is consulted for every PASS command when AuthMode
	// is PasswordRequired. It is never called in Anonymous mode.
	Authenticate func(user, pass string) bool
	// Logger receives diagnostics; if nil, nothing is logged.
	Logger Logger

	tree     *dirtree.Tree
	sessions *threadsafe.Map
}

// Open scans rootPath (unlimited depth) and returns a Server ready to
// accept connections rooted there.
func Open(rootPath string) (*Server, error) {
	tree, err := dirtree.Open(rootPath, -1)
	if err != nil {
		return nil, err
	}
	return &Server{tree: tree, sessions: threadsafe.NewMap()}, nil
}

// ConnCount reports the number of control connections currently being
// served.
func (s *Server) ConnCount() int {
	n := 0
	s.sessions.Do(func(m map[interface{}]interface{}) { n = len(m) })
	return n
}

func (s *Server) logf(format string, v ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, v...)
	}
}

// Serve accepts connections on l until it returns a non-temporary
// error. Each accepted connection is served in its own goroutine: the
// Go-native stand-in for the single-threaded readiness loop the
// original server used, per the permission to replace a level-triggered
// select design with the target language's native readiness facility.
// The external contract — one command processed per line read, no
// blocking inside a handler beyond a single PASV burst — is unchanged.
func (s *Server) Serve(l net.Listener) error {
	backoff := retry.Exponential(time.Millisecond).Max(time.Second)
	try := 0

	for {
		rwc, err := l.Accept()
		if err != nil {
			if util.IsTempErr(err) {
				try++
				wait := backoff(try)
				s.logf("vosftp: accept error: %v; retrying in %v", err, wait)
				time.Sleep(wait)
				continue
			}
			return err
		}
		try = 0
		go s.serveConn(rwc)
	}
}

func (s *Server) serveConn(rwc net.Conn) {
	ctrl := netio.NewConn(rwc)
	sess := newSession(s, ctrl)
	s.sessions.Put(sess, rwc.RemoteAddr())
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			s.logf("vosftp: panic serving %v: %v\n%s", rwc.RemoteAddr(), r, buf)
		}
		s.sessions.Del(sess)
		sess.closePasv()
		ctrl.Close()
	}()

	writeReply(sess, 220, "vosftp ready", "")
	for {
		line, err := ctrl.ReadLine()
		if line == "" && err != nil {
			return
		}
		verb, arg := parseCommand(line)
		sess.currentCommand = verb
		dispatch(sess, verb, arg)
		flushReply(sess)
		sess.lastCommand = sess.currentCommand
		if verb == "QUIT" {
			return
		}
		if err != nil {
			return
		}
	}
}
