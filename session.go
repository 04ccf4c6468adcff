package vosftp

import (
	"aqwari.net/net/vosftp/dirtree"
	"aqwari.net/net/vosftp/netio"
)

// State is a session's position in the small login state machine:
// Connected (not yet authenticated) or LoggedIn.
type State int

const (
	StateConnected State = iota
	StateLoggedIn
)

// A Session is one FTP client connection. It owns its control socket
// and, for the lifetime of a single LIST/RETR/STOR, a PASV listener and
// its accepted peer.
type Session struct {
	srv *Server

	ctrl  *netio.Conn
	state State

	user string // remembered between USER and PASS in PasswordRequired mode

	lastCommand    string
	currentCommand string

	cwdText string
	cwdNode int

	pasvListener *netio.Listener
	pasvPeer     *netio.Conn
	nextPasvPort int

	renameFrom string // pending RNFR argument, valid only if lastCommand == "RNFR"

	replyCode   int
	replyText   string
	replySuffix string
}

func newSession(srv *Server, ctrl *netio.Conn) *Session {
	return &Session{
		srv:          srv,
		ctrl:         ctrl,
		state:        StateConnected,
		cwdText:      "/",
		cwdNode:      srv.tree.Root(),
		nextPasvPort: pasvBasePort,
	}
}

// setReply stages a reply to be flushed after the handler returns.
func (s *Session) setReply(code int, text string) {
	s.replyCode = code
	s.replyText = text
	s.replySuffix = ""
}

func (s *Session) setReplyWithSuffix(code int, text, suffix string) {
	s.replyCode = code
	s.replyText = text
	s.replySuffix = suffix
}

// closePasv tears down both halves of a PASV data connection,
// regardless of which command opened them or how it ended. It is
// called on every exit path of every data-transferring command so
// resources never outlive the command that allocated them.
func (s *Session) closePasv() {
	if s.pasvPeer != nil {
		s.pasvPeer.Close()
		s.pasvPeer = nil
	}
	if s.pasvListener != nil {
		s.pasvListener.Close()
		s.pasvListener = nil
	}
}

// pathForNode re-derives a node's client-visible path by walking parent
// pointers, used after CWD/CDUP to refresh cwdText.
func (s *Session) pathForNode(node int) string {
	return s.srv.tree.Path(node)
}

// tree is a convenience accessor so handlers can read the server's
// directory tree without reaching through srv directly.
func (s *Session) tree() *dirtree.Tree { return s.srv.tree }
