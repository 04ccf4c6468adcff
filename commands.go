package vosftp

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"aqwari.net/net/vosftp/buffer"
	"aqwari.net/net/vosftp/dirtree"
	"aqwari.net/net/vosftp/internal/util"
	"aqwari.net/net/vosftp/netio"
)

// handlerFunc implements one FTP verb against a session.
type handlerFunc func(s *Session, arg string)

// noLoginRequired lists the verbs usable before a session reaches
// StateLoggedIn. Every other verb replies 530 if attempted first.
var noLoginRequired = map[string]bool{
	"USER": true, "PASS": true, "SYST": true, "QUIT": true,
}

var commandTable = map[string]handlerFunc{
	"USER": cmdUSER,
	"PASS": cmdPASS,
	"SYST": cmdSYST,
	"TYPE": cmdTYPE,
	"MODE": cmdMODE,
	"STRU": cmdSTRU,
	"FEAT": cmdFEAT,
	"SIZE": cmdSIZE,
	"MDTM": cmdMDTM,
	"PWD":  cmdPWD,
	"CWD":  cmdCWD,
	"CDUP": cmdCDUP,
	"PASV": cmdPASV,
	"LIST": cmdLIST,
	"NLST": cmdNLST,
	"RETR": cmdRETR,
	"STOR": cmdSTOR,
	"DELE": cmdDELE,
	"RMD":  cmdRMD,
	"MKD":  cmdMKD,
	"RNFR": cmdRNFR,
	"RNTO": cmdRNTO,
	"QUIT": cmdQUIT,
}

// dispatch enforces the login precondition and routes to the command
// table, replying 502 for unrecognized verbs and 530 for commands that
// require a session not yet logged in.
func dispatch(s *Session, verb, arg string) {
	h, ok := commandTable[verb]
	if !ok {
		s.setReply(502, "Command not implemented")
		return
	}
	if !noLoginRequired[verb] && s.state != StateLoggedIn {
		s.setReply(530, "Not logged in")
		return
	}
	h(s, arg)
}

// fail builds a *Error from a kind, operation, and underlying cause,
// logs it through the server's Logger, and stages the given FTP reply.
// It is the bridge between the OS-level errors the handlers see and
// the reply codes a client receives.
func fail(s *Session, kind Kind, op string, err error, code int, text string) {
	e := newError(kind, op, err)
	s.srv.logf("vosftp: %v", e)
	s.setReply(code, text)
}

func cmdUSER(s *Session, arg string) {
	if s.srv.AuthMode == Anonymous {
		s.state = StateLoggedIn
		s.setReply(230, "Logged in")
		return
	}
	s.user = arg
	s.setReply(331, "User name okay, need password")
}

func cmdPASS(s *Session, arg string) {
	if s.lastCommand != "USER" {
		s.setReply(503, "Bad sequence of commands")
		return
	}
	if s.srv.AuthMode == Anonymous {
		s.state = StateLoggedIn
		s.setReply(230, "Logged in")
		return
	}
	if s.srv.Authenticate == nil || !s.srv.Authenticate(s.user, arg) {
		s.setReply(530, "Login incorrect")
		return
	}
	s.state = StateLoggedIn
	s.setReply(230, "Logged in")
}

func cmdSYST(s *Session, arg string) {
	s.setReply(215, "UNIX Type: L8")
}

func cmdTYPE(s *Session, arg string) {
	s.setReply(200, "Type set to I, binary only")
}

func cmdMODE(s *Session, arg string) {
	s.setReply(200, "Mode set to S")
}

func cmdSTRU(s *Session, arg string) {
	s.setReply(200, "Structure set to F")
}

func cmdFEAT(s *Session, arg string) {
	s.ctrl.Send([]byte("211-Features\r\n"))
	s.setReply(211, "End")
}

// followLink redirects node to its LinkTarget when node is a wired
// in-root symlink, so SIZE/MDTM/LIST/NLST report the target's
// attributes and children rather than the symlink's own.
func followLink(tr *dirtree.Tree, node int) int {
	n := tr.Node(node)
	if n.IsLink && n.LinkTarget >= 0 {
		return n.LinkTarget
	}
	return node
}

func cmdSIZE(s *Session, arg string) {
	node, _, _, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(550, "Not found")
		return
	}
	node = followLink(s.tree(), node)
	if s.tree().Node(node).IsDir {
		s.setReply(550, "Not a plain file")
		return
	}
	s.setReply(213, strconv.FormatInt(s.tree().Node(node).Size, 10))
}

func cmdMDTM(s *Session, arg string) {
	node, _, _, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(550, "Not found")
		return
	}
	node = followLink(s.tree(), node)
	s.setReply(213, s.tree().Node(node).ModTime.UTC().Format("20060102150405"))
}

func cmdPWD(s *Session, arg string) {
	s.setReplyWithSuffix(257, quote(s.cwdText), "")
}

func cmdCWD(s *Session, arg string) {
	node, _, _, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(550, "Failed to change directory")
		return
	}
	s.cwdNode = node
	s.cwdText = s.pathForNode(node)
	s.setReply(250, "Directory successfully changed")
}

func cmdCDUP(s *Session, arg string) {
	n := s.tree().Node(s.cwdNode)
	if n.Parent >= 0 {
		s.cwdNode = n.Parent
	}
	s.cwdText = s.pathForNode(s.cwdNode)
	s.setReply(250, "Directory successfully changed")
}

func cmdQUIT(s *Session, arg string) {
	s.setReply(221, "Goodbye")
}

func quote(text string) string {
	return "\"" + strings.ReplaceAll(text, "\"", "\"\"") + "\""
}

// controlLocalIP returns the dotted-quad local address of the control
// socket, used both as the PASV bind address and as the address
// reported in a 227 reply.
func (s *Session) controlLocalIP() net.IP {
	addr, ok := s.ctrl.LocalAddr().(*net.TCPAddr)
	if !ok {
		return net.IPv4(127, 0, 0, 1)
	}
	return addr.IP.To4()
}

// cmdPASV allocates a fresh listener bound to the control socket's
// local address, trying nextPasvPort, nextPasvPort+1, ... wrapping back
// to pasvBasePort once a candidate reaches 65536, until one binds.
func cmdPASV(s *Session, arg string) {
	s.closePasv()
	ip := s.controlLocalIP()
	var ip4 [4]byte
	copy(ip4[:], ip.To4())

	const maxTries = 1 << 16
	for tries := 0; tries < maxTries; tries++ {
		port := s.nextPasvPort
		s.nextPasvPort++
		if s.nextPasvPort >= 65536 {
			s.nextPasvPort = pasvBasePort
		}
		l, err := netio.ListenTCP(ip, port)
		if err != nil {
			continue
		}
		s.pasvListener = l
		s.setReply(227, encodePasvAddress(ip4, port))
		return
	}
	fail(s, KindResourceExhaustion, "PASV", nil, 425, "Cannot open data connection")
}

func cmdLIST(s *Session, arg string) { listOrNames(s, arg, true) }
func cmdNLST(s *Session, arg string) { listOrNames(s, arg, false) }

func listOrNames(s *Session, arg string, long bool) {
	defer s.closePasv()
	node, _, _, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(450, "No such file or directory")
		return
	}
	node = followLink(s.tree(), node)
	if !s.acceptPasvPeer() {
		return
	}

	s.setReply(150, "Here comes the directory listing")
	flushReply(s)

	var buf buffer.Buffer
	n := s.tree().Node(node)
	if !n.IsDir {
		buf.AppendString(listLine(n, long))
		buf.AppendString("\r\n")
	} else {
		for c := n.FirstChild; c >= 0; c = s.tree().Node(c).NextSibling {
			buf.AppendString(listLine(s.tree().Node(c), long))
			buf.AppendString("\r\n")
		}
	}
	w := &util.ErrWriter{W: s.pasvPeer}
	w.Write(buf.Bytes())
	if w.Err != nil {
		s.setReply(426, "Connection closed; transfer aborted")
		return
	}
	s.setReply(226, "Directory send OK")
}

func listLine(n *dirtree.Node, long bool) string {
	if !long {
		return n.Name
	}
	return n.Mode.String() + "\t" + n.Uid + "\t" + n.Gid + "\t" +
		strconv.FormatInt(n.Size, 10) + "\t" + n.ModTime.UTC().Format("Jan 02 15:04") + "\t" + n.Name
}

func cmdRETR(s *Session, arg string) {
	defer s.closePasv()
	node, _, name, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(550, "Failed to open file")
		return
	}
	if !s.acceptPasvPeer() {
		return
	}

	f, err := os.Open(s.tree().RealPath(node))
	if err != nil {
		fail(s, KindTransientIO, "RETR", err, 451, "Local error reading file: "+err.Error())
		return
	}
	defer f.Close()

	s.setReply(150, "Opening BINARY mode data connection for "+name)
	flushReply(s)
	if _, err := io.Copy(s.pasvPeer, f); err != nil {
		s.setReply(426, "Connection closed; transfer aborted")
		return
	}
	s.setReply(226, "Transfer complete")
}

func cmdSTOR(s *Session, arg string) {
	defer s.closePasv()
	_, parent, name, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil {
		s.setReply(550, "Failed to open file")
		return
	}
	if !s.acceptPasvPeer() {
		return
	}

	destPath := filepath.Join(s.tree().RealPath(parent), name)
	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		fail(s, KindPermissionDenied, "STOR", err, 550, err.Error())
		return
	}
	defer f.Close()

	s.setReply(150, "Ok to send data")
	flushReply(s)
	if _, err := io.Copy(f, s.pasvPeer); err != nil {
		s.setReply(426, "Connection closed; transfer aborted")
		return
	}
	if _, err := s.tree().InsertChild(parent, destPath, name); err != nil {
		s.setReply(550, err.Error())
		return
	}
	s.setReply(226, "Transfer complete")
}

func cmdDELE(s *Session, arg string) {
	node, parent, name, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(550, "Not found")
		return
	}
	if err := os.Remove(s.tree().RealPath(node)); err != nil {
		s.setReply(550, err.Error())
		return
	}
	s.tree().RemoveChildByName(parent, name)
	s.setReply(250, "Delete operation successful")
}

func cmdRMD(s *Session, arg string) {
	node, parent, name, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(550, "Not found")
		return
	}
	if err := os.Remove(s.tree().RealPath(node)); err != nil {
		s.setReply(550, err.Error())
		return
	}
	s.tree().RemoveChildByName(parent, name)
	s.setReply(250, "Remove directory operation successful")
}

func cmdMKD(s *Session, arg string) {
	_, parent, name, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil {
		s.setReply(550, "Failed to create directory")
		return
	}
	newPath := filepath.Join(s.tree().RealPath(parent), name)
	if err := os.Mkdir(newPath, 0750); err != nil {
		fail(s, KindAlreadyExists, "MKD", err, 550, err.Error())
		return
	}
	node, err := s.tree().InsertChild(parent, newPath, name)
	if err != nil {
		s.setReply(550, err.Error())
		return
	}
	s.setReplyWithSuffix(257, quote(s.tree().Path(node)), "")
}

func cmdRNFR(s *Session, arg string) {
	node, _, _, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil || node < 0 {
		s.setReply(550, "Not found")
		return
	}
	s.renameFrom = arg
	s.setReply(350, "Ready for RNTO")
}

// cmdRNTO computes the destination path: if arg names an existing
// directory, the source's basename is appended to it; otherwise arg is
// used verbatim. Only the last path segment changing keeps the node in
// place with a new Name; any other change detaches it from its old
// parent and re-inserts it under the new one.
func cmdRNTO(s *Session, arg string) {
	if s.lastCommand != "RNFR" {
		s.setReply(503, "Bad sequence of commands")
		return
	}
	fromNode, fromParent, fromName, err := s.tree().Resolve(s.renameFrom, s.cwdNode)
	if err != nil || fromNode < 0 {
		s.setReply(550, "Source no longer exists")
		return
	}
	fromReal := s.tree().RealPath(fromNode)

	toNode, toParent, toName, err := s.tree().Resolve(arg, s.cwdNode)
	if err != nil {
		s.setReply(553, "Requested action not taken")
		return
	}
	var toReal string
	if toNode >= 0 && s.tree().Node(toNode).IsDir {
		toParent = toNode
		toName = fromName
		toReal = filepath.Join(s.tree().RealPath(toNode), fromName)
	} else {
		toReal = filepath.Join(s.tree().RealPath(toParent), toName)
	}

	if err := os.Rename(fromReal, toReal); err != nil {
		fail(s, KindAlreadyExists, "RNTO", err, 553, err.Error())
		return
	}

	if toParent == fromParent {
		s.tree().Node(fromNode).Name = toName
	} else {
		s.tree().RemoveChildByName(fromParent, fromName)
		s.tree().InsertChild(toParent, toReal, toName)
	}
	s.setReply(250, "Rename successful")
}

// acceptPasvPeer requires a PASV listener to be present, blocks for one
// peer connection on it, and stores the result in pasvPeer. On failure
// it stages a 425 reply and reports false.
func (s *Session) acceptPasvPeer() bool {
	if s.pasvListener == nil {
		s.setReply(425, "Use PASV first")
		return false
	}
	peer, err := s.pasvListener.Accept()
	if err != nil {
		s.setReply(425, "Cannot open data connection")
		return false
	}
	s.pasvPeer = peer
	return true
}
