package vosftp

import (
	"aqwari.net/net/vosftp/buffer"
	"aqwari.net/net/vosftp/ftpcmd"
)

// parseCommand adapts ftpcmd.Parse for the server loop.
func parseCommand(line string) (verb, arg string) {
	return ftpcmd.Parse(line)
}

// writeReply formats and sends a reply immediately, bypassing the
// staged replyCode/replyText/replySuffix fields. It is used for the
// greeting, which is sent before any command has been dispatched.
func writeReply(s *Session, code int, text, suffix string) {
	s.setReplyWithSuffix(code, text, suffix)
	flushReply(s)
}

// flushReply sends the session's staged reply and clears it. Every
// reply begins with a 3-digit code, a space, the message, and CRLF;
// commands whose contract defines a suffix (150, 200, 227, 257, 550,
// 553) have it appended after a space.
func flushReply(s *Session) {
	if s.replyCode == 0 {
		return
	}
	var line buffer.Buffer
	line.AppendInt(int64(s.replyCode), 10)
	line.AppendByte(' ')
	line.AppendString(s.replyText)
	if s.replySuffix != "" {
		line.AppendByte(' ')
		line.AppendString(s.replySuffix)
	}
	line.AppendString("\r\n")
	s.ctrl.Send(line.Bytes())
	s.replyCode = 0
	s.replyText = ""
	s.replySuffix = ""
}

// encodePasvAddress renders addr:port as the "=h1,h2,h3,h4,p1,p2" text
// a 227 reply carries, leading "=" included for legacy clients.
func encodePasvAddress(ip [4]byte, port int) string {
	p1 := (port >> 8) & 0xFF
	p2 := port & 0xFF
	var b buffer.Buffer
	b.Printf("=%d,%d,%d,%d,%d,%d", int(ip[0]), int(ip[1]), int(ip[2]), int(ip[3]), p1, p2)
	return b.String()
}
