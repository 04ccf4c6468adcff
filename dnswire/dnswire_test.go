package dnswire_test

import (
	"encoding/binary"
	"testing"

	"aqwari.net/net/vosftp/dnswire"
)

func TestEncodeDecodeQuestionRoundTrip(t *testing.T) {
	msg, err := dnswire.EncodeQuery(0xBEEF, "www.example.com", dnswire.TypeA, dnswire.ClassIN)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := dnswire.Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ID != 0xBEEF {
		t.Errorf("ID = %#x, want %#x", decoded.ID, 0xBEEF)
	}
	if decoded.Flags != dnswire.FlagRD {
		t.Errorf("Flags = %#x, want %#x", decoded.Flags, dnswire.FlagRD)
	}
	if len(decoded.Question) != 1 {
		t.Fatalf("len(Question) = %d, want 1", len(decoded.Question))
	}
	q := decoded.Question[0]
	if q.Name != "www.example.com" {
		t.Errorf("Name = %q, want %q", q.Name, "www.example.com")
	}
	if q.Type != dnswire.TypeA || q.Class != dnswire.ClassIN {
		t.Errorf("Type/Class = %d/%d, want %d/%d", q.Type, q.Class, dnswire.TypeA, dnswire.ClassIN)
	}
}

// buildCompressedReply hand-assembles a response to a query for
// www.example.com with one CNAME pointing back at the question name
// and one A record whose name points at the CNAME's rdata.
func buildCompressedReply(qid uint16) []byte {
	var msg []byte
	put16 := func(v uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], v)
		msg = append(msg, b[:]...)
	}
	put32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		msg = append(msg, b[:]...)
	}

	put16(qid)             // id
	put16(dnswire.FlagQR)  // flags: response, rcode 0
	put16(1)               // qdcount
	put16(2)                // ancount
	put16(0)                // nscount
	put16(0)                // arcount

	qNameOffset := len(msg)
	msg = append(msg, 3, 'w', 'w', 'w', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0)
	put16(dnswire.TypeA)
	put16(dnswire.ClassIN)

	// CNAME record: name is a pointer back to the question name;
	// rdata is itself a pointer back to the question name too
	// (cname target == original name, for simplicity of this fixture).
	cnameRecOffset := len(msg)
	put16(0xC000 | uint16(qNameOffset))
	put16(dnswire.TypeCNAME)
	put16(dnswire.ClassIN)
	put32(300)
	cnameRdataOffset := len(msg) + 2
	put16(2) // rdlength: one 2-byte pointer
	put16(0xC000 | uint16(qNameOffset))

	// A record: name is a pointer to the CNAME record's rdata.
	put16(0xC000 | uint16(cnameRdataOffset))
	put16(dnswire.TypeA)
	put16(dnswire.ClassIN)
	put32(300)
	put16(4)
	msg = append(msg, 1, 2, 3, 4)

	_ = cnameRecOffset
	return msg
}

func TestDecodeCompressedCNAMEAndA(t *testing.T) {
	msg := buildCompressedReply(0x1111)
	decoded, err := dnswire.Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Answer) != 2 {
		t.Fatalf("len(Answer) = %d, want 2", len(decoded.Answer))
	}
	cname := decoded.Answer[0]
	if cname.Type != dnswire.TypeCNAME {
		t.Fatalf("Answer[0].Type = %d, want CNAME", cname.Type)
	}
	if cname.Name != "www.example.com" {
		t.Errorf("CNAME record Name = %q, want %q", cname.Name, "www.example.com")
	}
	if cname.Text != "www.example.com" {
		t.Errorf("CNAME record Text = %q, want %q", cname.Text, "www.example.com")
	}

	a := decoded.Answer[1]
	if a.Type != dnswire.TypeA {
		t.Fatalf("Answer[1].Type = %d, want A", a.Type)
	}
	if a.Name != "www.example.com" {
		t.Errorf("A record Name = %q, want %q", a.Name, "www.example.com")
	}
	if a.Text != "1.2.3.4" {
		t.Errorf("A record Text = %q, want %q", a.Text, "1.2.3.4")
	}
}

func TestDecodeRejectsPointerLoop(t *testing.T) {
	var msg []byte
	put16 := func(v uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], v)
		msg = append(msg, b[:]...)
	}
	put16(1)
	put16(dnswire.FlagQR)
	put16(1)
	put16(0)
	put16(0)
	put16(0)

	// A name whose label at HeaderLen points at itself: this is
	// the classic loop a decoder must detect and reject instead
	// of spinning forever.
	loopOffset := len(msg)
	put16(0xC000 | uint16(loopOffset))
	put16(dnswire.TypeA)
	put16(dnswire.ClassIN)

	if _, err := dnswire.Decode(msg); err == nil {
		t.Fatal("Decode of self-referential compression pointer succeeded, want error")
	}
}

func TestDecodeTruncatedFlag(t *testing.T) {
	var msg []byte
	put16 := func(v uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], v)
		msg = append(msg, b[:]...)
	}
	put16(1)
	put16(dnswire.FlagQR | dnswire.FlagTC)
	put16(0)
	put16(0)
	put16(0)
	put16(0)

	decoded, err := dnswire.Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Truncated() {
		t.Fatal("Truncated() = false, want true")
	}
}
