// Package imaptest runs an in-memory IMAP server for tests.
package imaptest

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// Credentials accepted by the memory backend
const (
	Username = "username"
	Password = "password"
)

// Server is a plain-text IMAP server backed by memory.Backend
type Server struct {
	Addr  string
	inbox *memory.Mailbox
}

// NewServer starts a server that is shut down when the test ends.
// The INBOX starts with one already-seen message from the backend's fixture.
func NewServer(t *testing.T) *Server {
	t.Helper()

	be := memory.New()
	user, err := be.Login(nil, Username, Password)
	if err != nil {
		t.Fatalf("memory backend login: %v", err)
	}
	mbox, err := user.GetMailbox("INBOX")
	if err != nil {
		t.Fatalf("memory backend inbox: %v", err)
	}

	s := server.New(be)
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	return &Server{Addr: l.Addr().String(), inbox: mbox.(*memory.Mailbox)}
}

// Deliver appends a raw RFC 5322 message to the INBOX. Call it before clients connect.
func (s *Server) Deliver(t *testing.T, raw string, flags ...string) {
	t.Helper()
	if err := s.inbox.CreateMessage(flags, time.Now(), bytes.NewBufferString(raw)); err != nil {
		t.Fatalf("deliver message: %v", err)
	}
}

// Dial connects without TLS
func Dial(addr string) (*client.Client, error) {
	return client.Dial(addr)
}

// Flags reports the flags of the message with uid using a fresh client session
func (s *Server) Flags(t *testing.T, uid uint32) []string {
	t.Helper()

	c, err := client.Dial(s.Addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.Logout() }()

	if err := c.Login(Username, Password); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := c.Select("INBOX", true); err != nil {
		t.Fatalf("select: %v", err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	messages := make(chan *imap.Message, 1)
	if err := c.UidFetch(seqSet, []imap.FetchItem{imap.FetchFlags, imap.FetchUid}, messages); err != nil {
		t.Fatalf("fetch flags: %v", err)
	}
	for m := range messages {
		return m.Flags
	}
	t.Fatalf("no message with UID %d", uid)
	return nil
}

// HasFlag reports whether flag is in flags
func HasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
