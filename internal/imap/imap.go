package imap

import (
	"errors"

	"github.com/emersion/go-imap"
)

// Failure classes reported by Client implementations
var (
	ErrNotConnected   = errors.New("not connected")
	ErrConnection     = errors.New("IMAP connection error")
	ErrAuthentication = errors.New("IMAP authentication error")
	ErrSelect         = errors.New("IMAP mailbox selection error")
	ErrSearch         = errors.New("IMAP search error")
	ErrFetch          = errors.New("IMAP fetch error")
	ErrMarkSeen       = errors.New("IMAP store error")
)

// Client is the mailbox surface used by the processor. Message references are UIDs.
type Client interface {
	Connect(server string) error
	Login(user, password string) error
	SelectMailbox(name string) error
	ListUnseenFrom(sender string) ([]uint32, error)
	FetchMessage(uid uint32) (*imap.Message, error)
	MarkSeen(uid uint32) error
	Close() error
}
