package imap

import (
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// DefaultPort is used when the server address carries no port
const DefaultPort = "993"

// Dialer opens a connection to addr
type Dialer func(addr string) (*client.Client, error)

type StandardClient struct {
	client  *client.Client
	dial    Dialer
	timeout time.Duration
}

// Option customizes a StandardClient
type Option func(*StandardClient)

// WithDialer replaces the TLS dialer, e.g. to reach a plain-text test server
func WithDialer(d Dialer) Option {
	return func(c *StandardClient) { c.dial = d }
}

// WithTimeout sets the timeout applied to fetch commands
func WithTimeout(d time.Duration) Option {
	return func(c *StandardClient) { c.timeout = d }
}

// NewStandardClient creates a new StandardClient with a default timeout of 30 seconds for IMAP operations
func NewStandardClient(opts ...Option) *StandardClient {
	c := &StandardClient{
		dial: func(addr string) (*client.Client, error) {
			return client.DialTLS(addr, nil)
		},
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes a secure connection to the IMAP server. Port 993 is assumed when server has none.
func (c *StandardClient) Connect(server string) error {
	cl, err := c.dial(serverAddr(server))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	c.client = cl
	return nil
}

// Login authenticates the user with the IMAP server using the provided username and password.
func (c *StandardClient) Login(user, password string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	if err := c.client.Login(user, password); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return nil
}

// SelectMailbox selects the mailbox in read-write mode so flags can be updated later.
func (c *StandardClient) SelectMailbox(name string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	if _, err := c.client.Select(name, false); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSelect, name, err)
	}
	return nil
}

// ListUnseenFrom returns the UIDs of unseen messages whose From header matches sender, in server order.
func (c *StandardClient) ListUnseenFrom(sender string) ([]uint32, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Header.Add("From", sender)

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}

	return uids, nil
}

// FetchMessage retrieves the full message for uid with BODY.PEEK[], leaving its \Seen flag untouched.
func (c *StandardClient) FetchMessage(uid uint32) (*imap.Message, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid}

	prevTimeout := c.client.Timeout
	c.client.Timeout = c.timeout
	defer func() { c.client.Timeout = prevTimeout }()

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: UID %d: %v", ErrFetch, uid, err)
	}

	if msg == nil {
		return nil, fmt.Errorf("%w: no message retrieved for UID %d", ErrFetch, uid)
	}

	return msg, nil
}

// MarkSeen sets the \Seen flag on uid.
func (c *StandardClient) MarkSeen(uid uint32) error {
	if c.client == nil {
		return ErrNotConnected
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := c.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("%w: UID %d: %v", ErrMarkSeen, uid, err)
	}
	return nil
}

// Close closes the selected mailbox, when there is one, and logs out. The first error is returned.
func (c *StandardClient) Close() error {
	if c.client == nil {
		return nil
	}

	var closeErr error
	if c.client.State() == imap.SelectedState {
		closeErr = c.client.Close()
	}
	logoutErr := c.client.Logout()
	c.client = nil

	if closeErr != nil {
		return closeErr
	}
	return logoutErr
}

func serverAddr(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, DefaultPort)
}
