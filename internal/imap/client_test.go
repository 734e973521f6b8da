package imap

import (
	"errors"
	"io"
	"testing"

	"parcel-form-autofill/internal/imap/imaptest"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parcelMail = "From: Mail Room <parcels@mailroom.test>\r\n" +
	"To: me@test.com\r\n" +
	"Subject: A package is waiting\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p><strong>Tracking No:</strong> XYZ789</p>"

const otherMail = "From: someone@else.test\r\n" +
	"To: me@test.com\r\n" +
	"Subject: Hello\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"hi"

func connectedClient(t *testing.T, srv *imaptest.Server) *StandardClient {
	t.Helper()
	c := NewStandardClient(WithDialer(imaptest.Dial))
	require.NoError(t, c.Connect(srv.Addr))
	require.NoError(t, c.Login(imaptest.Username, imaptest.Password))
	require.NoError(t, c.SelectMailbox("INBOX"))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestListUnseenFrom(t *testing.T) {
	srv := imaptest.NewServer(t)
	srv.Deliver(t, parcelMail)                // UID 7
	srv.Deliver(t, otherMail)                 // UID 8
	srv.Deliver(t, parcelMail, imap.SeenFlag) // UID 9
	srv.Deliver(t, parcelMail)                // UID 10

	c := connectedClient(t, srv)

	uids, err := c.ListUnseenFrom("parcels@mailroom.test")
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 10}, uids)

	uids, err = c.ListUnseenFrom("nobody@nowhere.test")
	require.NoError(t, err)
	assert.Empty(t, uids)
}

func TestFetchMessage_DoesNotMarkSeen(t *testing.T) {
	srv := imaptest.NewServer(t)
	srv.Deliver(t, parcelMail)

	c := connectedClient(t, srv)

	msg, err := c.FetchMessage(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), msg.Uid)

	body := msg.GetBody(&imap.BodySectionName{})
	require.NotNil(t, body)
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "XYZ789")

	assert.False(t, imaptest.HasFlag(srv.Flags(t, 7), imap.SeenFlag))
}

func TestFetchMessage_Unknown(t *testing.T) {
	srv := imaptest.NewServer(t)
	c := connectedClient(t, srv)

	_, err := c.FetchMessage(4242)
	assert.True(t, errors.Is(err, ErrFetch), "got %v", err)
}

func TestMarkSeen(t *testing.T) {
	srv := imaptest.NewServer(t)
	srv.Deliver(t, parcelMail)
	srv.Deliver(t, parcelMail)

	c := connectedClient(t, srv)
	require.NoError(t, c.MarkSeen(8))

	assert.True(t, imaptest.HasFlag(srv.Flags(t, 8), imap.SeenFlag))
	assert.False(t, imaptest.HasFlag(srv.Flags(t, 7), imap.SeenFlag))

	uids, err := c.ListUnseenFrom("parcels@mailroom.test")
	require.NoError(t, err)
	assert.Equal(t, []uint32{7}, uids)
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := imaptest.NewServer(t)

	c := NewStandardClient(WithDialer(imaptest.Dial))
	require.NoError(t, c.Connect(srv.Addr))
	defer func() { _ = c.Close() }()

	err := c.Login(imaptest.Username, "wrong")
	assert.True(t, errors.Is(err, ErrAuthentication), "got %v", err)
}

func TestConnect_Refused(t *testing.T) {
	c := NewStandardClient(WithDialer(imaptest.Dial))
	err := c.Connect("127.0.0.1:1")
	assert.True(t, errors.Is(err, ErrConnection), "got %v", err)
	assert.NoError(t, c.Close())
}

func TestNotConnected(t *testing.T) {
	c := NewStandardClient()

	assert.ErrorIs(t, c.Login("u", "p"), ErrNotConnected)
	assert.ErrorIs(t, c.SelectMailbox("INBOX"), ErrNotConnected)
	_, err := c.ListUnseenFrom("x@y.z")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.FetchMessage(1)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.MarkSeen(1), ErrNotConnected)
	assert.NoError(t, c.Close())
}

func TestClose_WithoutSelect(t *testing.T) {
	srv := imaptest.NewServer(t)

	c := NewStandardClient(WithDialer(imaptest.Dial))
	require.NoError(t, c.Connect(srv.Addr))
	require.NoError(t, c.Login(imaptest.Username, imaptest.Password))
	assert.NoError(t, c.Close())
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "imap.gmail.com", want: "imap.gmail.com:993"},
		{in: "imap.gmail.com:1993", want: "imap.gmail.com:1993"},
		{in: "127.0.0.1", want: "127.0.0.1:993"},
		{in: "::1", want: "[::1]:993"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, serverAddr(tt.in))
		})
	}
}
