package mailparse

import (
	"errors"
	"io"
	"mime"
	"regexp"
	"strings"

	"parcel-form-autofill/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

var emailAddressRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var errPartFound = errors.New("html part found")

// Parse normalizes a fetched IMAP message, including its HTML body when it has one.
func Parse(msg *imap.Message) (*models.Email, error) {
	section := &imap.BodySectionName{}
	r := msg.GetBody(section)
	if r == nil {
		return nil, io.EOF
	}

	entity, err := readEntity(r)
	if err != nil {
		return nil, err
	}

	email := &models.Email{
		UID:          msg.Uid,
		InternalDate: msg.InternalDate,
		TraceID:      uuid.New().String(),
	}

	header := mail.Header{Header: entity.Header}

	// Extract From
	email.From = extractEmailAddress(header.Get("From"))

	// Decode Subject, keeping the raw value if it is malformed
	subject := header.Get("Subject")
	if decoded, err := DecodeHeader(subject); err == nil {
		subject = decoded
	}
	email.Subject = subject

	html, _, err := findHTML(entity)
	if err != nil {
		return nil, err
	}
	email.HTMLBody = html

	return email, nil
}

// ExtractHTML returns the first text/html part of the raw message in r, decoded to UTF-8.
// The boolean is false when the message has no non-empty HTML part.
func ExtractHTML(r io.Reader) (string, bool, error) {
	entity, err := readEntity(r)
	if err != nil {
		return "", false, err
	}
	return findHTML(entity)
}

func readEntity(r io.Reader) (*message.Entity, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, err
	}
	return entity, nil
}

// findHTML walks the MIME tree depth-first. A non-multipart message is its own single part.
func findHTML(entity *message.Entity) (string, bool, error) {
	var html string
	err := entity.Walk(func(path []int, part *message.Entity, err error) error {
		mediaType, _, ctErr := part.Header.ContentType()
		if ctErr != nil || mediaType != "text/html" {
			return nil
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			return readErr
		}
		html = decodeUTF8(body)
		return errPartFound
	})
	if err != nil && !errors.Is(err, errPartFound) {
		return "", false, err
	}

	return html, html != "", nil
}

// decodeUTF8 replaces invalid byte sequences with U+FFFD. Bodies whose declared
// charset could not be converted arrive here as raw bytes.
func decodeUTF8(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// extractEmailAddress pulls the bare address out of a From header that may contain a display name
func extractEmailAddress(fromHeader string) string {
	return emailAddressRe.FindString(fromHeader)
}

// DecodeHeader decodes MIME-encoded headers (e.g., "=?UTF-8?B?...?=") to plain text
func DecodeHeader(encoded string) (string, error) {
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(encoded)
	if err != nil {
		return "", err
	}
	return decoded, nil
}
