package email

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailmirror/internal/source"
)

// toRaw converts fetched IMAP data into a source.RawMessage. Fields the
// server did not provide stay nil or zero.
func toRaw(
	folder source.Folder,
	uid imap.UID,
	env *imap.Envelope,
	internalDate time.Time,
	rawBody []byte,
) *source.RawMessage {
	msg := &source.RawMessage{
		ID:       strconv.FormatUint(uint64(uid), 10),
		Folder:   folder,
		Received: internalDate,
	}

	if env != nil {
		switch {
		case len(env.From) > 0:
			sender := toAddress(env.From[0])
			msg.Sender = &sender
		case len(env.Sender) > 0:
			sender := toAddress(env.Sender[0])
			msg.Sender = &sender
		}
		msg.To = toAddresses(env.To)
		msg.Cc = toAddresses(env.Cc)
		if env.Subject != "" {
			subject := env.Subject
			msg.Subject = &subject
		}
		if msg.Received.IsZero() {
			msg.Received = env.Date
		}
	}

	if rawBody != nil {
		body := extractBody(rawBody)
		msg.Body = &body
	}

	return msg
}

func toAddress(a imap.Address) source.Address {
	return source.Address{Name: a.Name, Addr: a.Addr()}
}

func toAddresses(in []imap.Address) []source.Address {
	if len(in) == 0 {
		return nil
	}
	out := make([]source.Address, 0, len(in))
	for _, a := range in {
		// Group syntax markers carry no mailbox.
		if a.IsGroupStart() || a.IsGroupEnd() {
			continue
		}
		out = append(out, toAddress(a))
	}
	return out
}

// extractBody parses a raw RFC 5322 message and returns its HTML part,
// falling back to the plain text part. Unparseable input is returned as
// is.
func extractBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		}
	}

	if htmlBody != "" {
		return htmlBody
	}
	return textBody
}
