package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"google.golang.org/api/gmail/v1"

	"github.com/nhle/mailmirror/internal/source"
)

// toRaw converts a Gmail message fetched in "full" format.
func toRaw(folder source.Folder, msg *gmail.Message) *source.RawMessage {
	raw := &source.RawMessage{
		ID:     msg.Id,
		Folder: folder,
	}
	if msg.InternalDate > 0 {
		raw.Received = time.UnixMilli(msg.InternalDate).UTC()
	}
	if msg.Payload == nil {
		return raw
	}

	var h mail.Header
	for _, header := range msg.Payload.Headers {
		h.Add(header.Name, header.Value)
	}

	if from := addresses(h, "From"); len(from) > 0 {
		raw.Sender = &from[0]
	}
	raw.To = addresses(h, "To")
	raw.Cc = addresses(h, "Cc")
	if subject, err := h.Subject(); err == nil && subject != "" {
		raw.Subject = &subject
	}

	if body, ok := findBody(msg.Payload, "text/html"); ok {
		raw.Body = &body
	} else if body, ok := findBody(msg.Payload, "text/plain"); ok {
		raw.Body = &body
	}

	return raw
}

// addresses parses an address list header. Unparseable values are
// dropped.
func addresses(h mail.Header, key string) []source.Address {
	list, err := h.AddressList(key)
	if err != nil || len(list) == 0 {
		return nil
	}
	out := make([]source.Address, 0, len(list))
	for _, a := range list {
		out = append(out, source.Address{Name: a.Name, Addr: a.Address})
	}
	return out
}

// findBody returns the first part of the given MIME type, depth first.
func findBody(part *gmail.MessagePart, mimeType string) (string, bool) {
	if strings.EqualFold(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		if data, err := decodeData(part.Body.Data); err == nil {
			return string(data), true
		}
	}
	for _, child := range part.Parts {
		if body, ok := findBody(child, mimeType); ok {
			return body, true
		}
	}
	return "", false
}

// decodeData decodes a base64url body, with or without padding.
func decodeData(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
