package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/source"
)

// ErrMalformed marks a remote item that cannot be turned into a record.
var ErrMalformed = errors.New("malformed message")

// Normalize extracts a record from raw. The received time and the sender
// are required; everything else is optional.
func Normalize(raw *source.RawMessage, label string) (model.Message, error) {
	if raw == nil {
		return model.Message{}, fmt.Errorf("%w: nil item", ErrMalformed)
	}
	if raw.Received.IsZero() {
		return model.Message{}, fmt.Errorf("%w: item %s has no received time", ErrMalformed, raw.ID)
	}
	if raw.Sender == nil || raw.Sender.Addr == "" {
		return model.Message{}, fmt.Errorf("%w: item %s has no sender", ErrMalformed, raw.ID)
	}

	msg := model.Message{
		ReceivedAt: raw.Received.UTC().Truncate(time.Second),
		Sender:     raw.Sender.String(),
		To:         source.FormatAddresses(raw.To),
		Cc:         source.FormatAddresses(raw.Cc),
		Folder:     label,
	}
	if raw.Subject != nil {
		msg.Subject = *raw.Subject
	}
	if raw.Body != nil {
		msg.Body = *raw.Body
	}
	return msg, nil
}
