package model

import "time"

// TimeLayout is the on-disk and display layout for message timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Folder labels for the two folders every sync run includes.
const (
	FolderInbox = "Inbox"
	FolderSent  = "Sent"
)

// ArchivePrefix prefixes the label of every archive folder.
const ArchivePrefix = "Archive/"

// ArchiveLabel returns the folder label for the archive folder name.
func ArchiveLabel(name string) string {
	return ArchivePrefix + name
}

// Message is a single mirrored mail item as stored in the local cache.
// Messages are written once at ingest time and never modified.
type Message struct {
	// ID is the store-assigned identity, increasing in insertion order.
	ID int64 `json:"id"`

	// ReceivedAt is the time the remote server received the message,
	// in UTC with second precision. It doubles as the dedup key.
	ReceivedAt time.Time `json:"received_at"`

	// Sender is the formatted "Name <address>" of the author.
	Sender string `json:"sender"`

	// To is the comma-joined list of formatted recipients.
	To string `json:"to"`

	// Cc is the comma-joined list of formatted carbon-copy recipients.
	Cc string `json:"cc,omitempty"`

	Subject string `json:"subject,omitempty"`

	// Body is the message content as received, HTML or plain text.
	Body string `json:"body,omitempty"`

	// Folder is the source folder label. Rows cached before folders were
	// tracked carry an empty label.
	Folder string `json:"folder,omitempty"`
}
