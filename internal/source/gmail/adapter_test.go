package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/mailmirror/internal/source"
)

// newTestAdapter serves the Gmail API paths used by the adapter from
// handlers keyed by path.
func newTestAdapter(t *testing.T, handlers map[string]http.HandlerFunc) *Adapter {
	t.Helper()

	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := gmail.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"),
	)
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return New(srv, zap.NewNop())
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func TestListFolders(t *testing.T) {
	a := newTestAdapter(t, map[string]http.HandlerFunc{
		"/gmail/v1/users/me/labels": jsonHandler(`{"labels": [
			{"id": "INBOX", "name": "INBOX", "type": "system"},
			{"id": "SENT", "name": "SENT", "type": "system"},
			{"id": "SPAM", "name": "SPAM", "type": "system"},
			{"id": "Label_1", "name": "2020", "type": "user"}
		]}`),
	})

	got, err := a.ListFolders(context.Background())
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}

	want := map[string]string{"Inbox": "INBOX", "Sent": "SENT", "Archive/2020": "Label_1"}
	if len(got) != len(want) {
		t.Fatalf("ListFolders() = %v, want %d folders", got, len(want))
	}
	for label, name := range want {
		if got[label].Name != name {
			t.Errorf("folder %s name = %q, want %q", label, got[label].Name, name)
		}
	}
}

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestIteratorPagesAndMarksGetFailuresTransient(t *testing.T) {
	var pages []string
	a := newTestAdapter(t, map[string]http.HandlerFunc{
		"/gmail/v1/users/me/messages": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("labelIds"); got != "INBOX" {
				t.Errorf("labelIds = %q, want INBOX", got)
			}
			token := r.URL.Query().Get("pageToken")
			pages = append(pages, token)
			w.Header().Set("Content-Type", "application/json")
			if token == "" {
				fmt.Fprint(w, `{"messages": [{"id": "m1"}, {"id": "broken"}], "nextPageToken": "p2"}`)
				return
			}
			fmt.Fprint(w, `{"messages": [{"id": "m3"}]}`)
		},
		"/gmail/v1/users/me/messages/m1": jsonHandler(fmt.Sprintf(`{
			"id": "m1",
			"internalDate": "1609462800000",
			"payload": {
				"mimeType": "multipart/alternative",
				"headers": [
					{"name": "From", "value": "Alice <alice@example.com>"},
					{"name": "To", "value": "bob@example.com, Carol <carol@example.com>"},
					{"name": "Subject", "value": "=?utf-8?q?Caf=C3=A9?="}
				],
				"parts": [
					{"mimeType": "text/plain", "body": {"data": %q}},
					{"mimeType": "text/html", "body": {"data": %q}}
				]
			}
		}`, encode("plain"), encode("<p>html</p>"))),
		"/gmail/v1/users/me/messages/broken": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error": {"code": 404, "message": "gone"}}`, http.StatusNotFound)
		},
		"/gmail/v1/users/me/messages/m3": jsonHandler(`{"id": "m3", "internalDate": "1609376400000"}`),
	})

	ctx := context.Background()
	it, err := a.Items(ctx, source.Folder{Label: "Inbox", Name: "INBOX"})
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	defer it.Close()

	first, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("Next() #1 error = %v", err)
	}
	if first.ID != "m1" {
		t.Errorf("Next() #1 ID = %q, want m1", first.ID)
	}
	if want := time.Date(2021, 1, 1, 1, 0, 0, 0, time.UTC); !first.Received.Equal(want) {
		t.Errorf("Received = %v, want %v", first.Received, want)
	}
	if first.Sender == nil || first.Sender.String() != "Alice <alice@example.com>" {
		t.Errorf("Sender = %v", first.Sender)
	}
	if got := source.FormatAddresses(first.To); got != "bob@example.com,Carol <carol@example.com>" {
		t.Errorf("To = %q", got)
	}
	if first.Subject == nil || *first.Subject != "Café" {
		t.Errorf("Subject = %v, want decoded", first.Subject)
	}
	if first.Body == nil || *first.Body != "<p>html</p>" {
		t.Errorf("Body = %v, want html part", first.Body)
	}

	if _, err := it.Next(ctx); !source.IsTransient(err) {
		t.Errorf("Next() #2 error = %v, want transient", err)
	}

	third, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("Next() #3 error = %v", err)
	}
	if third.ID != "m3" || third.Sender != nil {
		t.Errorf("Next() #3 = %+v, want m3 without sender", third)
	}

	if _, err := it.Next(ctx); !errors.Is(err, source.Done) {
		t.Errorf("Next() #4 error = %v, want Done", err)
	}
	if strings.Join(pages, ",") != ",p2" {
		t.Errorf("pages requested = %q, want [\"\" p2]", pages)
	}
}

func TestDeleteTrashes(t *testing.T) {
	trashed := ""
	a := newTestAdapter(t, map[string]http.HandlerFunc{
		"/gmail/v1/users/me/messages/m1/trash": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			trashed = "m1"
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "m1"}`)
		},
	})

	if err := a.Delete(context.Background(), &source.RawMessage{ID: "m1"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if trashed != "m1" {
		t.Error("trash endpoint not called")
	}
}

func TestDecodeDataAcceptsUnpadded(t *testing.T) {
	got, err := decodeData(base64.RawURLEncoding.EncodeToString([]byte("ab")))
	if err != nil || string(got) != "ab" {
		t.Errorf("decodeData() = %q, %v", got, err)
	}
}
