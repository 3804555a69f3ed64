package resource

import (
	"context"
	"errors"
)

// ErrEmptyResponse is the query error for a successful response with no
// body: a query always settles with either data or an error.
var ErrEmptyResponse = errors.New("resource: empty response")

// Getter fetches the raw response body stored at path.
type Getter interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// Sender issues a mutation with an optional JSON payload and returns the raw
// response body.
type Sender interface {
	Send(ctx context.Context, method, path string, payload any) ([]byte, error)
}

// detailer is implemented by errors that carry a server-supplied,
// human-readable explanation.
type detailer interface {
	Detail() string
}

// Message renders err as the single human-readable string shown next to a
// view: the server-supplied detail when there is one, otherwise the transport
// error text. Returns "" for a nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var d detailer
	if errors.As(err, &d) {
		if msg := d.Detail(); msg != "" {
			return msg
		}
	}

	return err.Error()
}
