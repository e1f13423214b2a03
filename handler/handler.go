package handler

import (
	"context"
	"encoding/json"
)

// Response is what the transport hands back: the status code and the raw json body
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// Transport issues one http request against the server.
// path is relative to the server endpoint, e.g. "_db/mydb/_api/collection".
// body is marshalled to json when not nil.
// A non-2xx status is not an error at this level, only a failure to get any answer is.
type Transport interface {
	Do(ctx context.Context, method, path string, body interface{}) (*Response, error)
}

// Item is anything the client mirrors from the server: collections, graphs, documents
type Item interface {
	Export() map[string]interface{}
}
