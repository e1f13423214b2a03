package arango

import (
	"context"
	"encoding/json"
	"net/url"
	"path"

	driver "github.com/arangodb/go-driver"
)

// success codes of every remote operation
var (
	codesList             = []int{200}
	codesCreateCollection = []int{200, 201}
	codesCreateGraph      = []int{201, 202}
	codesCursorCreate     = []int{200, 201}
	codesCursorNext       = []int{200}
	codesCursorDelete     = []int{202}
)

// reply is a transport response with its error envelope decoded
type reply struct {
	status int
	body   json.RawMessage
	envErr driver.ArangoError
}

// ok is true when the status is one of codes and the body carries no error flag
func (r *reply) ok(codes ...int) bool {
	if r.envErr.HasError {
		return false
	}
	for _, c := range codes {
		if r.status == c {
			return true
		}
	}
	return false
}

func (r *reply) message() string {
	return r.envErr.ErrorMessage
}

func (r *reply) decode(v interface{}) error {
	return json.Unmarshal(r.body, v)
}

// apiPath builds "_db/<name>/_api/<parts...>"
func (db *Database) apiPath(parts ...string) string {
	elems := append([]string{"_db", url.PathEscape(db.name), "_api"}, parts...)
	return path.Join(elems...)
}

func (db *Database) call(ctx context.Context, method, p string, body interface{}) (*reply, error) {
	ctx = db.logger.WithContext(ctx)
	resp, err := db.transport.Do(ctx, method, p, body)
	if err != nil {
		return nil, err
	}
	r := &reply{status: resp.StatusCode, body: resp.Body}
	if len(resp.Body) > 0 {
		// a body that is not an object just has no envelope
		_ = json.Unmarshal(resp.Body, &r.envErr)
	}
	return r, nil
}
