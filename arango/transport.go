package arango

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	driver "github.com/arangodb/go-driver"
	driverhttp "github.com/arangodb/go-driver/http"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wonderstone/arangostorm/handler"
	"github.com/wonderstone/arangostorm/tools"
)

// DriverTransport runs requests over a go-driver connection.
// Authentication and endpoint handling stay in the connection.
type DriverTransport struct {
	conn driver.Connection
}

func NewDriverTransport(conn driver.Connection) *DriverTransport {
	return &DriverTransport{conn: conn}
}

// Do implements handler.Transport. It logs through the logger carried by ctx.
func (t *DriverTransport) Do(ctx context.Context, method, path string, body interface{}) (*handler.Response, error) {
	logger := zerolog.Ctx(ctx)

	req, err := t.conn.NewRequest(method, path)
	if err != nil {
		return nil, fmt.Errorf("new request %s %s: %w", method, path, err)
	}
	reqID := uuid.New().String()
	req.SetHeader("X-Request-Id", reqID)
	if body != nil {
		if _, err := req.SetBody(body); err != nil {
			return nil, fmt.Errorf("set body of %s %s: %w", method, path, err)
		}
	}

	var raw []byte
	resp, err := t.conn.Do(driver.WithRawResponse(ctx, &raw), req)
	if err != nil {
		logger.Debug().Err(err).Str("request", reqID).Str("method", method).Str("path", path).Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	logger.Trace().Str("request", reqID).Str("method", method).Str("path", path).
		Int("status", resp.StatusCode()).Msg("request done")

	if len(bytes.TrimSpace(raw)) == 0 {
		// no body, the status code alone has to tell
		return &handler.Response{StatusCode: resp.StatusCode()}, nil
	}
	return &handler.Response{StatusCode: resp.StatusCode(), Body: json.RawMessage(raw)}, nil
}

// Dial connects to the server of cfg with basic authentication and opens cfg.DBName
func Dial(ctx context.Context, cfg tools.Config, opts ...Option) (*Database, error) {
	conn, err := driverhttp.NewConnection(driverhttp.ConnectionConfig{
		Endpoints: []string{cfg.Endpoint()},
	})
	if err != nil {
		return nil, fmt.Errorf("create connection to %s: %w", cfg.Endpoint(), err)
	}

	client, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: driver.BasicAuthentication(cfg.Username, cfg.Password),
	})
	if err != nil {
		return nil, fmt.Errorf("create client for %s: %w", cfg.Endpoint(), err)
	}

	exists, err := client.DatabaseExists(ctx, cfg.DBName)
	if err != nil {
		return nil, wrapError(ErrCodeMetadataFetch, err, "check database %s", cfg.DBName)
	}
	if !exists {
		return nil, newError(ErrCodeNotFound, "database %s does not exist on %s", cfg.DBName, cfg.Endpoint())
	}

	return Open(ctx, NewDriverTransport(client.Connection()), cfg.DBName, opts...)
}
