package arango

import (
	"context"
	"encoding/json"
	"net/http"
)

// Query is an AQL query bound to a database, built by Database.Query
type Query struct {
	db *Database

	Text string
	// RawResults asks for plain json instead of Documents
	RawResults bool
	BatchSize  int
	BindVars   map[string]interface{}
	Options    map[string]interface{}
	Count      bool
	FullCount  bool
}

func (q *Query) payload() map[string]interface{} {
	options := make(map[string]interface{}, len(q.Options)+1)
	for k, v := range q.Options {
		options[k] = v
	}
	if q.FullCount {
		options["fullCount"] = true
	}
	bindVars := q.BindVars
	if bindVars == nil {
		bindVars = map[string]interface{}{}
	}

	p := map[string]interface{}{
		"query":    q.Text,
		"bindVars": bindVars,
		"count":    q.Count,
		"options":  options,
	}
	if q.BatchSize > 0 {
		p["batchSize"] = q.BatchSize
	}
	return p
}

// Execute creates the server cursor and returns its first batch
func (q *Query) Execute(ctx context.Context) (*Cursor, error) {
	r, err := q.db.call(ctx, http.MethodPost, q.db.apiPath("cursor"), q.payload())
	if err != nil {
		e := wrapError(ErrCodeQuery, err, "execute query")
		e.Query = q.Text
		return nil, e
	}
	if !r.ok(codesCursorCreate...) {
		e := serverError(ErrCodeQuery, r, "execute query")
		e.Query = q.Text
		return nil, e
	}

	c := &Cursor{query: q}
	if err := c.load(r); err != nil {
		return nil, err
	}
	q.db.logger.Debug().Str("db", q.db.name).Str("cursor", c.ID).
		Int("batch", len(c.Result)).Bool("hasMore", c.HasMore).Msg("cursor created")
	return c, nil
}

// Cursor holds the current batch of an executed query
type Cursor struct {
	query *Query

	ID      string
	HasMore bool
	// Count is only filled when the query asked for it
	Count  int
	Result []json.RawMessage
	Extra  map[string]interface{}
}

type cursorBody struct {
	ID      string                 `json:"id"`
	HasMore bool                   `json:"hasMore"`
	Count   int                    `json:"count"`
	Result  []json.RawMessage      `json:"result"`
	Extra   map[string]interface{} `json:"extra"`
}

func (c *Cursor) load(r *reply) error {
	var body cursorBody
	if err := r.decode(&body); err != nil {
		e := wrapError(ErrCodeQuery, err, "decode cursor")
		e.Query = c.query.Text
		e.Body = r.body
		return e
	}
	if body.ID != "" {
		c.ID = body.ID
	}
	c.HasMore = body.HasMore
	c.Result = body.Result
	if body.Count > 0 {
		c.Count = body.Count
	}
	if body.Extra != nil {
		c.Extra = body.Extra
	}
	return nil
}

// Next replaces Result with the next batch
func (c *Cursor) Next(ctx context.Context) error {
	if !c.HasMore {
		return newError(ErrCodeConstraint, "cursor %s has no more batches", c.ID)
	}
	db := c.query.db
	r, err := db.call(ctx, http.MethodPut, db.apiPath("cursor", c.ID), nil)
	if err != nil {
		e := wrapError(ErrCodeQuery, err, "read cursor %s", c.ID)
		e.Query = c.query.Text
		return e
	}
	if !r.ok(codesCursorNext...) {
		e := serverError(ErrCodeQuery, r, "read cursor %s", c.ID)
		e.Query = c.query.Text
		return e
	}
	return c.load(r)
}

// ReadAll pages through the remaining batches and returns every result
func (c *Cursor) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	all := append([]json.RawMessage(nil), c.Result...)
	for c.HasMore {
		if err := c.Next(ctx); err != nil {
			return nil, err
		}
		all = append(all, c.Result...)
	}
	return all, nil
}

// Close drops the server cursor if it still holds batches
func (c *Cursor) Close(ctx context.Context) error {
	if c.ID == "" || !c.HasMore {
		return nil
	}
	db := c.query.db
	r, err := db.call(ctx, http.MethodDelete, db.apiPath("cursor", c.ID), nil)
	if err != nil {
		return wrapError(ErrCodeQuery, err, "close cursor %s", c.ID)
	}
	if !r.ok(codesCursorDelete...) {
		return serverError(ErrCodeQuery, r, "close cursor %s", c.ID)
	}
	c.HasMore = false
	return nil
}

// Documents decodes the current batch.
// Queries built with rawResults only give json.
func (c *Cursor) Documents() ([]*Document, error) {
	if c.query.RawResults {
		return nil, newError(ErrCodeConstraint, "query was built with raw results")
	}
	docs := make([]*Document, 0, len(c.Result))
	for _, raw := range c.Result {
		d := &Document{}
		if err := json.Unmarshal(raw, d); err != nil {
			e := wrapError(ErrCodeQuery, err, "decode document")
			e.Query = c.query.Text
			return nil, e
		}
		docs = append(docs, d)
	}
	return docs, nil
}
