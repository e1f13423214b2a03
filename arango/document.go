package arango

import (
	"encoding/json"
	"fmt"
	"strings"
)

// - the _id of a document is collection/key
// - _rev is generated by the server on every write
// - _from and _to are only set on edge documents
// user fields live in Data, system fields have their own members
type Document struct {
	ID         string
	Key        string
	Rev        string
	Collection string
	From       string
	To         string
	Data       map[string]interface{}
}

// IsEdge is true for documents of edge collections
func (d *Document) IsEdge() bool {
	return d.From != "" || d.To != ""
}

// implement the handler Item interface
func (d *Document) Export() map[string]interface{} {
	m := map[string]interface{}{
		"_id":        d.ID,
		"_key":       d.Key,
		"collection": d.Collection,
		"data":       d.Data,
	}
	if d.IsEdge() {
		m["_from"] = d.From
		m["_to"] = d.To
	}
	return m
}

// MarshalJSON flattens Data next to the system fields
func (d *Document) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(d.Data)+5)
	for k, v := range d.Data {
		m[k] = v
	}
	if d.ID != "" {
		m["_id"] = d.ID
	}
	if d.Key != "" {
		m["_key"] = d.Key
	}
	if d.Rev != "" {
		m["_rev"] = d.Rev
	}
	if d.From != "" {
		m["_from"] = d.From
	}
	if d.To != "" {
		m["_to"] = d.To
	}
	return json.Marshal(m)
}

// UnmarshalJSON splits system fields from user fields,
// the collection and key are taken from _id when present
func (d *Document) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	str := func(k string) (string, error) {
		v, ok := m[k]
		if !ok {
			return "", nil
		}
		delete(m, k)
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("document field %s is %T, not a string", k, v)
		}
		return s, nil
	}

	var err error
	*d = Document{}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"_id", &d.ID}, {"_key", &d.Key}, {"_rev", &d.Rev}, {"_from", &d.From}, {"_to", &d.To},
	} {
		if *f.dst, err = str(f.key); err != nil {
			return err
		}
	}

	if d.ID != "" {
		infos := strings.SplitN(d.ID, "/", 2)
		d.Collection = infos[0]
		if len(infos) == 2 && d.Key == "" {
			d.Key = infos[1]
		}
	}
	d.Data = m
	return nil
}
