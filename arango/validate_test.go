package arango

import (
	"errors"
	"testing"

	driver "github.com/arangodb/go-driver"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	db := openDB(t, newServer(t))

	ed := func(col string, from, to []string) []driver.EdgeDefinition {
		return []driver.EdgeDefinition{{Collection: col, From: from, To: to}}
	}

	tests := []struct {
		name    string
		eds     []driver.EdgeDefinition
		orphans []string
		want    error
		msg     string
	}{
		{
			name: "all defined",
			eds:  ed("knows", []string{"users"}, []string{"users", "groups"}),
		},
		{
			name:    "orphans only",
			orphans: []string{"groups"},
		},
		{
			name: "unknown edge collection",
			eds:  ed("likes", []string{"users"}, []string{"users"}),
			want: ErrValidation,
			msg:  "'likes' is not a defined edge collection",
		},
		{
			name: "document collection as edge collection",
			eds:  ed("users", []string{"users"}, []string{"users"}),
			want: ErrValidation,
			msg:  "'users' is not a defined edge collection",
		},
		{
			name: "system collection as edge collection",
			eds:  ed("_system", []string{"users"}, []string{"users"}),
			want: ErrValidation,
		},
		{
			name: "unknown from",
			eds:  ed("knows", []string{"people"}, []string{"users"}),
			want: ErrValidation,
			msg:  "'people' is not a defined collection",
		},
		{
			name: "unknown to",
			eds:  ed("knows", []string{"users"}, []string{"teams"}),
			want: ErrValidation,
			msg:  "'teams' is not a defined collection",
		},
		{
			name:    "unknown orphan",
			eds:     ed("knows", []string{"users"}, []string{"users"}),
			orphans: []string{"archive"},
			want:    ErrValidation,
			msg:     "'archive' is not a defined collection",
		},
		{
			// endpoint categories are not checked
			name:    "edge collection as endpoint and orphan",
			eds:     ed("knows", []string{"knows"}, []string{"users"}),
			orphans: []string{"knows"},
		},
		{
			name: "nothing to create",
			want: ErrConstraint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.Validate(tt.eds, tt.orphans)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestValidate_NoNetwork(t *testing.T) {
	s := newServer(t)
	db := openDB(t, s)

	_ = db.Validate([]driver.EdgeDefinition{{Collection: "knows", From: []string{"users"}, To: []string{"users"}}}, nil)
	_ = db.Validate([]driver.EdgeDefinition{{Collection: "nope", From: []string{"users"}, To: []string{"users"}}}, nil)
	assert.Empty(t, s.Calls())
}
