// AngelaMos | 2026
// repository_query_test.go

package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestLookupCondition(t *testing.T) {
	tests := []struct {
		name      string
		lookup    Lookup
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "by id",
			lookup:    Lookup{Kind: ByID, ID: "abc"},
			wantWhere: "id = $1",
			wantArgs:  []any{"abc"},
		},
		{
			name:      "email or role",
			lookup:    Lookup{Kind: ByEmailOrRole, Email: "a@x.com", Role: "a@x.com"},
			wantWhere: "(UPPER(email) = UPPER($1) OR $2 = ANY(roles))",
			wantArgs:  []any{"a@x.com", "a@x.com"},
		},
		{
			name:      "search escapes wildcards",
			lookup:    Lookup{Kind: Search, Substring: `50%_off\`, Role: `50%_off\`},
			wantWhere: "(email ILIKE $1 OR $2 = ANY(roles))",
			wantArgs:  []any{`%50\%\_off\\%`, `50%_off\`},
		},
		{
			name:   "empty search",
			lookup: Lookup{Kind: Search},
		},
		{
			name:      "unknown kind",
			lookup:    Lookup{},
			wantWhere: "FALSE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := lookupCondition(tt.lookup)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestLookupFilter(t *testing.T) {
	tests := []struct {
		name   string
		lookup Lookup
		want   bson.M
	}{
		{
			name:   "by id",
			lookup: Lookup{Kind: ByID, ID: "abc"},
			want:   bson.M{"_id": "abc"},
		},
		{
			name:   "email or role",
			lookup: Lookup{Kind: ByEmailOrRole, Email: "admin", Role: "admin"},
			want: bson.M{"$or": bson.A{
				bson.M{"email": "admin"},
				bson.M{"roles": "admin"},
			}},
		},
		{
			name:   "search quotes regex",
			lookup: Lookup{Kind: Search, Substring: "a.b+", Role: "a.b+"},
			want: bson.M{"$or": bson.A{
				bson.M{"email": bson.M{"$regex": `a\.b\+`, "$options": "i"}},
				bson.M{"roles": "a.b+"},
			}},
		},
		{
			name:   "empty search",
			lookup: Lookup{Kind: Search},
			want:   bson.M{},
		},
		{
			name:   "unknown kind",
			lookup: Lookup{},
			want:   bson.M{"_id": bson.M{"$exists": false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lookupFilter(tt.lookup))
		})
	}
}
