package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/geocoder89/postboard/internal/domain/user"
)

func TestBuildUserFilter(t *testing.T) {
	id := int64(3)
	email := "Alice"
	name := "50%_off"
	since := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		filter    user.Filter
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "empty",
			filter:    user.Filter{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "email_only",
			filter:    user.Filter{Email: &email},
			wantWhere: " WHERE email ILIKE $1",
			wantArgs:  []interface{}{"%Alice%"},
		},
		{
			name:      "all",
			filter:    user.Filter{ID: &id, Email: &email, FullName: &name, LoginAfter: &since},
			wantWhere: " WHERE id = $1 AND email ILIKE $2 AND full_name ILIKE $3 AND last_login >= $4",
			wantArgs:  []interface{}{int64(3), "%Alice%", `%50\%\_off%`, since},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildUserFilter(tt.filter)

			assert.Equal(t, `SELECT `+userColumns+` FROM users`+tt.wantWhere+" ORDER BY id ASC", query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
