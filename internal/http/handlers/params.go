package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var errInvalidID = errors.New("must be a positive integer")

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// pathID reads a positive integer path parameter or writes a 400.
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := parseID(ctx.Param(name))
	if err != nil {
		RespondBadRequest(ctx, "Invalid path parameter", []FieldError{
			{Field: name, Rule: "type", Message: err.Error()},
		})
		return 0, false
	}
	return id, true
}

// queryParams collects optional query values; blank values count as absent.
type queryParams struct {
	ctx    *gin.Context
	errors []FieldError
}

func (q *queryParams) str(key string) *string {
	v, ok := q.ctx.GetQuery(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (q *queryParams) id(key string) *int64 {
	raw := q.str(key)
	if raw == nil {
		return nil
	}
	id, err := parseID(*raw)
	if err != nil {
		q.errors = append(q.errors, FieldError{Field: key, Rule: "type", Message: err.Error()})
		return nil
	}
	return &id
}

// timestamp accepts RFC 3339 or a bare date, interpreted as UTC midnight.
func (q *queryParams) timestamp(key string) *time.Time {
	raw := q.str(key)
	if raw == nil {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	q.errors = append(q.errors, FieldError{Field: key, Rule: "datetime", Message: "must be an RFC 3339 timestamp or YYYY-MM-DD"})
	return nil
}

// ok writes a 400 listing every malformed parameter.
func (q *queryParams) ok() bool {
	if len(q.errors) == 0 {
		return true
	}
	RespondBadRequest(q.ctx, "Invalid query parameters", gin.H{"fields": q.errors})
	return false
}
