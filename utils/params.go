package utils

import (
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
)

// ParsePagination reads ?page= and ?limit= and returns skip/limit values for
// a Mongo query. limit is clamped to max.
func ParsePagination(r *http.Request, def, max int64) (skip, limit int64) {
	q := r.URL.Query()

	page, _ := strconv.ParseInt(q.Get("page"), 10, 64)
	if page < 1 {
		page = 1
	}

	limit, _ = strconv.ParseInt(q.Get("limit"), 10, 64)
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}

	return (page - 1) * limit, limit
}

// ParseSort maps a ?sort= key to a Mongo sort document, falling back to def
// when the key is unknown.
func ParseSort(key string, def bson.D, allowed map[string]bson.D) bson.D {
	if allowed != nil {
		if d, ok := allowed[key]; ok {
			return d
		}
	}
	return def
}
