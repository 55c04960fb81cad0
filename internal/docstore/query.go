package docstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

type filter struct {
	Field string
	Value any
}

// Query narrows GetAll with equality filters and a single sort key.
// The zero value returns every document ordered by id.
type Query struct {
	filters []filter
	orderBy string
	desc    bool
	limit   int
}

func (q Query) Where(field string, value any) Query {
	q.filters = append(append([]filter(nil), q.filters...), filter{Field: field, Value: value})
	return q
}

func (q Query) OrderBy(field string, desc bool) Query {
	q.orderBy = field
	q.desc = desc
	return q
}

func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

func (q Query) matches(fields Fields) bool {
	for _, f := range q.filters {
		if !valuesEqual(fields[f.Field], normalizeValue(f.Value)) {
			return false
		}
	}
	return true
}

// apply filters, sorts and limits documents in place for backends without native queries.
func (q Query) apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if q.matches(doc.Fields) {
			out = append(out, doc)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.orderBy == "" {
			return out[i].ID < out[j].ID
		}
		c := compareValues(out[i].Fields[q.orderBy], out[j].Fields[q.orderBy])
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if q.desc {
			return c > 0
		}
		return c < 0
	})

	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch typed := v.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

// compareValues orders missing < numbers < strings < times < anything else.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		ta, tb := a.(time.Time), b.(time.Time)
		return ta.Compare(tb)
	case 4:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	return 0
}

func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case time.Time:
		return 3
	}
	return 4
}
