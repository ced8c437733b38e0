package query

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPage  = 1
	defaultLimit = 100
)

// reserved keys drive the chain itself and never become filter fields
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// bare comparison keywords rewritten into Mongo operator form
var operators = map[string]string{"gte": "$gte", "gt": "$gt", "lte": "$lte", "lt": "$lt"}

// Features translates flat request query parameters into a composed Mongo
// query. Each step mutates and returns the same wrapper so calls compose
// left-to-right: Filter → SortBy → LimitFields → Paginate.
type Features struct {
	values url.Values

	Match      bson.M
	Order      bson.D
	Projection bson.M
	Skip       int64
	Limit      int64
}

func New(values url.Values) *Features {
	return &Features{values: values, Match: bson.M{}}
}

// WithBase seeds the filter with a fixed scope (e.g. reviews of one tour from
// a nested route). Scope keys win over request parameters.
func (f *Features) WithBase(base bson.M) *Features {
	for k, v := range base {
		f.Match[k] = v
	}
	return f
}

// Filter strips the reserved keys, rewrites `field[gte]=v` style comparisons
// into `{field: {$gte: v}}`, and passes everything else through as an
// equality match on that field.
func (f *Features) Filter() *Features {
	for key, vals := range f.values {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		field, op := splitOperator(key)
		if _, taken := f.Match[field]; taken && op == "" {
			continue // scope filter already owns this field
		}
		value := coerce(vals[0])
		if op == "" {
			f.Match[field] = value
			continue
		}
		sub, ok := f.Match[field].(bson.M)
		if !ok {
			sub = bson.M{}
			f.Match[field] = sub
		}
		sub[op] = value
	}
	return f
}

// SortBy parses the comma-separated sort list, `-` prefix meaning descending,
// defaulting to newest first.
func (f *Features) SortBy() *Features {
	raw := f.values.Get("sort")
	if raw == "" {
		f.Order = bson.D{{Key: "createdat", Value: -1}}
		return f
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir = -1
			part = part[1:]
		}
		f.Order = append(f.Order, bson.E{Key: fieldName(part), Value: dir})
	}
	if len(f.Order) == 0 {
		f.Order = bson.D{{Key: "createdat", Value: -1}}
	}
	return f
}

// LimitFields projects the response down to the requested field list, or
// excludes the internal revision field when none is requested.
func (f *Features) LimitFields() *Features {
	raw := f.values.Get("fields")
	if raw == "" {
		f.Projection = bson.M{"__v": 0}
		return f
	}
	projection := bson.M{}
	include := false
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			projection[fieldName(part[1:])] = 0
		} else {
			projection[fieldName(part)] = 1
			include = true
		}
	}
	if include {
		// Mongo rejects mixed projections; inclusion wins
		for k, v := range projection {
			if v == 0 {
				delete(projection, k)
			}
		}
	}
	f.Projection = projection
	return f
}

// Paginate computes skip/limit from page and limit, falling back to defaults
// on absent or malformed values. A page past the end of the result set just
// yields an empty page, never an error.
func (f *Features) Paginate() *Features {
	page := intOr(f.values.Get("page"), defaultPage)
	limit := intOr(f.values.Get("limit"), defaultLimit)
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	f.Skip = int64(page-1) * int64(limit)
	f.Limit = int64(limit)
	return f
}

// FindOptions assembles the accumulated sort, projection and paging into
// driver options for a Find.
func (f *Features) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(f.Order) > 0 {
		opts.SetSort(f.Order)
	}
	if len(f.Projection) > 0 {
		opts.SetProjection(f.Projection)
	}
	if f.Limit > 0 {
		opts.SetSkip(f.Skip).SetLimit(f.Limit)
	}
	return opts
}

// splitOperator recognizes the `field[op]` form; op is empty for a bare key.
func splitOperator(key string) (field, op string) {
	open := strings.IndexByte(key, '[')
	if open < 1 || !strings.HasSuffix(key, "]") {
		return fieldName(key), ""
	}
	mongoOp, ok := operators[key[open+1:len(key)-1]]
	if !ok {
		return fieldName(key), ""
	}
	return fieldName(key[:open]), mongoOp
}

// fieldName maps the camelCase JSON naming used by clients onto the
// lowercased bson field names the documents are stored with.
func fieldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// coerce turns numeric and boolean strings into their typed form so
// comparisons work against numeric document fields.
func coerce(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func intOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
