package query

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SearchPath is the Open Library search endpoint.
const SearchPath = "/search.json"

// DefaultLimit is the page size sent with every search.
const DefaultLimit = 15

// Field names a search filter.
type Field string

const (
	FieldQ             Field = "q"
	FieldTitle         Field = "title"
	FieldAuthor        Field = "author"
	FieldISBN          Field = "isbn"
	FieldPublisher     Field = "publisher"
	FieldSubject       Field = "subject"
	FieldLanguage      Field = "language"
	FieldPublishedYear Field = "published_year"
	FieldPerson        Field = "person"
	FieldPlace         Field = "place"
)

// FieldInfo describes a field for presentation.
type FieldInfo struct {
	Field       Field  `json:"field"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	// Forwarded is false for fields accepted in a FilterSet but never sent upstream.
	Forwarded bool `json:"forwarded"`
}

var fields = []FieldInfo{
	{FieldQ, "General search", "General search", true},
	{FieldTitle, "Title", "Search by title", true},
	{FieldAuthor, "Author", "Search by author name", true},
	{FieldISBN, "ISBN", "Search by ISBN", true},
	{FieldPublisher, "Publisher", "Search by publisher", true},
	{FieldSubject, "Genre", "Search by genre/subject", true},
	{FieldLanguage, "Language", "Search by language code", false},
	{FieldPublishedYear, "Published year", "Search by year", false},
	{FieldPerson, "Person mentioned", "Search by person mentioned (e.g., Einstein)", true},
	{FieldPlace, "Place mentioned", "Search by place mentioned (e.g., Paris)", true},
}

// Fields lists the whole vocabulary in canonical order.
func Fields() []FieldInfo {
	out := make([]FieldInfo, len(fields))
	copy(out, fields)
	return out
}

// SearchableFields lists only the fields that reach the search API.
func SearchableFields() []FieldInfo {
	out := make([]FieldInfo, 0, len(fields))
	for _, f := range fields {
		if f.Forwarded {
			out = append(out, f)
		}
	}
	return out
}

// ParseField resolves a field name (case-insensitive).
func ParseField(s string) (Field, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range fields {
		if string(f.Field) == s {
			return f.Field, true
		}
	}
	return "", false
}

// Info returns the presentation metadata of f.
func (f Field) Info() (FieldInfo, bool) {
	for _, fi := range fields {
		if fi.Field == f {
			return fi, true
		}
	}
	return FieldInfo{}, false
}

// FilterSet maps fields to values plus an optional page number. The zero
// value is an empty set. FilterSet is treated as a value: methods never
// mutate the receiver's map.
type FilterSet struct {
	values map[Field]string
	// Page is optional; zero means unset.
	Page int
}

// One builds the single-field set a search bar produces.
func One(f Field, value string) FilterSet {
	return FilterSet{}.With(f, value)
}

// FromMap builds a FilterSet, rejecting unknown field names.
func FromMap(m map[string]string) (FilterSet, error) {
	fs := FilterSet{}
	for k, v := range m {
		f, ok := ParseField(k)
		if !ok {
			return FilterSet{}, fmt.Errorf("unknown field %q", k)
		}
		fs = fs.With(f, v)
	}
	return fs, nil
}

// With returns a copy of fs with f set to value. Blank values remove f.
func (fs FilterSet) With(f Field, value string) FilterSet {
	out := FilterSet{values: make(map[Field]string, len(fs.values)+1), Page: fs.Page}
	for k, v := range fs.values {
		out.values[k] = v
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(out.values, f)
	} else {
		out.values[f] = value
	}
	return out
}

// Get returns the value of f and whether it is set.
func (fs FilterSet) Get(f Field) (string, bool) {
	v, ok := fs.values[f]
	return v, ok
}

// Len is the number of populated fields.
func (fs FilterSet) Len() int { return len(fs.values) }

// IsEmpty reports whether no field is populated.
func (fs FilterSet) IsEmpty() bool { return len(fs.values) == 0 }

// Map returns a copy of the populated fields keyed by name.
func (fs FilterSet) Map() map[string]string {
	out := make(map[string]string, len(fs.values))
	for k, v := range fs.values {
		out[string(k)] = v
	}
	return out
}

// Equal compares two sets by value, page included.
func (fs FilterSet) Equal(other FilterSet) bool {
	if fs.Page != other.Page || len(fs.values) != len(other.values) {
		return false
	}
	for k, v := range fs.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders populated fields in canonical order, e.g. `title:"Dune"`.
func (fs FilterSet) String() string {
	parts := make([]string, 0, len(fs.values))
	for _, fi := range fields {
		if v, ok := fs.values[fi.Field]; ok {
			parts = append(parts, fmt.Sprintf("%s:%q", fi.Field, v))
		}
	}
	if fs.Page > 0 {
		parts = append(parts, "page:"+strconv.Itoa(fs.Page))
	}
	return strings.Join(parts, " ")
}

// MarshalJSON encodes the set as a flat object: {"title":"Dune","page":2}.
func (fs FilterSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(fs.values)+1)
	for k, v := range fs.values {
		m[string(k)] = v
	}
	if fs.Page > 0 {
		m["page"] = fs.Page
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the flat object produced by MarshalJSON.
func (fs *FilterSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := FilterSet{}
	for k, v := range raw {
		if k == "page" {
			if err := json.Unmarshal(v, &out.Page); err != nil {
				return fmt.Errorf("page: %w", err)
			}
			continue
		}
		f, ok := ParseField(k)
		if !ok {
			return fmt.Errorf("unknown field %q", k)
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		out = out.With(f, s)
	}
	*fs = out
	return nil
}

// Param is one query parameter; Request keeps them ordered.
type Param struct {
	Key   string
	Value string
}

// Request describes one search call.
type Request struct {
	Path   string
	Params []Param
	Page   int
	Limit  int
}

// Values returns the parameters as url.Values.
func (r Request) Values() url.Values {
	v := make(url.Values, len(r.Params))
	for _, p := range r.Params {
		v.Add(p.Key, p.Value)
	}
	return v
}

// Encode renders the query string in parameter order, spaces as %20.
func (r Request) Encode() string {
	var b strings.Builder
	for i, p := range r.Params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(p.Key))
		b.WriteByte('=')
		b.WriteString(escape(p.Value))
	}
	return b.String()
}

// URL joins base (e.g. https://openlibrary.org) with the path and query.
func (r Request) URL(base string) string {
	return strings.TrimRight(base, "/") + r.Path + "?" + r.Encode()
}

func escape(s string) string {
	// QueryEscape turns a literal '+' into %2B, so any '+' left is a space.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// forwarded is the fixed serialization order.
var forwarded = []Field{FieldQ, FieldTitle, FieldAuthor, FieldISBN, FieldPublisher, FieldSubject, FieldPerson, FieldPlace}

// Builder turns filter sets into requests with a fixed page size.
type Builder struct {
	Limit int
}

// Build maps filters and a 1-based page to a request. Pages below 1 are
// clamped to 1. language and published_year are never forwarded.
func (b Builder) Build(filters FilterSet, page int) Request {
	if page < 1 {
		page = 1
	}
	limit := b.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := make([]Param, 0, len(forwarded)+2)
	for _, f := range forwarded {
		if v, ok := filters.values[f]; ok && v != "" {
			params = append(params, Param{Key: string(f), Value: v})
		}
	}
	params = append(params,
		Param{Key: "page", Value: strconv.Itoa(page)},
		Param{Key: "limit", Value: strconv.Itoa(limit)},
	)
	return Request{Path: SearchPath, Params: params, Page: page, Limit: limit}
}

// Build uses the default page size.
func Build(filters FilterSet, page int) Request {
	return Builder{}.Build(filters, page)
}
