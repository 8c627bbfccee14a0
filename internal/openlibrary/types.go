package openlibrary

import (
	"encoding/json"
	"math"
	"strings"
)

// Document is one book record from the search API.
type Document struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorNames      []string `json:"author_name,omitempty"`
	AuthorKeys       []string `json:"author_key,omitempty"`
	Publishers       []string `json:"publisher,omitempty"`
	Languages        []string `json:"language,omitempty"`
	FirstPublishYear *int     `json:"first_publish_year,omitempty"`
	CoverID          *int     `json:"cover_i,omitempty"`
	EditionCount     *int     `json:"edition_count,omitempty"`
}

// WorkID returns the bare id of the document's work ("/works/OL1W" -> "OL1W").
func (d Document) WorkID() string {
	return strings.TrimPrefix(d.Key, "/works/")
}

// CoverURL returns the document's cover on the public host, or "" without one.
func (d Document) CoverURL(size CoverSize) string {
	if d.CoverID == nil {
		return ""
	}
	return CoverURL(*d.CoverID, size)
}

// ResultPage is one decoded search response.
type ResultPage struct {
	Docs []Document
	// NumFound is nil when the response did not carry a numeric count.
	NumFound *int
}

type searchResponse struct {
	NumFound any        `json:"numFound"`
	Docs     []Document `json:"docs"`
}

func decodeSearch(body []byte) (*ResultPage, error) {
	if err := validateSearch(body); err != nil {
		return nil, err
	}
	var raw searchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	page := &ResultPage{Docs: raw.Docs, NumFound: normalizeCount(raw.NumFound)}
	if page.Docs == nil {
		page.Docs = []Document{}
	}
	return page, nil
}

// normalizeCount keeps non-negative integral numbers and maps anything else to nil.
func normalizeCount(v any) *int {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f >= math.MaxInt {
		return nil
	}
	n := int(f)
	return &n
}

// Work is the detail record served by /works/{id}.json.
type Work struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle,omitempty"`
	Description      string   `json:"description,omitempty"`
	Subjects         []string `json:"subjects,omitempty"`
	SubjectPlaces    []string `json:"subject_places,omitempty"`
	SubjectPeople    []string `json:"subject_people,omitempty"`
	SubjectTimes     []string `json:"subject_times,omitempty"`
	AuthorKeys       []string `json:"author_keys,omitempty"`
	Covers           []int    `json:"covers,omitempty"`
	FirstPublishDate string   `json:"first_publish_date,omitempty"`
}

// CoverID returns the first positive cover id, or zero.
func (w Work) CoverID() int {
	for _, c := range w.Covers {
		if c > 0 {
			return c
		}
	}
	return 0
}

type workResponse struct {
	Key              string          `json:"key"`
	Title            string          `json:"title"`
	Subtitle         string          `json:"subtitle"`
	Description      json.RawMessage `json:"description"`
	Subjects         []string        `json:"subjects"`
	SubjectPlaces    []string        `json:"subject_places"`
	SubjectPeople    []string        `json:"subject_people"`
	SubjectTimes     []string        `json:"subject_times"`
	Covers           []int           `json:"covers"`
	FirstPublishDate string          `json:"first_publish_date"`
	Authors          []struct {
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	} `json:"authors"`
}

// textValue decodes fields that are either "text" or {"type": ..., "value": "text"}.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var typed struct {
		Value string `json:"value"`
	}
	if json.Unmarshal(raw, &typed) == nil {
		return typed.Value
	}
	return ""
}

func decodeWork(body []byte) (*Work, error) {
	var raw workResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	w := &Work{
		Key:              raw.Key,
		Title:            raw.Title,
		Subtitle:         raw.Subtitle,
		Description:      sanitize(textValue(raw.Description)),
		Subjects:         raw.Subjects,
		SubjectPlaces:    raw.SubjectPlaces,
		SubjectPeople:    raw.SubjectPeople,
		SubjectTimes:     raw.SubjectTimes,
		Covers:           raw.Covers,
		FirstPublishDate: raw.FirstPublishDate,
	}
	for _, a := range raw.Authors {
		if a.Author.Key != "" {
			w.AuthorKeys = append(w.AuthorKeys, a.Author.Key)
		}
	}
	return w, nil
}
