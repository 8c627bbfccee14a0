package openlibrary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// numFound is unconstrained: non-numeric counts become "unknown". A null
// docs decodes as an empty page.
const searchSchemaJSON = `{
  "type": "object",
  "properties": {
    "docs": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "key":                {"type": "string"},
          "title":              {"type": "string"},
          "author_name":        {"type": "array", "items": {"type": "string"}},
          "author_key":         {"type": "array", "items": {"type": "string"}},
          "publisher":          {"type": "array", "items": {"type": "string"}},
          "language":           {"type": "array", "items": {"type": "string"}},
          "first_publish_year": {"type": "integer"},
          "cover_i":            {"type": "integer"},
          "edition_count":      {"type": "integer"}
        }
      }
    }
  }
}`

var searchSchema = mustSchema(searchSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("openlibrary: bad schema: %v", err))
	}
	return s
}

func validateSearch(body []byte) error {
	res, err := searchSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}
