package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTitle(t *testing.T) {
	req := Build(One(FieldTitle, "Clean Code"), 1)

	assert.Equal(t, "https://openlibrary.org/search.json?title=Clean%20Code&page=1&limit=15",
		req.URL("https://openlibrary.org"))
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, DefaultLimit, req.Limit)
}

func TestBuildOrderAndUnforwardedFields(t *testing.T) {
	fs := FilterSet{}.
		With(FieldPlace, "Paris").
		With(FieldLanguage, "fre").
		With(FieldAuthor, "Hugo").
		With(FieldPublishedYear, "1862").
		With(FieldQ, "misérables")

	req := Build(fs, 3)
	assert.Equal(t, []Param{
		{"q", "misérables"},
		{"author", "Hugo"},
		{"place", "Paris"},
		{"page", "3"},
		{"limit", "15"},
	}, req.Params)

	v := req.Values()
	assert.Empty(t, v.Get("language"))
	assert.Empty(t, v.Get("published_year"))
}

func TestBuildEmptyAndClampedPage(t *testing.T) {
	req := Build(FilterSet{}, 0)
	assert.Equal(t, "page=1&limit=15", req.Encode())
	assert.Equal(t, 1, req.Page)

	req = Build(FilterSet{}, -4)
	assert.Equal(t, 1, req.Page)
}

func TestBuilderLimit(t *testing.T) {
	req := Builder{Limit: 40}.Build(One(FieldISBN, "9780132350884"), 2)
	assert.Equal(t, "isbn=9780132350884&page=2&limit=40", req.Encode())
}

func TestEscaping(t *testing.T) {
	req := Build(One(FieldQ, "C++ & Go=fun"), 1)
	assert.Equal(t, "q=C%2B%2B%20%26%20Go%3Dfun&page=1&limit=15", req.Encode())
	assert.Equal(t, "C++ & Go=fun", req.Values().Get("q"))
}

func TestFilterSetWithIsCopyOnWrite(t *testing.T) {
	a := One(FieldTitle, "Dune")
	b := a.With(FieldAuthor, "Herbert")

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())

	c := b.With(FieldAuthor, "   ")
	assert.True(t, c.Equal(a))
	assert.False(t, b.Equal(a))
}

func TestFilterSetEqual(t *testing.T) {
	assert.True(t, FilterSet{}.Equal(FilterSet{}))
	assert.True(t, One(FieldQ, "x").Equal(One(FieldQ, " x ")))
	assert.False(t, One(FieldQ, "x").Equal(One(FieldTitle, "x")))

	paged := One(FieldQ, "x")
	paged.Page = 2
	assert.False(t, paged.Equal(One(FieldQ, "x")))
}

func TestFilterSetJSON(t *testing.T) {
	fs := One(FieldTitle, "Dune").With(FieldAuthor, "Herbert")
	fs.Page = 2

	data, err := json.Marshal(fs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Dune","author":"Herbert","page":2}`, string(data))

	var back FilterSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, fs.Equal(back))

	err = json.Unmarshal([]byte(`{"colour":"red"}`), &back)
	assert.ErrorContains(t, err, `unknown field "colour"`)
}

func TestFromMap(t *testing.T) {
	fs, err := FromMap(map[string]string{"Title": "Dune", "subject": ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "Dune"}, fs.Map())

	_, err = FromMap(map[string]string{"nope": "x"})
	assert.Error(t, err)
}

func TestFieldVocabulary(t *testing.T) {
	assert.Len(t, Fields(), 10)
	assert.Len(t, SearchableFields(), 8)

	f, ok := ParseField(" ISBN ")
	require.True(t, ok)
	assert.Equal(t, FieldISBN, f)

	info, ok := FieldSubject.Info()
	require.True(t, ok)
	assert.Equal(t, "Genre", info.Label)

	_, ok = ParseField("colour")
	assert.False(t, ok)
}

func TestFilterSetString(t *testing.T) {
	fs := One(FieldAuthor, "Le Guin").With(FieldTitle, "Earthsea")
	assert.Equal(t, `title:"Earthsea" author:"Le Guin"`, fs.String())
}
