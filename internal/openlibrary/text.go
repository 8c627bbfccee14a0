package openlibrary

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// CoverSize selects a covers.openlibrary.org variant.
type CoverSize string

const (
	CoverSmall  CoverSize = "S"
	CoverMedium CoverSize = "M"
	CoverLarge  CoverSize = "L"
)

// DefaultCoversURL is the public covers host.
const DefaultCoversURL = "https://covers.openlibrary.org"

// CoverURL builds a cover image URL on the public host. A non-positive id yields "".
func CoverURL(coverID int, size CoverSize) string {
	return coverURL(DefaultCoversURL, coverID, size)
}

func coverURL(base string, coverID int, size CoverSize) string {
	if coverID <= 0 {
		return ""
	}
	switch size {
	case CoverSmall, CoverMedium, CoverLarge:
	default:
		size = CoverMedium
	}
	return fmt.Sprintf("%s/b/id/%d-%s.jpg", strings.TrimRight(base, "/"), coverID, size)
}

var strict = bluemonday.StrictPolicy()

// sanitize strips all markup and returns plain text.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// MARC records use ISO 639-2/B codes; x/text knows the /T forms.
var bibliographic = map[string]string{
	"alb": "sqi", "arm": "hye", "baq": "eus", "bur": "mya", "chi": "zho",
	"cze": "ces", "dut": "nld", "fre": "fra", "geo": "kat", "ger": "deu",
	"gre": "ell", "ice": "isl", "mac": "mkd", "mao": "mri", "may": "msa",
	"per": "fas", "rum": "ron", "slo": "slk", "tib": "bod", "wel": "cym",
}

var languageNamer = display.English.Languages()

// LanguageName returns an English display name for a language code such as
// "eng" or "fre". Unknown codes come back upper-cased.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	lookup := code
	if t, ok := bibliographic[code]; ok {
		lookup = t
	}
	if tag, err := language.Parse(lookup); err == nil {
		if name := languageNamer.Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}
