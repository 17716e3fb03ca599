package lessons

import (
	"fmt"
	"slices"
)

// Language is a language code with the name used in log output.
type Language struct {
	Code string
	Name string
}

// Known languages come first, in this order.
var Known = []Language{
	{Code: "es", Name: "Spanish"},
	{Code: "de", Name: "German"},
	{Code: "zh", Name: "Chinese"},
}

// NameFor returns the display name of a language code, or the code itself.
func NameFor(code string) string {
	if l, ok := known(code); ok {
		return l.Name
	}
	return code
}

func known(code string) (Language, bool) {
	for _, l := range Known {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Languages lists the catalog's languages in seeding order: known ones in
// their fixed order, then the rest sorted by code. When only is non-empty
// the list is narrowed to those codes, and a code missing from the catalog
// is an error.
func Languages(catalog Catalog, only []string) ([]Language, error) {
	for _, code := range only {
		if _, ok := catalog[code]; !ok {
			return nil, fmt.Errorf("language %q has no lessons in the catalog", code)
		}
	}

	var out []Language
	add := func(code string) {
		if len(only) > 0 && !slices.Contains(only, code) {
			return
		}
		out = append(out, Language{Code: code, Name: NameFor(code)})
	}

	for _, l := range Known {
		if _, ok := catalog[l.Code]; ok {
			add(l.Code)
		}
	}
	for _, code := range sortedCodes(catalog) {
		if _, ok := known(code); !ok {
			add(code)
		}
	}
	return out, nil
}

func sortedCodes(catalog Catalog) []string {
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}
