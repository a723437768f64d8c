// Package valueset holds the EU DGC value-set catalogue: the mapping from
// the short codes carried inside a certificate (diseases, vaccines,
// manufacturers, test types, results, countries) to their human-readable
// descriptions.
//
// The catalogue is embedded at build time from the JSON value-set documents
// published with the DGC schema and is parsed exactly once; lookups are
// read-only and safe for concurrent use.
package valueset

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Category names as published in the DGC value-set distribution.
const (
	DiseaseAgentTargeted    = "disease-agent-targeted"
	VaccineProphylaxis      = "sct-vaccines-covid-19"
	VaccineProduct          = "vaccines-covid-19-names"
	VaccineAuthHolder       = "vaccines-covid-19-auth-holders"
	TestType                = "covid-19-lab-test-type"
	TestResult              = "covid-19-lab-result"
	TestManufacturerAndName = "covid-19-lab-test-manufacturer-and-name"
	CountryCodes            = "country-2-codes"
)

//go:embed data/*.json
var dataFS embed.FS

// Entry is a single value-set row.
type Entry struct {
	Display string `json:"display"`
	Lang    string `json:"lang"`
	Active  bool   `json:"active"`
	System  string `json:"system"`
	Version string `json:"version"`
}

type document struct {
	ValueSetID     string           `json:"valueSetId"`
	ValueSetDate   string           `json:"valueSetDate"`
	ValueSetValues map[string]Entry `json:"valueSetValues"`
}

var (
	loadOnce sync.Once
	catalog  map[string]map[string]Entry
)

func load() {
	catalog = make(map[string]map[string]Entry)

	files, err := dataFS.ReadDir("data")
	if err != nil {
		panic(fmt.Sprintf("valueset: embedded data missing: %v", err))
	}
	for _, f := range files {
		raw, err := dataFS.ReadFile("data/" + f.Name())
		if err != nil {
			panic(fmt.Sprintf("valueset: cannot read %s: %v", f.Name(), err))
		}
		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			panic(fmt.Sprintf("valueset: cannot parse %s: %v", f.Name(), err))
		}
		catalog[doc.ValueSetID] = doc.ValueSetValues
	}
}

// Lookup returns the entry for code in the named category.
func Lookup(category, code string) (Entry, bool) {
	loadOnce.Do(load)
	e, ok := catalog[category][code]
	return e, ok
}

// Display returns the description for code in the named category, or the
// empty string if the code is unknown. Unknown codes are expected: value
// sets evolve faster than this table, so callers keep the raw code around.
func Display(category, code string) string {
	if e, ok := Lookup(category, code); ok {
		return e.Display
	}
	return ""
}

// Categories returns the sorted names of all loaded value sets.
func Categories() []string {
	loadOnce.Do(load)
	cats := make([]string, 0, len(catalog))
	for c := range catalog {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}
