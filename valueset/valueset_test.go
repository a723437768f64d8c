package valueset

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		category string
		code     string
		want     string
	}{
		{category: DiseaseAgentTargeted, code: "840539006", want: "COVID-19"},
		{category: VaccineProphylaxis, code: "1119349007", want: "SARS-CoV-2 mRNA vaccine"},
		{category: VaccineProduct, code: "EU/1/20/1528", want: "Comirnaty"},
		{category: VaccineAuthHolder, code: "ORG-100030215", want: "Biontech Manufacturing GmbH"},
		{category: TestType, code: "LP217198-3", want: "Rapid immunoassay"},
		{category: TestResult, code: "260373001", want: "Detected"},
		{category: CountryCodes, code: "NL", want: "Netherlands"},
		{category: CountryCodes, code: "CH", want: "Switzerland"},
	}
	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.code, func(t *testing.T) {
			entry, ok := Lookup(tt.category, tt.code)
			if !ok {
				t.Fatalf("Lookup(%q, %q) missed", tt.category, tt.code)
			}
			if entry.Display != tt.want {
				t.Errorf("display = %q, want %q", entry.Display, tt.want)
			}
			if entry.Lang == "" || entry.System == "" {
				t.Errorf("entry metadata incomplete: %+v", entry)
			}
		})
	}
}

func TestLookupMiss(t *testing.T) {
	if _, ok := Lookup(DiseaseAgentTargeted, "no-such-code"); ok {
		t.Error("unknown code resolved")
	}
	if _, ok := Lookup("no-such-category", "840539006"); ok {
		t.Error("unknown category resolved")
	}
	if got := Display(CountryCodes, "ZZ"); got != "" {
		t.Errorf("Display() = %q for an unknown code, want empty", got)
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 8 {
		t.Fatalf("loaded %d categories, want 8: %v", len(cats), cats)
	}
	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		seen[c] = true
	}
	for _, want := range []string{
		DiseaseAgentTargeted, VaccineProphylaxis, VaccineProduct,
		VaccineAuthHolder, TestType, TestResult,
		TestManufacturerAndName, CountryCodes,
	} {
		if !seen[want] {
			t.Errorf("category %q missing", want)
		}
	}
}

func TestCountryTableIsComplete(t *testing.T) {
	loadOnce.Do(load)
	if n := len(catalog[CountryCodes]); n < 240 {
		t.Errorf("country table has %d entries, want the full ISO 3166 set", n)
	}
}
