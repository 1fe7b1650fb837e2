package entities

import "strings"

// Category is the normalized clinic kind. It is always derived from source
// type tags, never supplied by a user.
type Category string

const (
	CategoryHospital Category = "hospital"
	CategoryDoctor   Category = "doctor"
	CategoryPharmacy Category = "pharmacy"
	CategoryClinic   Category = "clinic"
)

// categoryRules is checked in order; the first rule with a matching tag wins.
var categoryRules = []struct {
	category Category
	tags     []string
}{
	{CategoryPharmacy, []string{"pharmacy", "drugstore"}},
	{CategoryDoctor, []string{"doctor", "physician", "medical_doctor"}},
	{CategoryHospital, []string{"hospital"}},
	{CategoryClinic, []string{"clinic", "health", "healthcare", "medical"}},
}

// DeriveCategory maps source type tags onto a Category. Matching is
// case-insensitive. Unmatched or empty input falls back to hospital.
func DeriveCategory(types []string) Category {
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		seen[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	for _, rule := range categoryRules {
		for _, tag := range rule.tags {
			if _, ok := seen[tag]; ok {
				return rule.category
			}
		}
	}
	return CategoryHospital
}

// ParseCategories keeps only known categories from a caller filter.
// Unknown values are dropped silently and duplicates collapse.
func ParseCategories(values []string) []Category {
	var out []Category
	seen := map[Category]bool{}
	for _, v := range values {
		c := Category(strings.ToLower(strings.TrimSpace(v)))
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryHospital, CategoryDoctor, CategoryPharmacy, CategoryClinic:
		return true
	}
	return false
}
