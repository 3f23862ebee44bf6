package filter

import (
	"strconv"
	"strings"

	"github.com/yourorg/f1etl/pkg/types"
)

// Drivers keeps the drivers named in selectors, matched by code or car
// number, in the provider's order. An empty selector list keeps everyone.
// Selectors that match nobody are returned as unknown.
func Drivers(drivers []types.Driver, selectors []string) (kept []types.Driver, unknown []string) {
	set := toUpperSet(selectors)
	if len(set) == 0 {
		return drivers, nil
	}
	matched := make(map[string]struct{}, len(set))
	for _, d := range drivers {
		keys := []string{strings.ToUpper(d.Code), strconv.Itoa(d.Number)}
		for _, k := range keys {
			if _, ok := set[k]; ok {
				kept = append(kept, d)
				for _, k := range keys {
					matched[k] = struct{}{}
				}
				break
			}
		}
	}
	for _, s := range splitSelectors(selectors) {
		if _, ok := matched[strings.ToUpper(s)]; !ok {
			unknown = append(unknown, s)
		}
	}
	return kept, unknown
}

// splitSelectors accepts both repeated values and comma lists.
func splitSelectors(selectors []string) []string {
	var out []string
	for _, s := range selectors {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func toUpperSet(items []string) map[string]struct{} {
	parts := splitSelectors(items)
	set := make(map[string]struct{}, len(parts))
	for _, v := range parts {
		set[strings.ToUpper(v)] = struct{}{}
	}
	return set
}
