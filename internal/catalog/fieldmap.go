package catalog

import (
	"fmt"
	"regexp"
)

// reservedFieldNames must never be produced as a generated field name (spec
// §4.2 testable property 2).
var reservedFieldNames = map[string]bool{
	"callTool":      true,
	"getPrompt":     true,
	"catalog":       true,
	"readResource":  true,
	"readTemplate":  true,
}

var invalidRun = regexp.MustCompile(`[^A-Za-z0-9_]+`)
var validLeader = regexp.MustCompile(`^[A-Za-z_]`)

// AssignFieldNames derives a deterministic GraphQL/REST field name for every
// item in c, resolving collisions by appending _2, _3, ... Two invocations
// over the same Catalog always produce an identical map (spec §4.2 testable
// property 1), because c.Items is already in its final deterministic order
// by the time Extract returns it.
func AssignFieldNames(c *Catalog) map[string]string {
	assigned := make(map[string]string, len(c.Items))
	used := make(map[string]bool, len(c.Items)+len(reservedFieldNames))
	for name := range reservedFieldNames {
		used[name] = true
	}

	for _, item := range c.Items {
		base := sanitize(item.Type, item.Name)
		name := base
		n := 2
		for used[name] {
			name = fmt.Sprintf("%s_%d", base, n)
			n++
		}
		used[name] = true
		assigned[itemKey(item)] = name
	}
	return assigned
}

// itemKey disambiguates items sharing a Name across different Types, since
// AssignFieldNames returns one map for the whole catalog.
func itemKey(item Item) string {
	return string(item.Type) + ":" + item.Name
}

func sanitize(t ItemType, name string) string {
	s := invalidRun.ReplaceAllString(name, "_")
	s = trimUnderscores(s)
	if s == "" || !validLeader.MatchString(s) {
		s = string(t) + "_" + s
	}
	return s
}

func trimUnderscores(s string) string {
	start := 0
	for start < len(s) && s[start] == '_' {
		start++
	}
	end := len(s)
	for end > start && s[end-1] == '_' {
		end--
	}
	return s[start:end]
}
