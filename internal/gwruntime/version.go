package gwruntime

import (
	"regexp"
	"strings"

	"github.com/mcp-gateway/toolkit/internal/session"
)

var (
	leadingInt  = regexp.MustCompile(`^(\d+)`)
	leadingYear = regexp.MustCompile(`^(\d{4})-`)
)

// deriveVersion implements spec §4.7's version-derivation rule: strip a
// leading "v", take a leading integer as "v{N}", else a leading "YYYY-" date
// prefix as "v{YYYY}", else fall back to "v0".
func deriveVersion(infoVersion string) string {
	s := strings.TrimPrefix(infoVersion, "v")
	if m := leadingInt.FindStringSubmatch(s); m != nil {
		return "v" + m[1]
	}
	if m := leadingYear.FindStringSubmatch(s); m != nil {
		return "v" + m[1]
	}
	return "v0"
}

// resolvePrefix implements spec §4.7's prefix derivation: a PrefixFunc
// option is invoked with (version, info, sessionName); a string option is
// used verbatim; the absence of either defaults to "/{version}".
func resolvePrefix(opt any, version string, info session.ServerInfo, name string) string {
	switch v := opt.(type) {
	case PrefixFunc:
		return v(version, info, name)
	case string:
		return v
	default:
		return "/" + version
	}
}
