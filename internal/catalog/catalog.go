// Package catalog extracts and deterministically orders a Session's
// tools/prompts/resources/resource-templates into a normalized Catalog, and
// derives stable GraphQL/REST field names from it.
package catalog

import "github.com/mcp-gateway/toolkit/internal/session"

// ItemType tags a CatalogItem by MCP entity kind.
type ItemType string

const (
	ItemTool             ItemType = "tool"
	ItemPrompt           ItemType = "prompt"
	ItemResource         ItemType = "resource"
	ItemResourceTemplate ItemType = "resource-template"
)

// typeOrder fixes the primary sort key of spec §4.2: tool → prompt →
// resource → resource-template.
var typeOrder = map[ItemType]int{
	ItemTool:             0,
	ItemPrompt:           1,
	ItemResource:         2,
	ItemResourceTemplate: 3,
}

// ToolDetail holds tool-specific metadata.
type ToolDetail struct {
	InputSchema map[string]any
}

// PromptDetail holds prompt-specific metadata.
type PromptDetail struct {
	InputSchema map[string]any
}

// ResourceDetail holds resource-specific metadata.
type ResourceDetail struct {
	URI      string
	MimeType string
}

// ResourceTemplateDetail holds resource-template-specific metadata. Only
// simple {name} placeholders are accepted; RFC 6570 §2.2 operator forms
// (e.g. {+name}, {#name}) are rejected at extraction time (spec §3).
type ResourceTemplateDetail struct {
	URITemplate string
	MimeType    string
}

// Item is a tagged record describing one catalog entry. Detail holds one of
// ToolDetail, PromptDetail, ResourceDetail, ResourceTemplateDetail depending
// on Type.
type Item struct {
	Type        ItemType
	Name        string
	Title       string
	Description string
	Detail      any

	// enumOrder preserves the original per-type enumeration order, used as
	// the final ordering tiebreaker (spec §4.2 rule 3).
	enumOrder int
}

// Catalog is the immutable, deterministically ordered extraction result for
// one Session. A new Catalog must be built to refresh contents; existing
// Catalog values are never mutated in place.
type Catalog struct {
	Server session.ServerInfo
	Items  []Item
}
