package catalog

import (
	"context"
	"sort"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/session"
)

// listMethods enumerates the four MCP list calls in the fixed type order
// required by spec §4.2.
var listMethods = []struct {
	method string
	typ    ItemType
}{
	{"tools/list", ItemTool},
	{"prompts/list", ItemPrompt},
	{"resources/list", ItemResource},
	{"resource-templates/list", ItemResourceTemplate},
}

// Extract performs the four list calls against sess and concatenates their
// results into a deterministically ordered Catalog: by type in the fixed
// order tool → prompt → resource → resource-template, then case-sensitive
// ascending by name, then original enumeration order as a final tiebreak.
func Extract(ctx context.Context, sess session.Session, maxTemplateParamLen int) (*Catalog, error) {
	var items []Item

	for _, lm := range listMethods {
		res, err := sess.Call(ctx, lm.method, nil)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindUpstreamError, "catalog", "Extract",
				"failed to list "+lm.method, map[string]any{"method": lm.method}, err)
		}
		for i, raw := range res.Content {
			item := toItem(lm.typ, raw, i)
			if item.Type == ItemResourceTemplate {
				detail := item.Detail.(ResourceTemplateDetail)
				if !IsSimpleURITemplate(detail.URITemplate, maxTemplateParamLen) {
					// RFC 6570 §2.2 operator forms are rejected, not
					// surfaced as partially-functional catalog entries.
					continue
				}
			}
			items = append(items, item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if typeOrder[a.Type] != typeOrder[b.Type] {
			return typeOrder[a.Type] < typeOrder[b.Type]
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.enumOrder < b.enumOrder
	})

	return &Catalog{Server: sess.Info(), Items: items}, nil
}

func toItem(t ItemType, raw map[string]any, enumOrder int) Item {
	name, _ := raw["name"].(string)
	title, _ := raw["title"].(string)
	desc, _ := raw["description"].(string)

	item := Item{Type: t, Name: name, Title: title, Description: desc, enumOrder: enumOrder}

	switch t {
	case ItemTool:
		schema, _ := raw["input"].(map[string]any)
		item.Detail = ToolDetail{InputSchema: schema}
	case ItemPrompt:
		schema, _ := raw["input"].(map[string]any)
		item.Detail = PromptDetail{InputSchema: schema}
	case ItemResource:
		uri, _ := raw["uri"].(string)
		mime, _ := raw["mimeType"].(string)
		item.Detail = ResourceDetail{URI: uri, MimeType: mime}
	case ItemResourceTemplate:
		tmpl, _ := raw["uriTemplate"].(string)
		mime, _ := raw["mimeType"].(string)
		item.Detail = ResourceTemplateDetail{URITemplate: tmpl, MimeType: mime}
	}
	return item
}
