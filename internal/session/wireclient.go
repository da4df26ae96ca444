package session

import "context"

// wireClient is the narrow surface this package needs from the MCP wire
// protocol client library (github.com/mark3labs/mcp-go), matching spec §1's
// assumed external contract: callTool, getPrompt, readResource, and a
// generic request(method, params) escape hatch for list/template operations.
type wireClient interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context) (ServerInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*Result, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (*Result, error)
	ReadResource(ctx context.Context, uri string) (*Result, error)
	Request(ctx context.Context, method string, params any) (*Result, error)
	Close() error
}

// dispatch routes a generic Call(method, params) onto the narrow wireClient
// surface, matching the four method families spec §4.2/§4.1 require.
func dispatch(ctx context.Context, wc wireClient, method string, params any) (*Result, error) {
	switch method {
	case "tools/call":
		name, args := splitNameArgs(params)
		return wc.CallTool(ctx, name, args)
	case "prompts/get":
		name, args := splitNameArgs(params)
		return wc.GetPrompt(ctx, name, stringifyArgs(args))
	case "resources/read":
		uri, _ := params.(map[string]any)["uri"].(string)
		return wc.ReadResource(ctx, uri)
	default:
		return wc.Request(ctx, method, params)
	}
}

func splitNameArgs(params any) (string, map[string]any) {
	m, _ := params.(map[string]any)
	name, _ := m["name"].(string)
	args, _ := m["arguments"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}
	return name, args
}

func stringifyArgs(args map[string]any) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = ""
		}
	}
	return out
}
