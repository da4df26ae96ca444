package session

import (
	"context"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
)

// mcpgoClient adapts a *mcpclient.Client (github.com/mark3labs/mcp-go) to
// the package's narrow wireClient interface, grounded on the teacher's
// internal/upstream/core/client.go call sequence (Initialize → ListTools /
// CallTool / GetPrompt / ReadResource).
type mcpgoClient struct {
	c          *mcpclient.Client
	clientName string
}

func newMCPGoClient(c *mcpclient.Client, clientName string) *mcpgoClient {
	return &mcpgoClient{c: c, clientName: clientName}
}

func (m *mcpgoClient) Start(ctx context.Context) error {
	return m.c.Start(ctx)
}

func (m *mcpgoClient) Initialize(ctx context.Context) (ServerInfo, error) {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    m.clientName,
		Version: "1.0.0",
	}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	res, err := m.c.Initialize(ctx, req)
	if err != nil {
		return ServerInfo{}, gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "Initialize",
			"upstream MCP initialize failed", nil, err)
	}
	return ServerInfo{
		Name:         res.ServerInfo.Name,
		Version:      res.ServerInfo.Version,
		Instructions: res.Instructions,
	}, nil
}

func (m *mcpgoClient) CallTool(ctx context.Context, name string, args map[string]any) (*Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := m.c.CallTool(ctx, req)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "CallTool",
			fmt.Sprintf("tool call %q failed", name), map[string]any{"tool": name}, err)
	}
	return toResult(res.Content, res.IsError, res), nil
}

func (m *mcpgoClient) GetPrompt(ctx context.Context, name string, args map[string]string) (*Result, error) {
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := m.c.GetPrompt(ctx, req)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "GetPrompt",
			fmt.Sprintf("prompt %q failed", name), map[string]any{"prompt": name}, err)
	}
	content := make([]map[string]any, 0, len(res.Messages))
	for _, msg := range res.Messages {
		content = append(content, map[string]any{"role": msg.Role, "content": msg.Content})
	}
	return &Result{Content: content, Raw: res}, nil
}

func (m *mcpgoClient) ReadResource(ctx context.Context, uri string) (*Result, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	res, err := m.c.ReadResource(ctx, req)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "ReadResource",
			fmt.Sprintf("resource %q read failed", uri), map[string]any{"uri": uri}, err)
	}
	content := make([]map[string]any, 0, len(res.Contents))
	for _, item := range res.Contents {
		content = append(content, map[string]any{"contents": item})
	}
	return &Result{Content: content, Raw: res}, nil
}

func (m *mcpgoClient) Request(ctx context.Context, method string, params any) (*Result, error) {
	switch method {
	case "tools/list":
		res, err := m.c.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return nil, wrapListErr(method, err)
		}
		items := make([]map[string]any, 0, len(res.Tools))
		for _, t := range res.Tools {
			items = append(items, map[string]any{
				"name": t.Name, "description": t.Description, "input": t.InputSchema,
			})
		}
		return &Result{Content: items, Raw: res.Tools}, nil
	case "prompts/list":
		res, err := m.c.ListPrompts(ctx, mcp.ListPromptsRequest{})
		if err != nil {
			return nil, wrapListErr(method, err)
		}
		items := make([]map[string]any, 0, len(res.Prompts))
		for _, p := range res.Prompts {
			items = append(items, map[string]any{
				"name": p.Name, "description": p.Description, "arguments": p.Arguments,
			})
		}
		return &Result{Content: items, Raw: res.Prompts}, nil
	case "resources/list":
		res, err := m.c.ListResources(ctx, mcp.ListResourcesRequest{})
		if err != nil {
			return nil, wrapListErr(method, err)
		}
		items := make([]map[string]any, 0, len(res.Resources))
		for _, r := range res.Resources {
			items = append(items, map[string]any{
				"name": r.Name, "description": r.Description, "uri": r.URI, "mimeType": r.MIMEType,
			})
		}
		return &Result{Content: items, Raw: res.Resources}, nil
	case "resource-templates/list":
		res, err := m.c.ListResourceTemplates(ctx, mcp.ListResourceTemplatesRequest{})
		if err != nil {
			return nil, wrapListErr(method, err)
		}
		items := make([]map[string]any, 0, len(res.ResourceTemplates))
		for _, rt := range res.ResourceTemplates {
			items = append(items, map[string]any{
				"name": rt.Name, "description": rt.Description,
				"uriTemplate": rt.URITemplate, "mimeType": rt.MIMEType,
			})
		}
		return &Result{Content: items, Raw: res.ResourceTemplates}, nil
	default:
		return nil, gwerrors.New(gwerrors.KindUpstreamError, "session", "Request",
			fmt.Sprintf("unsupported MCP method %q", method), map[string]any{"method": method})
	}
}

func wrapListErr(method string, err error) error {
	return gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "Request",
		fmt.Sprintf("%s failed", method), map[string]any{"method": method}, err)
}

func (m *mcpgoClient) Close() error {
	return m.c.Close()
}

func toResult(content []mcp.Content, isError bool, raw any) *Result {
	out := make([]map[string]any, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			out = append(out, map[string]any{"type": "text", "text": v.Text})
		default:
			out = append(out, map[string]any{"type": "unknown", "value": v})
		}
	}
	return &Result{Content: out, IsError: isError, Raw: raw}
}
