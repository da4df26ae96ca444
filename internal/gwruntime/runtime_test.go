package gwruntime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/toolkit/internal/breaker"
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/gwruntime"
	"github.com/mcp-gateway/toolkit/internal/manager"
	"github.com/mcp-gateway/toolkit/internal/session"
)

var echoToolList = []map[string]any{
	{
		"name":        "echo",
		"description": "echoes text",
		"input": map[string]any{
			"type":     "object",
			"required": []any{"text"},
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
				"loud": map[string]any{"type": "boolean"},
			},
		},
	},
}

func echoHandler() session.InMemoryHandler {
	return session.InMemoryHandlerFunc(func(ctx context.Context, method string, params any) (*session.Result, error) {
		switch method {
		case "tools/list":
			return &session.Result{Content: echoToolList}, nil
		case "prompts/list", "resources/list", "resource-templates/list":
			return &session.Result{Content: nil}, nil
		case "tools/call":
			m := params.(map[string]any)
			args, _ := m["arguments"].(map[string]any)
			text, _ := args["text"].(string)
			return &session.Result{Content: []map[string]any{{"type": "text", "text": text}}}, nil
		default:
			return nil, session.ErrUnsupportedMethod(method)
		}
	})
}

func newEchoRuntime(t *testing.T) (*gwruntime.Runtime, *gwruntime.SessionContext) {
	t.Helper()
	sess := session.NewInMemorySession("echo-server", session.ServerInfo{Name: "echo", Version: "v1"}, echoHandler())
	rt, err := gwruntime.New(context.Background(), gwruntime.Options{Session: sess})
	require.NoError(t, err)
	sc, err := rt.PerSession("echo-server")
	require.NoError(t, err)
	return rt, sc
}

func TestEchoSuccess(t *testing.T) {
	rt, sc := newEchoRuntime(t)

	params := map[string]any{"name": "echo", "arguments": map[string]any{"text": "hello", "loud": false}}
	pctx, err := rt.Execute(context.Background(), manager.Request{}, "tools/call", params, nil, sc.ValidateCallPreHook())
	require.NoError(t, err)

	result := pctx.Result.(*session.Result)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hello", result.Content[0]["text"])
}

func TestValidationRejection(t *testing.T) {
	_, sc := newEchoRuntime(t)
	rt2, err := gwruntime.New(context.Background(), gwruntime.Options{Session: sc.Session})
	require.NoError(t, err)

	params := map[string]any{"name": "echo", "arguments": map[string]any{"loud": false}}
	_, err = rt2.Execute(context.Background(), manager.Request{}, "tools/call", params, nil, sc.ValidateCallPreHook())
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.KindValidation))
}

func TestToolErrorPreserved(t *testing.T) {
	handler := session.InMemoryHandlerFunc(func(ctx context.Context, method string, params any) (*session.Result, error) {
		switch method {
		case "tools/list":
			return &session.Result{Content: []map[string]any{{"name": "fail-gracefully"}}}, nil
		case "prompts/list", "resources/list", "resource-templates/list":
			return &session.Result{Content: nil}, nil
		case "tools/call":
			return &session.Result{Content: []map[string]any{{"type": "text", "text": "boom"}}, IsError: true}, nil
		default:
			return nil, session.ErrUnsupportedMethod(method)
		}
	})
	sess := session.NewInMemorySession("flaky", session.ServerInfo{Name: "flaky", Version: "v1"}, handler)
	rt, err := gwruntime.New(context.Background(), gwruntime.Options{Session: sess})
	require.NoError(t, err)

	params := map[string]any{"name": "fail-gracefully", "arguments": map[string]any{}}
	pctx, err := rt.Execute(context.Background(), manager.Request{}, "tools/call", params, nil, nil)
	require.NoError(t, err)
	result := pctx.Result.(*session.Result)
	assert.True(t, result.IsError)
}

func TestBreakerOpensAfterTimeout(t *testing.T) {
	handler := session.InMemoryHandlerFunc(func(ctx context.Context, method string, params any) (*session.Result, error) {
		switch method {
		case "tools/list":
			return &session.Result{Content: []map[string]any{{"name": "slow"}}}, nil
		case "prompts/list", "resources/list", "resource-templates/list":
			return &session.Result{Content: nil}, nil
		case "tools/call":
			time.Sleep(50 * time.Millisecond)
			return &session.Result{Content: []map[string]any{}}, nil
		default:
			return nil, session.ErrUnsupportedMethod(method)
		}
	})
	sess := session.NewInMemorySession("slow-server", session.ServerInfo{Name: "slow", Version: "v1"}, handler)
	rt, err := gwruntime.New(context.Background(), gwruntime.Options{
		Session: sess,
		Resilience: gwruntime.ResilienceOptions{
			Enabled: true,
			Breaker: breaker.Options{
				Timeout:                  5 * time.Millisecond,
				ErrorThresholdPercentage: 50,
				ResetTimeout:             time.Minute,
				VolumeThreshold:          1,
			},
		},
	})
	require.NoError(t, err)

	params := map[string]any{"name": "slow", "arguments": map[string]any{}}

	_, err = rt.Execute(context.Background(), manager.Request{}, "tools/call", params, nil, nil)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.KindUpstreamTimeout))

	_, err = rt.Execute(context.Background(), manager.Request{}, "tools/call", params, nil, nil)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.KindCircuitOpen))
}

func TestManagerAuthRequired(t *testing.T) {
	built := false
	mgr := managerRequiring(t, &built)

	rt, err := gwruntime.New(context.Background(), gwruntime.Options{Manager: mgr})
	require.NoError(t, err)

	_, err = rt.Execute(context.Background(), manager.Request{}, "tools/call", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.KindAuthRequired))
	assert.False(t, built)
}

func managerRequiring(t *testing.T, built *bool) *manager.Manager {
	t.Helper()
	return manager.New(manager.Options{
		Max:      10,
		TTL:      time.Minute,
		AuthMode: manager.AuthRequired,
		Factory: func(ctx context.Context, identity manager.Identity, req manager.Request) (session.Session, error) {
			*built = true
			return session.NewInMemorySession("x", session.ServerInfo{}, echoHandler()), nil
		},
	})
}

func TestPolicyLockRefusesBaselineProfile(t *testing.T) {
	sess := session.NewInMemorySession("x", session.ServerInfo{}, echoHandler())
	_, err := gwruntime.New(context.Background(), gwruntime.Options{
		Session:    sess,
		Guardrails: gwruntime.GuardrailsOptions{Profile: "baseline"},
		Policy:     gwruntime.PolicyOptions{Lock: true},
	})
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.KindPolicyLocked))
}
