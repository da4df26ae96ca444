// Package httpgw is a thin REST adapter over gwruntime.Runtime (spec §6
// "surfaces runnable from cmd/"): one route per upstream call, JSON in/out,
// errors rendered from Runtime.Normalize. Grounded on the teacher's
// internal/server HTTP handlers, trimmed to exactly the gateway's call
// surface instead of the teacher's management/OAuth/UI routes.
package httpgw

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcp-gateway/toolkit/internal/gwruntime"
	"github.com/mcp-gateway/toolkit/internal/manager"
)

// Gateway exposes a Runtime over HTTP: POST /servers/{name}/tools/{method}.
type Gateway struct {
	rt     *gwruntime.Runtime
	logger *zap.Logger
	mux    *http.ServeMux
}

// New builds a Gateway routing every call through rt.
func New(rt *gwruntime.Runtime, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{rt: rt, logger: logger, mux: http.NewServeMux()}
	g.mux.HandleFunc("/healthz", g.handleHealth)
	g.mux.HandleFunc("/servers/", g.handleCall)
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// callRequest is the JSON body for POST /servers/{name}/tools/{method}.
type callRequest struct {
	Params any            `json:"params"`
	Meta   map[string]any `json:"meta"`
}

// handleCall implements POST /servers/{serverName}/tools/{method}, the
// gateway's one generic call route (spec §4.7 Execute).
func (g *Gateway) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	serverName, method, ok := parseCallPath(r.URL.Path)
	if !ok {
		http.Error(w, "expected /servers/{name}/tools/{method}", http.StatusBadRequest)
		return
	}

	var body callRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req := manager.Request{
		AuthorizationHeader: r.Header.Get("Authorization"),
		ServerName:          serverName,
	}

	start := time.Now()
	pctx, err := g.rt.Execute(r.Context(), req, method, body.Params, body.Meta, nil)
	elapsed := time.Since(start)

	if err != nil {
		env := g.rt.Normalize(err, r.URL.Path, requestID)
		g.logger.Warn("call failed",
			zap.String("server", serverName), zap.String("method", method),
			zap.String("kind", env.Kind), zap.Duration("elapsed", elapsed))
		writeJSON(w, env.HTTPStatus, env)
		return
	}

	g.logger.Info("call succeeded",
		zap.String("server", serverName), zap.String("method", method),
		zap.Duration("elapsed", elapsed))
	writeJSON(w, http.StatusOK, map[string]any{
		"requestId": requestID,
		"result":    pctx.Result,
	})
}

func parseCallPath(path string) (serverName, method string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "servers" || parts[2] != "tools" {
		return "", "", false
	}
	return parts[1], parts[3], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
