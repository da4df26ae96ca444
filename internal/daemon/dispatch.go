package daemon

import (
	"context"
	"encoding/json"
	"os"

	"github.com/mcp-gateway/toolkit/internal/catalog"
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/validator"
)

// dispatch routes one authenticated Frame to the Registry and returns its
// Reply (spec §4.8 RPC surface).
func (s *Server) dispatch(ctx context.Context, frame Frame) Reply {
	switch frame.Method {
	case MethodHealthPing:
		return s.replyOK(frame.ID, HealthPingResult{
			OK:       true,
			PID:      os.Getpid(),
			Endpoint: s.endpoint,
			Sessions: len(s.registry.List()),
		})

	case MethodSessionOpen:
		var params SessionOpenParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return s.replyInvalidParams(frame.ID, err)
		}
		res, err := s.registry.Open(ctx, params.Spec)
		if err != nil {
			return s.replyErr(frame.ID, err)
		}
		return s.replyOK(frame.ID, res)

	case MethodSessionExecute:
		var params SessionExecuteParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return s.replyInvalidParams(frame.ID, err)
		}
		sess, err := s.registry.Execute(params.Name)
		if err != nil {
			return s.replyErr(frame.ID, err)
		}
		var callParams any
		if len(params.Params) > 0 {
			if err := json.Unmarshal(params.Params, &callParams); err != nil {
				return s.replyInvalidParams(frame.ID, err)
			}
		}
		result, err := sess.Call(ctx, params.Method, callParams)
		if err != nil {
			return s.replyErr(frame.ID, err)
		}
		return s.replyOK(frame.ID, result)

	case MethodSessionCatalog:
		var params SessionCatalogParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return s.replyInvalidParams(frame.ID, err)
		}
		sess, err := s.registry.Catalog(params.Name)
		if err != nil {
			return s.replyErr(frame.ID, err)
		}
		cat, err := catalog.Extract(ctx, sess, validator.DefaultLimits().MaxTemplateParamLength)
		if err != nil {
			return s.replyErr(frame.ID, err)
		}
		return s.replyOK(frame.ID, cat)

	case MethodSessionList:
		return s.replyOK(frame.ID, s.registry.List())

	case MethodSessionStop:
		var params SessionStopParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return s.replyInvalidParams(frame.ID, err)
		}
		if err := s.registry.Stop(params.Name, "stopped by client"); err != nil {
			return s.replyErr(frame.ID, err)
		}
		return s.replyOK(frame.ID, map[string]bool{"stopped": true})

	case MethodSessionStopAll:
		entries := s.registry.StopAll("stopped by client")
		return s.replyOK(frame.ID, entries)

	default:
		return s.replyErr(frame.ID, gwerrors.New(gwerrors.KindSessionRPCUnknown, "daemon", "dispatch",
			"unknown RPC method", map[string]any{"method": frame.Method}))
	}
}

func (s *Server) replyOK(id string, result any) Reply {
	return Reply{ID: id, OK: true, Result: result}
}

func (s *Server) replyErr(id string, err error) Reply {
	return Reply{ID: id, OK: false, Error: replyErrorFor(err)}
}

func (s *Server) replyInvalidParams(id string, cause error) Reply {
	return s.replyErr(id, gwerrors.Wrap(gwerrors.KindSessionRPCInvalidJSON, "daemon", "dispatch",
		"request params were not valid JSON for this method", nil, cause))
}
