package gwruntime

import (
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/policy"
)

// ErrorEnvelope is the normalized error shape surfaces render from (spec
// §4.9: kind/policy mapping plus a stable docs reference).
type ErrorEnvelope struct {
	Kind             string
	Message          string
	HTTPStatus       int
	GraphQLExtension string
	DocsRef          string
	Instance         string
	RequestID        string
	Details          map[string]any
}

// Normalize builds the ErrorEnvelope surfaces send back to callers for err,
// honoring errors.exposeDetails (spec §6 errors{exposeDetails=false}).
func (rt *Runtime) Normalize(err error, instance, requestID string) ErrorEnvelope {
	mapping := policy.ForError(err)
	env := ErrorEnvelope{
		Message:          err.Error(),
		HTTPStatus:       mapping.HTTPStatus,
		GraphQLExtension: mapping.GraphQLExtension,
		Instance:         instance,
		RequestID:        requestID,
	}

	var ge *gwerrors.Error
	if k, ok := gwerrors.KindOf(err); ok {
		env.Kind = string(k)
		if asErr, ok := err.(*gwerrors.Error); ok {
			ge = asErr
		}
	}
	if ge == nil {
		// err may wrap a *gwerrors.Error rather than be one directly;
		// KindOf already walked Unwrap, so look it up the same way for the
		// docs ref and vars.
		ge = unwrapToGatewayError(err)
	}

	if ge != nil {
		env.DocsRef = ge.DocsRef()
		if rt.opts.Errors.ExposeDetails {
			env.Details = ge.Vars
		}
	}

	return env
}

func unwrapToGatewayError(err error) *gwerrors.Error {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if ge, ok := err.(*gwerrors.Error); ok {
			return ge
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}
