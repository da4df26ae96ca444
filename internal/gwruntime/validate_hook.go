package gwruntime

import (
	"context"

	"github.com/mcp-gateway/toolkit/internal/callctx"
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/validator"
)

// ValidateCallPreHook returns a PreHook that validates tools/call and
// prompts/get arguments against sc.Validator before the before phase runs,
// implementing spec §8's validation-rejection seed scenario. Other methods
// (list/read operations) pass through unvalidated — they carry no input
// schema to validate against.
func (sc *SessionContext) ValidateCallPreHook() PreHook {
	return func(ctx context.Context, pctx *callctx.PipelineContext) error {
		var kind validator.Kind
		switch pctx.Method {
		case "tools/call":
			kind = validator.KindTool
		case "prompts/get":
			kind = validator.KindPrompt
		default:
			return nil
		}

		m, _ := pctx.Params.(map[string]any)
		name, _ := m["name"].(string)
		args := m["arguments"]

		result := sc.Validator.Validate(kind, name, args)
		if result.Valid {
			return nil
		}

		vars := map[string]any{"name": name, "errors": result.Errors}
		return gwerrors.New(gwerrors.KindValidation, "gwruntime", "ValidateCallPreHook",
			"call arguments failed schema validation", vars)
	}
}
