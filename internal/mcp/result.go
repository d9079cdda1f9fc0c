package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type resultParams struct {
	RequestID string `json:"request_id" jsonschema:"the request ID from a previous bridge_exec result"`
}

func (h *handler) resultHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params resultParams) (*sdkmcp.CallToolResult, any, error) {
	if params.RequestID == "" {
		return errorResult("request_id is required")
	}

	res, err := h.store.Load(params.RequestID)
	if err != nil {
		return errorResult(fmt.Sprintf("no stored result for %s: %v", params.RequestID, err))
	}

	return textResult(formatResult(res))
}
