// ABOUTME: MCP server initialization and configuration for attest.
// ABOUTME: Sets up server with compliance tools for AI agent access.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/attest/internal/engine"
	"github.com/2389-research/attest/internal/storage"
)

// Server wraps the MCP server with the compliance pipelines and registries.
type Server struct {
	mcp       *gomcp.Server
	validator *engine.Validator
	mapper    *engine.Mapper
	evidence  *storage.EvidenceStore
	mappings  *storage.MappingStore
}

// NewServer creates an MCP server exposing the compliance tools.
func NewServer(validator *engine.Validator, mapper *engine.Mapper, evidence *storage.EvidenceStore, mappings *storage.MappingStore) (*Server, error) {
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if mapper == nil {
		return nil, fmt.Errorf("mapper is required")
	}
	if evidence == nil || mappings == nil {
		return nil, fmt.Errorf("registry stores are required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "attest",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		validator: validator,
		mapper:    mapper,
		evidence:  evidence,
		mappings:  mappings,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
