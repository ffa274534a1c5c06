package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/saesagent/internal/intent"
)

// Resource URIs.
const (
	StatusURI   = "saes://status"
	GlossaryURI = "saes://glossary"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "status",
		URI:         StatusURI,
		Description: "Queue, cache and retrieval status as JSON",
		MIMEType:    "application/json",
	}, s.readStatus)

	s.mcp.AddResource(&mcp.Resource{
		Name:        "glossary",
		URI:         GlossaryURI,
		Description: "Terms defined by the IPN general school regulations",
		MIMEType:    "text/markdown",
	}, s.readGlossary)
}

func (s *Server) readStatus(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(s.backend.Status(), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: StatusURI, MIMEType: "application/json", Text: string(data)}},
	}, nil
}

func (s *Server) readGlossary(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: GlossaryURI, MIMEType: "text/markdown", Text: FormatGlossary(intent.Glossary)}},
	}, nil
}

// FormatGlossary renders the glossary as a markdown definition list.
func FormatGlossary(terms []intent.Term) string {
	var sb strings.Builder
	sb.WriteString("# Glosario del Reglamento General de Estudios\n\n")
	for _, t := range terms {
		fmt.Fprintf(&sb, "**%s**: %s\n\n", t.Name, t.Definition)
	}
	return sb.String()
}
