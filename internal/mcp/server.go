package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/saesagent/internal/agent"
	"github.com/Aman-CERP/saesagent/internal/records"
	"github.com/Aman-CERP/saesagent/internal/search"
	"github.com/Aman-CERP/saesagent/pkg/version"
)

// serverName is advertised to MCP clients.
const serverName = "saesagent"

// Search result clamping for search_regulations.
const (
	defaultLimit = 5
	maxLimit     = 20
)

// Backend is the part of agent.Service the tools call.
type Backend interface {
	Ask(ctx context.Context, req agent.Request) agent.Response
	SearchRegulations(ctx context.Context, query string, opts search.Options) (string, error)
	Status() agent.Status
}

var _ Backend = (*agent.Service)(nil)

// Server is the MCP server. It bridges AI clients with the
// question-answering pipeline.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	logger  *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Query    string `json:"query" jsonschema:"the question, in Spanish"`
	UserID   string `json:"id_usuario" jsonschema:"student boleta or professor employee number"`
	UserType string `json:"tipo_usuario" jsonschema:"alumno or profesor"`
	Reason   bool   `json:"razonamiento,omitempty" jsonschema:"skip templated answers and always generate"`
}

// AskOutput defines the output schema for the ask tool.
type AskOutput struct {
	Response  string  `json:"response" jsonschema:"the answer text"`
	Kind      string  `json:"tipo_respuesta" jsonschema:"direct, llm, cached or error"`
	FromCache bool    `json:"from_cache"`
	TimeMS    float64 `json:"tiempo_ms"`
	RequestID string  `json:"request_id"`
	Error     string  `json:"error,omitempty"`
}

// SearchInput defines the input schema for the search_regulations tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the topic to look up in the IPN regulations"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of fragments, default 5"`
}

// SearchOutput defines the output schema for the search_regulations tool.
type SearchOutput struct {
	Fragments []string `json:"fragments" jsonschema:"regulation fragments ordered by relevance"`
}

// StatusInput defines the input schema for the service_status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the service_status tool.
type StatusOutput struct {
	QueueSize          int           `json:"queue_size"`
	Processing         bool          `json:"processing"`
	TotalProcessed     int64         `json:"total_processed"`
	TotalErrors        int64         `json:"total_errors"`
	RetrievalAvailable bool          `json:"retrieval_available"`
	Caches             []CacheStatus `json:"caches"`
	TotalAnswers       int64         `json:"total_answers,omitempty"`
	DegradedAnswers    int64         `json:"degraded_answers,omitempty"`
}

// CacheStatus is one cache's occupancy and hit counters.
type CacheStatus struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
}

// ToStatusOutput flattens an agent status.
func ToStatusOutput(st agent.Status) StatusOutput {
	out := StatusOutput{
		QueueSize:          st.QueueSize,
		Processing:         st.Processing,
		TotalProcessed:     st.TotalProcessed,
		TotalErrors:        st.TotalErrors,
		RetrievalAvailable: st.Retrieval,
		Caches:             make([]CacheStatus, 0, len(st.Caches)),
	}
	for _, c := range st.Caches {
		out.Caches = append(out.Caches, CacheStatus{Name: c.Name, Size: c.Size, Hits: c.Hits, Misses: c.Misses})
	}
	if st.Telemetry != nil {
		out.TotalAnswers = st.Telemetry.TotalAnswers
		out.DegradedAnswers = st.Telemetry.DegradedCount
	}
	return out
}

// NewServer creates a new MCP server over backend.
func NewServer(backend Backend) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}

	s := &Server{
		backend: backend,
		logger:  slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: serverName, Version: version.Version},
		nil,
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "ask",
			Description: "Answer a student's or professor's question about their SAES academic record or the IPN regulations. Uses the same pipeline as the HTTP service, including caches.",
		},
		{
			Name:        "search_regulations",
			Description: "Return the IPN regulation fragments most relevant to a topic, without generating an answer.",
		},
		{
			Name:        "service_status",
			Description: "Report queue, cache and retrieval status of the service.",
		},
	}
}

// CallTool invokes a tool by name with JSON-decoded arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "ask":
		in := AskInput{}
		in.Query, _ = args["query"].(string)
		in.UserID, _ = args["id_usuario"].(string)
		in.UserType, _ = args["tipo_usuario"].(string)
		in.Reason, _ = args["razonamiento"].(bool)
		out, err := s.ask(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatAnswer(in.Query, toResponse(out)), nil
	case "search_regulations":
		in := SearchInput{}
		in.Query, _ = args["query"].(string)
		if l, ok := args["limit"].(float64); ok {
			in.Limit = int(l)
		}
		out, err := s.searchRegulations(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatRegulations(in.Query, out.Fragments), nil
	case "service_status":
		return ToStatusOutput(s.backend.Status()), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) registerTools() {
	tools := s.ListTools()
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpAskHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpStatusHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// mcpAskHandler is the MCP SDK handler for the ask tool.
func (s *Server) mcpAskHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	out, err := s.ask(ctx, input)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, out, nil
}

// mcpSearchHandler is the MCP SDK handler for the search_regulations tool.
func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.searchRegulations(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, out, nil
}

// mcpStatusHandler is the MCP SDK handler for the service_status tool.
func (s *Server) mcpStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	StatusOutput,
	error,
) {
	return nil, ToStatusOutput(s.backend.Status()), nil
}

func (s *Server) ask(ctx context.Context, in AskInput) (AskOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return AskOutput{}, NewInvalidParamsError("query parameter is required")
	}
	if _, err := records.ParseUserType(in.UserType); err != nil {
		return AskOutput{}, NewInvalidParamsError("tipo_usuario must be 'alumno' or 'profesor'")
	}

	requestID := generateRequestID()
	start := time.Now()
	s.logger.Info("mcp_ask_started",
		slog.String("request_id", requestID),
		slog.String("user_type", in.UserType))

	resp := s.backend.Ask(ctx, agent.Request{
		Query:          in.Query,
		UserID:         in.UserID,
		UserType:       in.UserType,
		ForceReasoning: in.Reason,
	})

	s.logger.Info("mcp_ask_completed",
		slog.String("request_id", requestID),
		slog.String("kind", string(resp.Kind)),
		slog.Duration("duration", time.Since(start)))

	return AskOutput{
		Response:  resp.Response,
		Kind:      string(resp.Kind),
		FromCache: resp.FromCache,
		TimeMS:    resp.TimeMS,
		RequestID: resp.RequestID,
		Error:     resp.Error,
	}, nil
}

func (s *Server) searchRegulations(ctx context.Context, in SearchInput) (SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	opts := search.DefaultOptions()
	opts.TopMerge = clampLimit(in.Limit, defaultLimit, 1, maxLimit)

	text, err := s.backend.SearchRegulations(ctx, in.Query, opts)
	if err != nil {
		s.logger.Warn("mcp_search_failed", slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}
	return SearchOutput{Fragments: SplitFragments(text)}, nil
}

// Serve runs the server over the named transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_started", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func toResponse(out AskOutput) agent.Response {
	return agent.Response{
		Response:  out.Response,
		Kind:      agent.AnswerKind(out.Kind),
		FromCache: out.FromCache,
		TimeMS:    out.TimeMS,
		RequestID: out.RequestID,
		Error:     out.Error,
	}
}

func clampLimit(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}
	return min(max(v, lo), hi)
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
