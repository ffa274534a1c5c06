package agent

import (
	"context"
	"log/slog"
	"strings"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/llm"
	"github.com/Aman-CERP/saesagent/internal/records"
	"github.com/Aman-CERP/saesagent/internal/search"
)

// ContextSearcher returns the regulation context for a question.
// *search.Retriever implements it.
type ContextSearcher interface {
	Search(ctx context.Context, question string, opts search.Options) (string, error)
}

var _ ContextSearcher = (*search.Retriever)(nil)

// ErrRetrievalUnavailable is returned by SearchRegulations when no searcher
// is loaded.
var ErrRetrievalUnavailable = saeserrors.New(saeserrors.ErrCodeRetrievalFailed,
	"regulation retrieval is not available", nil).
	WithSuggestion("Run 'saesagent index' to build the vector index, then restart.")

// searcherSlot boxes the current searcher for atomic swaps.
type searcherSlot struct {
	s ContextSearcher
}

// Role suffixes steer retrieval toward the asker's obligations.
const (
	professorExpansion = " docente enseñanza responsabilidades"
	studentExpansion   = " estudiante requisitos académicos"
)

// ExpandForRole appends the role's retrieval terms to query.
func ExpandForRole(query, userType string) string {
	switch records.UserType(strings.ToLower(userType)) {
	case records.Professor:
		return query + professorExpansion
	case records.Student:
		return query + studentExpansion
	default:
		return query
	}
}

func contextKey(query, userType string) string {
	return userType + "\x00" + query
}

// regulationContext returns the deduplicated regulation context for the
// generative prompt. Failures degrade to an empty context.
func (s *Service) regulationContext(ctx context.Context, query, userType string) string {
	slot := s.searcher.Load()
	if slot == nil {
		return ""
	}

	key := contextKey(query, userType)
	if text, ok := s.contexts.Get(key); ok {
		return text
	}

	expanded := ExpandForRole(query, userType)
	slog.Debug("retrieval_query", slog.String("user_type", userType), slog.String("query", expanded))

	raw, err := slot.s.Search(ctx, expanded, s.searchOpts)
	if err != nil {
		slog.Warn("retrieval_failed", slog.String("error", err.Error()))
		return ""
	}
	text := llm.DedupContext(raw)
	s.contexts.Add(key, text)
	return text
}

// SearchRegulations runs a raw retrieval against the current searcher,
// without role expansion or context caching.
func (s *Service) SearchRegulations(ctx context.Context, query string, opts search.Options) (string, error) {
	slot := s.searcher.Load()
	if slot == nil {
		return "", ErrRetrievalUnavailable
	}
	if opts == (search.Options{}) {
		opts = s.searchOpts
	}
	return slot.s.Search(ctx, query, opts)
}
