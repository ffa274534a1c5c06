package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Aman-CERP/saesagent/internal/config"
	"github.com/Aman-CERP/saesagent/internal/embed"
	"github.com/Aman-CERP/saesagent/internal/records"
	"github.com/Aman-CERP/saesagent/internal/store"
)

// embedderProbeTimeout bounds the availability probe of a remote embedder.
const embedderProbeTimeout = 5 * time.Second

// CheckCorpus verifies the regulation corpus parses and is not empty.
func (c *Checker) CheckCorpus(rc config.RetrievalConfig) CheckResult {
	result := CheckResult{Name: "corpus", Required: rc.Required}

	corpus, err := store.LoadCorpus(rc.CorpusPath)
	if err != nil {
		result.Status = missingStatus(rc.Required)
		result.Message = "Corpus unavailable"
		result.Details = err.Error()
		return result
	}
	if corpus.Len() == 0 {
		result.Status = missingStatus(rc.Required)
		result.Message = "Corpus has no fragments"
		result.Details = rc.CorpusPath
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d fragments", corpus.Len())
	result.Details = rc.CorpusPath
	return result
}

// CheckIndex verifies the vector index loads and has one vector per
// corpus fragment.
func (c *Checker) CheckIndex(rc config.RetrievalConfig) CheckResult {
	result := CheckResult{Name: "vector_index", Required: rc.Required}

	idx, err := store.LoadHNSWIndex(rc.IndexPath)
	if err != nil {
		result.Status = missingStatus(rc.Required)
		result.Message = "Index unavailable, run 'saesagent index'"
		result.Details = err.Error()
		return result
	}
	defer func() { _ = idx.Close() }()

	if corpus, err := store.LoadCorpus(rc.CorpusPath); err == nil {
		if err := idx.CheckAlignment(corpus.Len()); err != nil {
			result.Status = missingStatus(rc.Required)
			result.Message = "Index does not match corpus, rebuild it"
			result.Details = err.Error()
			return result
		}
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d vectors, %d dims", idx.Len(), idx.Dimensions())
	if idx.Model() != "" {
		result.Details = "model " + idx.Model()
	}
	return result
}

// CheckEmbedder probes the query embedder.
func (c *Checker) CheckEmbedder(ctx context.Context, emb embed.Embedder) CheckResult {
	result := CheckResult{Name: "embedder"}
	if emb == nil {
		result.Status = StatusWarn
		result.Message = "Embedder not configured"
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, embedderProbeTimeout)
	defer cancel()
	if !emb.Available(probeCtx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s is not reachable", emb.ModelName())
		result.Details = "regulation questions fall back to lexical search"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dims)", emb.ModelName(), emb.Dimensions())
	return result
}

// CheckGeneration reports whether the generator can be built.
func (c *Checker) CheckGeneration(gc config.GenerationConfig) CheckResult {
	result := CheckResult{Name: "generation"}
	if gc.APIKey == "" {
		result.Status = StatusWarn
		result.Message = "No API key, complex questions are not answered"
		result.Details = "set generation.api_key or GEMINI_API_KEY"
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s %s", gc.Provider, gc.Model)
	return result
}

// CheckRecords opens the configured records backend once.
func (c *Checker) CheckRecords(ctx context.Context, rc config.RecordsConfig) CheckResult {
	result := CheckResult{Name: "records"}

	var (
		p   records.Provider
		err error
	)
	switch strings.ToLower(rc.Provider) {
	case config.RecordsMySQL:
		p, err = records.OpenMySQL(ctx, records.SQLConfig{
			DSN:          rc.DSN,
			Host:         rc.Host,
			Port:         rc.Port,
			User:         rc.User,
			Password:     rc.Password,
			Name:         rc.Name,
			MaxOpenConns: 1,
		})
		result.Details = fmt.Sprintf("%s:%d/%s", rc.Host, rc.Port, rc.Name)
	case config.RecordsFile:
		var fp *records.FileProvider
		fp, err = records.LoadFileProvider(rc.FixturesPath)
		if err == nil {
			result.Details = fmt.Sprintf("%d records in %s", fp.Len(), rc.FixturesPath)
			p = fp
		}
	default:
		result.Status = StatusWarn
		result.Message = "No records backend, personal questions are not answered"
		return result
	}
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s backend unavailable", rc.Provider)
		result.Details = err.Error()
		return result
	}
	defer func() { _ = p.Close() }()

	result.Status = StatusPass
	result.Message = rc.Provider
	return result
}

// CheckWritePermissions verifies dir can hold new files.
func (c *Checker) CheckWritePermissions(name, dir string) CheckResult {
	result := CheckResult{Name: name}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusWarn
		result.Message = "Cannot create directory"
		result.Details = err.Error()
		return result
	}
	f, err := os.CreateTemp(dir, ".saesagent-write-test-*")
	if err != nil {
		result.Status = StatusWarn
		result.Message = "Directory is not writable"
		result.Details = err.Error()
		return result
	}
	name = f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "Writable"
	result.Details = dir
	return result
}

func missingStatus(required bool) CheckStatus {
	if required {
		return StatusFail
	}
	return StatusWarn
}
