// ABOUTME: Policy mapping pipeline: split clauses, embed, rank SCF controls per clause.
// ABOUTME: Also exposes free-text control search for the CLI and MCP tools.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/2389-research/attest/internal/embeddings"
	"github.com/2389-research/attest/internal/extract"
	"github.com/2389-research/attest/internal/models"
	"github.com/2389-research/attest/internal/storage"
)

const controlSidecar = "scf_embeddings.json"

// MapperConfig wires the mapping pipeline's collaborators.
type MapperConfig struct {
	Extractor  *extract.Extractor
	Embedder   embeddings.Embedder
	Reference  *storage.ReferenceStore
	Registry   *storage.MappingStore
	BuildIndex IndexBuilder
	DataDir    string
	Cutoffs    models.Cutoffs
	Threshold  float64
	TopK       int
	Logger     *zap.Logger
}

// Mapper maps policy clauses to SCF controls and records the results.
type Mapper struct {
	extractor  *extract.Extractor
	embedder   embeddings.Embedder
	ref        *storage.ReferenceStore
	registry   *storage.MappingStore
	buildIndex IndexBuilder
	dataDir    string
	cutoffs    models.Cutoffs
	threshold  float64
	topK       int
	log        *zap.Logger
}

// NewMapper creates a mapper. Zero-value cutoffs, threshold, and topK fall
// back to the shipped defaults.
func NewMapper(cfg MapperConfig) *Mapper {
	if cfg.BuildIndex == nil {
		cfg.BuildIndex = MemoryIndexBuilder
	}
	if cfg.Cutoffs == (models.Cutoffs{}) {
		cfg.Cutoffs = models.DefaultCutoffs
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = models.DefaultMappingThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Mapper{
		extractor:  cfg.Extractor,
		embedder:   cfg.Embedder,
		ref:        cfg.Reference,
		registry:   cfg.Registry,
		buildIndex: cfg.BuildIndex,
		dataDir:    cfg.DataDir,
		cutoffs:    cfg.Cutoffs,
		threshold:  cfg.Threshold,
		topK:       cfg.TopK,
		log:        cfg.Logger,
	}
}

// ClauseMapping is the mapped candidates for one policy clause.
type ClauseMapping struct {
	Clause  models.Clause
	Matches []models.ControlMatch
}

// MapPolicyFile extracts a policy document and maps each clause to controls.
func (m *Mapper) MapPolicyFile(ctx context.Context, path, policyID string) ([]ClauseMapping, error) {
	if policyID == "" {
		policyID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	extraction, err := m.extractor.ExtractFile(ctx, path)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	return m.MapText(ctx, extraction.Text, policyID)
}

// MapText splits policy text into clauses and maps each one to its
// best-ranked controls. Every clause result is appended to the mapping
// registry; clauses whose matches all fall below the threshold still record
// the best candidate at the very-low tier.
func (m *Mapper) MapText(ctx context.Context, text, policyID string) ([]ClauseMapping, error) {
	clauses := extract.SplitClauses(text)
	if len(clauses) == 0 {
		return nil, &ExtractionError{Err: fmt.Errorf("no clauses found in policy text")}
	}

	clauseVectors, err := m.embedder.EmbedBatch(ctx, clauses)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	controls, controlVectors, err := m.controlEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	if len(controls) == 0 {
		return nil, &MatchError{Err: fmt.Errorf("no controls in the reference catalog; run the reference import first")}
	}

	idx, err := m.buildIndex(controlVectors)
	if err != nil {
		return nil, &MatchError{Err: err}
	}

	mappings := make([]ClauseMapping, 0, len(clauses))
	for i, clauseText := range clauses {
		clause := models.Clause{PolicyID: policyID, Index: i, Text: clauseText}

		results, err := idx.Search(clauseVectors[i], m.topK)
		if err != nil {
			return nil, &MatchError{Err: err}
		}

		candidates := make([]models.ControlMatch, 0, len(results))
		for _, r := range results {
			ctrl := controls[r.Row]
			candidates = append(candidates, models.ControlMatch{
				SCFID:  ctrl.SCFID,
				Domain: ctrl.Domain,
				Text:   ctrl.Description,
				Score:  r.Score,
			})
		}
		matches := classifyCandidates(mergeCandidates(candidates), m.cutoffs, m.threshold)

		for j := range matches {
			rec := models.NewMappingRecord(clause, matches[j])
			rec.Explanation = explainMapping(matches[j])
			rec.Stage = StagePersisted
			if err := m.registry.Append(rec); err != nil {
				return nil, &StorageError{Err: err}
			}
		}
		mappings = append(mappings, ClauseMapping{Clause: clause, Matches: matches})
	}

	m.log.Info("policy mapped",
		zap.String("policy_id", policyID),
		zap.Int("clauses", len(clauses)))
	return mappings, nil
}

// SearchControls ranks the control catalog against a free-text query.
// Results are merged and tier-classified but not persisted.
func (m *Mapper) SearchControls(ctx context.Context, query string, limit int) ([]models.ControlMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = m.topK
	}

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	controls, vectors, err := m.controlEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	if len(controls) == 0 {
		return nil, &MatchError{Err: fmt.Errorf("no controls in the reference catalog; run the reference import first")}
	}

	idx, err := m.buildIndex(vectors)
	if err != nil {
		return nil, &MatchError{Err: err}
	}
	results, err := idx.Search(vec, limit)
	if err != nil {
		return nil, &MatchError{Err: err}
	}

	candidates := make([]models.ControlMatch, 0, len(results))
	for _, r := range results {
		ctrl := controls[r.Row]
		candidates = append(candidates, models.ControlMatch{
			SCFID:  ctrl.SCFID,
			Domain: ctrl.Domain,
			Text:   ctrl.Description,
			Score:  r.Score,
		})
	}
	return classifyCandidates(mergeCandidates(candidates), m.cutoffs, m.threshold), nil
}

// classifyCandidates assigns tiers to candidates at or above the threshold.
// When nothing clears the threshold, the single best candidate survives at
// the very-low tier so the caller always sees the nearest control.
func classifyCandidates(candidates []models.ControlMatch, cutoffs models.Cutoffs, threshold float64) []models.ControlMatch {
	var kept []models.ControlMatch
	for _, c := range candidates {
		if c.Score < threshold {
			continue
		}
		c.Tier = models.ClassifyTier(c.Score, cutoffs)
		kept = append(kept, c)
	}
	if len(kept) == 0 && len(candidates) > 0 {
		best := candidates[0]
		best.Tier = models.TierVeryLow
		kept = append(kept, best)
	}
	return kept
}

// controlEmbeddings returns the control catalog with its embedding matrix,
// regenerating the sidecar when the catalog or model changed.
func (m *Mapper) controlEmbeddings(ctx context.Context) ([]models.Control, [][]float64, error) {
	controls, err := m.ref.Controls()
	if err != nil {
		return nil, nil, &MatchError{Err: err}
	}
	if len(controls) == 0 {
		return nil, nil, nil
	}

	sidecarPath := filepath.Join(m.dataDir, controlSidecar)
	set, err := embeddings.LoadSet(sidecarPath)
	if err == nil && !set.Stale(len(controls), m.embedder.Name()) {
		return controls, set.Vectors, nil
	}
	if err != nil && !os.IsNotExist(err) {
		m.log.Warn("discarding unreadable embedding sidecar", zap.Error(err))
	}

	texts := make([]string, len(controls))
	for i, c := range controls {
		texts[i] = c.Description
	}
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, &EmbeddingError{Err: err}
	}

	fresh := &embeddings.Set{
		Model:     m.embedder.Name(),
		Dimension: m.embedder.Dimension(),
		Count:     len(controls),
		Vectors:   vectors,
	}
	if err := embeddings.SaveSet(sidecarPath, fresh); err != nil {
		m.log.Warn("failed to save embedding sidecar", zap.Error(err))
	}
	return controls, vectors, nil
}

// explainMapping builds the templated mapping rationale.
func explainMapping(match models.ControlMatch) string {
	switch match.Tier {
	case models.TierVeryLow:
		return fmt.Sprintf(
			"No control cleared the similarity threshold; nearest is %s (%s) at %.2f.",
			match.SCFID, match.Domain, match.Score)
	default:
		return fmt.Sprintf(
			"Clause aligns with %s (%s) at %.2f similarity, %s confidence.",
			match.SCFID, match.Domain, match.Score, strings.ToLower(string(match.Tier)))
	}
}
