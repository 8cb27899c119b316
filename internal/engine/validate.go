// ABOUTME: Evidence validation pipeline: extract, embed, match against ERL artifacts.
// ABOUTME: Failed stages become persisted failure records so the audit trail is complete.
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

const artifactSidecar = "erl_embeddings.json"

// ValidatorConfig wires the validation pipeline's collaborators.
type ValidatorConfig struct {
	Extractor  *extract.Extractor
	Embedder   embeddings.Embedder
	Reference  *storage.ReferenceStore
	Registry   *storage.EvidenceStore
	Files      *storage.FileStore
	BuildIndex IndexBuilder
	DataDir    string
	Threshold  float64
	TopK       int
	Logger     *zap.Logger
}

// Validator runs evidence files through the validation pipeline and
// persists every outcome, including failures.
type Validator struct {
	extractor  *extract.Extractor
	embedder   embeddings.Embedder
	ref        *storage.ReferenceStore
	registry   *storage.EvidenceStore
	files      *storage.FileStore
	buildIndex IndexBuilder
	dataDir    string
	threshold  float64
	topK       int
	log        *zap.Logger
}

// NewValidator creates a validator. Zero-value thresholds and topK fall
// back to the shipped defaults.
func NewValidator(cfg ValidatorConfig) *Validator {
	if cfg.BuildIndex == nil {
		cfg.BuildIndex = MemoryIndexBuilder
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = models.DefaultValidThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Validator{
		extractor:  cfg.Extractor,
		embedder:   cfg.Embedder,
		ref:        cfg.Reference,
		registry:   cfg.Registry,
		files:      cfg.Files,
		buildIndex: cfg.BuildIndex,
		dataDir:    cfg.DataDir,
		threshold:  cfg.Threshold,
		topK:       cfg.TopK,
		log:        cfg.Logger,
	}
}

// Validate checks one evidence file against the ERL artifacts for the given
// control. Stage failures are converted into a persisted failure record;
// only registry write errors return a non-nil error.
func (v *Validator) Validate(ctx context.Context, path, scfID string) (*models.EvidenceRecord, error) {
	rec := models.NewEvidenceRecord(scfID, filepath.Base(path))
	rec.Threshold = v.threshold
	rec.Stage = StageReceived

	known, err := v.ref.HasControl(scfID)
	if err != nil {
		return v.fail(rec, &MatchError{Err: err})
	}
	if !known {
		return v.fail(rec, &MatchError{Err: fmt.Errorf("control %s is not in the reference set", scfID)})
	}

	extraction, err := v.extractor.ExtractFile(ctx, path)
	if err != nil {
		return v.fail(rec, &ExtractionError{Err: err})
	}
	if strings.TrimSpace(extraction.Text) == "" {
		return v.fail(rec, &ExtractionError{Err: fmt.Errorf("no text found in %s", rec.FileName)})
	}
	rec.FileType = extraction.FileType
	rec.FileSize = extraction.FileSize
	rec.TextPreview = extraction.Preview
	rec.Stage = StageExtracted

	if v.files != nil {
		stored, err := v.files.Store(path, rec.Timestamp)
		if err != nil {
			return nil, &StorageError{Err: err}
		}
		rec.StoredPath = stored
	}

	vec, err := v.embedder.Embed(ctx, extraction.Text)
	if err != nil {
		return v.fail(rec, &EmbeddingError{Err: err})
	}
	rec.Stage = StageEmbedded

	artifacts, vectors, err := v.artifactEmbeddings(ctx)
	if err != nil {
		return v.fail(rec, err)
	}
	if len(artifacts) == 0 {
		return v.fail(rec, &MatchError{Err: fmt.Errorf("no evidence artifacts in the reference catalog")})
	}

	// Restrict candidates to the control's own artifacts when it has any;
	// otherwise rank against the full catalog.
	candidates, candVectors := restrictToControl(artifacts, vectors, scfID)

	idx, err := v.buildIndex(candVectors)
	if err != nil {
		return v.fail(rec, &MatchError{Err: err})
	}
	results, err := idx.Search(vec, v.topK)
	if err != nil {
		return v.fail(rec, &MatchError{Err: err})
	}
	best := results[0]
	art := candidates[best.Row]
	rec.MatchedERLID = art.ERLID
	rec.MatchedArtifactName = art.Name
	rec.MatchedArtifactDesc = art.Description
	rec.MatchedAreaFocus = art.AreaFocus
	rec.Confidence = best.Score
	rec.Stage = StageMatched

	rec.Valid = models.ClassifyValid(best.Score, v.threshold)
	rec.Explanation = explainValidation(art, best.Score, v.threshold, rec.Valid)
	rec.Stage = StageClassified

	rec.Success = true
	rec.Stage = StagePersisted
	if err := v.registry.Append(rec); err != nil {
		return nil, &StorageError{Err: err}
	}

	v.log.Info("evidence validated",
		zap.String("scf_id", scfID),
		zap.String("file", rec.FileName),
		zap.Float64("confidence", rec.Confidence),
		zap.Bool("valid", rec.Valid))
	return rec, nil
}

func (v *Validator) fail(rec *models.EvidenceRecord, cause error) (*models.EvidenceRecord, error) {
	rec.Success = false
	rec.Valid = false
	rec.Stage = StageFailed
	rec.Error = cause.Error()
	if err := v.registry.Append(rec); err != nil {
		return nil, &StorageError{Err: err}
	}
	v.log.Warn("validation failed",
		zap.String("scf_id", rec.SCFID),
		zap.String("file", rec.FileName),
		zap.String("cause", rec.Error))
	return rec, nil
}

// WarmArtifactEmbeddings regenerates the artifact embedding sidecar when it
// is missing or stale, so later validations start from a warm cache.
func (v *Validator) WarmArtifactEmbeddings(ctx context.Context) error {
	_, _, err := v.artifactEmbeddings(ctx)
	return err
}

// artifactEmbeddings returns the ERL catalog with its embedding matrix,
// regenerating the sidecar when the catalog or model changed.
func (v *Validator) artifactEmbeddings(ctx context.Context) ([]models.Artifact, [][]float64, error) {
	artifacts, err := v.ref.Artifacts()
	if err != nil {
		return nil, nil, &MatchError{Err: err}
	}
	if len(artifacts) == 0 {
		return nil, nil, nil
	}

	sidecarPath := filepath.Join(v.dataDir, artifactSidecar)
	set, err := embeddings.LoadSet(sidecarPath)
	if err == nil && !set.Stale(len(artifacts), v.embedder.Name()) {
		return artifacts, set.Vectors, nil
	}
	if err != nil && !os.IsNotExist(err) {
		v.log.Warn("discarding unreadable embedding sidecar", zap.Error(err))
	}

	texts := make([]string, len(artifacts))
	for i, a := range artifacts {
		texts[i] = a.CombinedText()
	}
	vectors, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, &EmbeddingError{Err: err}
	}

	fresh := &embeddings.Set{
		Model:     v.embedder.Name(),
		Dimension: v.embedder.Dimension(),
		Count:     len(artifacts),
		Vectors:   vectors,
	}
	if err := embeddings.SaveSet(sidecarPath, fresh); err != nil {
		v.log.Warn("failed to save embedding sidecar", zap.Error(err))
	}
	return artifacts, vectors, nil
}

// restrictToControl narrows the candidate set to one control's artifacts.
// A control with no artifacts of its own falls back to the full catalog.
func restrictToControl(artifacts []models.Artifact, vectors [][]float64, scfID string) ([]models.Artifact, [][]float64) {
	var subset []models.Artifact
	var subVectors [][]float64
	for i, a := range artifacts {
		if a.SCFID == scfID {
			subset = append(subset, a)
			subVectors = append(subVectors, vectors[i])
		}
	}
	if len(subset) == 0 {
		return artifacts, vectors
	}
	return subset, subVectors
}

// explainValidation builds the templated verdict text. No free-form
// generation: wording is fixed so identical inputs produce identical records.
func explainValidation(art models.Artifact, score, threshold float64, valid bool) string {
	if valid {
		return fmt.Sprintf(
			"Evidence matches %q (%s) with confidence %.2f, at or above the %.2f threshold.",
			art.Name, art.ERLID, score, threshold)
	}
	return fmt.Sprintf(
		"Closest artifact is %q (%s) with confidence %.2f, below the %.2f threshold. The document does not appear to satisfy this request.",
		art.Name, art.ERLID, score, threshold)
}
