package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/fingerprint"
	"github.com/kozaktomas/photo-library/internal/logging"
)

// ErrNoTrainingData is returned when no confirmed face could be embedded.
// It is an expected outcome on a fresh library, not a failure.
var ErrNoTrainingData = errors.New("no training data")

// Embedder computes the embedding of a stored face. It returns an error
// wrapping fingerprint.ErrNoUniqueFace when the crop does not hold exactly
// one face.
type Embedder interface {
	EmbedFace(ctx context.Context, f *database.Face) ([]float32, error)
}

// Options tune the classifier
type Options struct {
	Threshold      float64 // inclusive maximum nearest-neighbour distance for a match
	Neighbors      int     // 0 picks round(sqrt(n))
	HNSWMinSamples int     // 0 disables the HNSW graph
	Workers        int     // parallel embedding requests
}

// DefaultOptions returns the built-in tuning
func DefaultOptions() Options {
	return Options{
		Threshold:      constants.DefaultDistanceThreshold,
		HNSWMinSamples: constants.HNSWMinSamples,
		Workers:        1,
	}
}

// OptionsFromConfig builds options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Threshold:      cfg.Recognition.Threshold,
		Neighbors:      cfg.Recognition.Neighbors,
		HNSWMinSamples: cfg.Recognition.HNSWMinSamples,
		Workers:        cfg.Workers,
	}
}

// Result summarises one recognition pass
type Result struct {
	Trained      int // confirmed faces used as training samples
	Skipped      int // confirmed faces without a unique face in their crop
	Matched      int // faces assigned to a known person
	Unknown      int // faces beyond the threshold
	Inconclusive int // faces without a unique face in their crop
	Failed       int // faces left untouched because embedding errored
	Reviewed     int // faces a user confirmed or dismissed during the pass
}

// Recognizer retrains on confirmed faces and reclassifies automatic ones
type Recognizer struct {
	store    database.Store
	embedder Embedder
	opts     Options
	logger   logging.Logger
}

// NewRecognizer creates a recognizer
func NewRecognizer(store database.Store, embedder Embedder, opts Options, logger logging.Logger) *Recognizer {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Recognizer{store: store, embedder: embedder, opts: opts, logger: logger}
}

// RecognizeFaces runs a full retrain and reclassify pass. Faces with
// confirmed, ignored or removed status are never modified.
func (r *Recognizer) RecognizeFaces(ctx context.Context) (Result, error) {
	var res Result

	model, err := r.Train(ctx, &res)
	if err != nil {
		return res, err
	}
	if model.Len() == 0 {
		r.logger.Info("no confirmed faces to train on, skipping recognition", "skipped", res.Skipped)
		return res, ErrNoTrainingData
	}
	r.logger.Info("trained face classifier", "samples", model.Len(), "k", model.K(), "skipped", res.Skipped)

	targets, err := r.store.ListFacesByStatus(ctx, database.FacePredicted, database.FaceUnassigned)
	if err != nil {
		return res, fmt.Errorf("failed to list faces: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range targets {
		f := &targets[i]
		g.Go(func() error {
			outcome, err := r.classify(gctx, model, f)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeMatched:
				res.Matched++
			case outcomeUnknown:
				res.Unknown++
			case outcomeInconclusive:
				res.Inconclusive++
			case outcomeFailed:
				res.Failed++
			case outcomeReviewed:
				res.Reviewed++
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	r.logger.Info("recognized faces",
		"matched", res.Matched, "unknown", res.Unknown,
		"inconclusive", res.Inconclusive, "failed", res.Failed, "reviewed", res.Reviewed)
	return res, nil
}

// Train embeds every confirmed face with a known person
func (r *Recognizer) Train(ctx context.Context, res *Result) (*KNN, error) {
	confirmed, err := r.store.ListFacesByStatus(ctx, database.FaceConfirmedRoot, database.FaceConfirmedUser)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed faces: %w", err)
	}

	samples := make([]*Sample, len(confirmed))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range confirmed {
		f := &confirmed[i]
		if f.PersonID == constants.UnknownPersonID {
			continue
		}
		g.Go(func() error {
			emb, err := r.embedder.EmbedFace(gctx, f)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				res.Skipped++
				mu.Unlock()
				if !errors.Is(err, fingerprint.ErrNoUniqueFace) {
					r.logger.Warn("failed to embed confirmed face", "face_id", f.ID, "error", err)
				}
				return nil
			}
			samples[i] = &Sample{FaceID: f.ID, PersonID: f.PersonID, Embedding: emb}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	training := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s != nil {
			training = append(training, *s)
		}
	}
	res.Trained = len(training)
	return NewKNN(training, r.opts.Neighbors, r.opts.HNSWMinSamples), nil
}

type outcome int

const (
	outcomeMatched outcome = iota
	outcomeUnknown
	outcomeInconclusive
	outcomeFailed
	outcomeReviewed
)

// classify embeds f and persists the prediction. A match becomes
// predicted; a distance beyond the threshold leaves the face unassigned to
// the Unknown Person. Writes only land while the face is still predicted
// or unassigned, so a review made during the pass wins.
func (r *Recognizer) classify(ctx context.Context, model *KNN, f *database.Face) (outcome, error) {
	emb, err := r.embedder.EmbedFace(ctx, f)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomeFailed, ctxErr
		}
		if !errors.Is(err, fingerprint.ErrNoUniqueFace) {
			r.logger.Warn("failed to embed face", "face_id", f.ID, "error", err)
			return outcomeFailed, nil
		}
		return r.reclassify(ctx, f, constants.UnknownPersonID, database.FaceUnassigned, f.Uncertainty, outcomeInconclusive)
	}

	pred, ok := model.Predict(emb)
	if !ok {
		return outcomeFailed, nil
	}

	person, status, result := constants.UnknownPersonID, database.FaceUnassigned, outcomeUnknown
	if pred.Distance <= r.opts.Threshold {
		person, status, result = pred.PersonID, database.FacePredicted, outcomeMatched
	}
	r.logger.Debug("classified face", "face_id", f.ID, "person_id", person, "distance", pred.Distance)
	return r.reclassify(ctx, f, person, status, pred.Distance, result)
}

func (r *Recognizer) reclassify(ctx context.Context, f *database.Face, person int64, status database.FaceStatus, uncertainty float64, result outcome) (outcome, error) {
	ok, err := r.store.ReclassifyFace(ctx, f.ID, person, status, uncertainty)
	if err != nil {
		return result, fmt.Errorf("failed to update face %d: %w", f.ID, err)
	}
	if !ok {
		r.logger.Debug("face reviewed during recognition, keeping review", "face_id", f.ID)
		return outcomeReviewed, nil
	}
	return result, nil
}
