package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/liamcoop/costpredictor/internal/logger"
	"github.com/liamcoop/costpredictor/model"
)

// ModelSource provides the model to predict with. *model.Holder satisfies it.
type ModelSource interface {
	Current() *model.Model
}

// Service turns prediction requests into rounded cost predictions.
type Service struct {
	models  ModelSource
	metrics *Metrics
}

func NewService(models ModelSource, metrics *Metrics) *Service {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Service{models: models, metrics: metrics}
}

// Metrics exposes the service counters.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// Predict validates req, builds one feature row and returns both costs.
// Errors are *ValidationError, *ModelError or ErrModelNotLoaded.
func (s *Service) Predict(ctx context.Context, req PredictionRequest) (PredictionResult, error) {
	start := time.Now()
	s.metrics.RecordRequestStart()

	result, err := s.predict(ctx, req)

	outcome := OutcomeSuccess
	var verr *ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		outcome = OutcomeValidationError
	case errors.Is(err, ErrModelNotLoaded):
		outcome = OutcomeUnavailable
	default:
		outcome = OutcomeModelError
	}
	s.metrics.RecordRequestDone(time.Since(start), outcome)

	return result, err
}

func (s *Service) predict(ctx context.Context, req PredictionRequest) (PredictionResult, error) {
	reqID := middleware.GetReqID(ctx)

	it, err := req.Validate()
	if err != nil {
		logger.Debug("Rejected prediction request", "request_id", reqID, "error", err)
		return PredictionResult{}, err
	}

	m := s.models.Current()
	if m == nil {
		return PredictionResult{}, ErrModelNotLoaded
	}

	row, err := BuildRow(m, it)
	if err != nil {
		return PredictionResult{}, &ModelError{Err: err}
	}

	outputs, err := predictOne(m, row)
	if err != nil {
		logger.Debug("Model prediction failed", "request_id", reqID, "model", m.Instance().String(), "error", err)
		return PredictionResult{}, &ModelError{Err: err}
	}

	result, err := NewPredictionResult(outputs)
	if err != nil {
		return PredictionResult{}, &ModelError{Err: err}
	}

	logger.Debug("Prediction served",
		"request_id", reqID,
		"model", m.Instance().String(),
		"duration_group", row.DurationGroup,
		"age_group", row.AgeGroup,
		"accommodation_cost", result.AccommodationCost,
		"transportation_cost", result.TransportationCost,
	)
	return result, nil
}

// predictOne runs a batch of one and turns a panic inside the model into an error.
func predictOne(m *model.Model, row FeatureRow) (outputs [][]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			outputs = nil
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	return m.PredictBatch([]model.Row{row.Values()})
}
