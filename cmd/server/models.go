package main

import (
	"time"

	"github.com/liamcoop/costpredictor/inference"
	"github.com/liamcoop/costpredictor/model"
)

// API Request and Response Models

// PredictResponse is the success body of /predict
type PredictResponse = inference.PredictionResult // @name PredictResponse

// ErrorResponse is returned for every rejected request
type ErrorResponse struct {
	Error  string                   `json:"error" example:"invalid request: duration must be a number, got \"abc\""`
	Kind   string                   `json:"kind,omitempty" example:"validation"`
	Fields []inference.FieldProblem `json:"fields,omitempty"`
} // @name ErrorResponse

// HealthResponse reports whether a model is serving
type HealthResponse struct {
	Status   string     `json:"status" example:"healthy"`
	Model    string     `json:"model,omitempty" example:"travel-cost-predictor"`
	Instance string     `json:"instance,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	LoadedAt *time.Time `json:"loaded_at,omitempty" example:"2024-01-15T10:30:00Z"`
} // @name HealthResponse

// ModelResponse describes the loaded artifact
type ModelResponse struct {
	Name      string                `json:"name" example:"travel-cost-predictor"`
	Format    string                `json:"format" example:"travelcost.model/v1"`
	Instance  string                `json:"instance" example:"123e4567-e89b-12d3-a456-426614174000"`
	Path      string                `json:"path" example:"models/travel_cost_predictor.json"`
	TrainedAt *time.Time            `json:"trained_at,omitempty" example:"2024-01-10T08:00:00Z"`
	LoadedAt  time.Time             `json:"loaded_at" example:"2024-01-15T10:30:00Z"`
	Columns   []string              `json:"columns"`
	Targets   []string              `json:"targets"`
	Derived   []model.DerivedSource `json:"derived"`
} // @name ModelResponse

func newModelResponse(m *model.Model) ModelResponse {
	resp := ModelResponse{
		Name:     m.Name(),
		Format:   m.Format(),
		Instance: m.Instance().String(),
		Path:     m.Path(),
		LoadedAt: m.LoadedAt(),
		Columns:  m.Columns(),
		Targets:  m.Targets(),
		Derived:  m.DerivedSources(),
	}
	if trained := m.TrainedAt(); !trained.IsZero() {
		resp.TrainedAt = &trained
	}
	return resp
}
