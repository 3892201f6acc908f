package inference

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/costpredictor/model"
)

// PredictionResult is the /predict success body.
type PredictionResult struct {
	AccommodationCost  float64 `json:"accommodation_cost"`
	TransportationCost float64 `json:"transportation_cost"`
}

// NewPredictionResult maps one model output row to a result. Column 0 is
// accommodation and column 1 transportation; both are rounded to cents.
func NewPredictionResult(outputs [][]float64) (PredictionResult, error) {
	if len(outputs) != 1 || len(outputs[0]) != 2 {
		rows, cols := len(outputs), 0
		if rows > 0 {
			cols = len(outputs[0])
		}
		return PredictionResult{}, fmt.Errorf("%w: got %dx%d, want 1x2", model.ErrOutputShape, rows, cols)
	}

	accommodation, err := roundCents(outputs[0][0])
	if err != nil {
		return PredictionResult{}, fmt.Errorf("%s: %w", TargetAccommodation, err)
	}
	transportation, err := roundCents(outputs[0][1])
	if err != nil {
		return PredictionResult{}, fmt.Errorf("%s: %w", TargetTransportation, err)
	}

	return PredictionResult{AccommodationCost: accommodation, TransportationCost: transportation}, nil
}

// roundCents rounds the exact binary value of v to two decimal places, ties
// to even. 2.675 is stored as 2.67499... and so becomes 2.67.
func roundCents(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite value %v", model.ErrOutputShape, v)
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 2, 64))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrOutputShape, err)
	}
	rounded, _ := d.Float64()
	return rounded, nil
}
