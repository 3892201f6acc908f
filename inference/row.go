package inference

import (
	"fmt"

	"github.com/liamcoop/costpredictor/model"
	"github.com/liamcoop/costpredictor/rules"
)

// Column names as the model was trained on them.
const (
	ColumnDestination    = "Destination"
	ColumnDuration       = "Duration (days)"
	ColumnAge            = "Traveler age"
	ColumnGender         = "Traveler gender"
	ColumnNationality    = "Traveler nationality"
	ColumnAccommodation  = "Accommodation type"
	ColumnTransportation = "Transportation type"
	ColumnDurationGroup  = "Duration_Group"
	ColumnAgeGroup       = "Age_Group"
)

const (
	TargetAccommodation  = "accommodation_cost"
	TargetTransportation = "transportation_cost"
)

// Fallback derived values used when the artifact has no bucketing rules.
const (
	DefaultDurationGroup = "medium"
	DefaultAgeGroup      = "adult"
)

// Schema is the feature layout every served artifact must match.
func Schema() model.Schema {
	return model.Schema{
		Columns: []model.Column{
			{Name: ColumnDestination, Kind: model.KindCategorical},
			{Name: ColumnDuration, Kind: model.KindNumeric},
			{Name: ColumnAge, Kind: model.KindNumeric},
			{Name: ColumnGender, Kind: model.KindCategorical},
			{Name: ColumnNationality, Kind: model.KindCategorical},
			{Name: ColumnAccommodation, Kind: model.KindCategorical},
			{Name: ColumnTransportation, Kind: model.KindCategorical},
			{Name: ColumnDurationGroup, Kind: model.KindCategorical},
			{Name: ColumnAgeGroup, Kind: model.KindCategorical},
		},
		Targets: []string{TargetAccommodation, TargetTransportation},
		Derived: []model.DerivedColumn{
			{Column: ColumnDurationGroup, Input: rules.InputDuration, Fallback: DefaultDurationGroup},
			{Column: ColumnAgeGroup, Input: rules.InputAge, Fallback: DefaultAgeGroup},
		},
	}
}

// FeatureRow is one fully assembled model input.
type FeatureRow struct {
	Destination         string
	DurationDays        float64
	TravelerAge         float64
	TravelerGender      string
	TravelerNationality string
	AccommodationType   string
	TransportationType  string
	DurationGroup       string
	AgeGroup            string
}

// Values returns the row in schema column order.
func (r FeatureRow) Values() model.Row {
	return model.Row{
		r.Destination,
		r.DurationDays,
		r.TravelerAge,
		r.TravelerGender,
		r.TravelerNationality,
		r.AccommodationType,
		r.TransportationType,
		r.DurationGroup,
		r.AgeGroup,
	}
}

// BuildRow assembles the feature row for it, computing the derived columns
// with the model's bucketers.
func BuildRow(m *model.Model, it Itinerary) (FeatureRow, error) {
	durationGroup, err := derive(m, ColumnDurationGroup, it)
	if err != nil {
		return FeatureRow{}, err
	}
	ageGroup, err := derive(m, ColumnAgeGroup, it)
	if err != nil {
		return FeatureRow{}, err
	}

	return FeatureRow{
		Destination:         it.Destination,
		DurationDays:        it.DurationDays,
		TravelerAge:         it.TravelerAge,
		TravelerGender:      it.Gender,
		TravelerNationality: it.Nationality,
		AccommodationType:   it.Accommodation,
		TransportationType:  it.Transportation,
		DurationGroup:       durationGroup,
		AgeGroup:            ageGroup,
	}, nil
}

func derive(m *model.Model, column string, it Itinerary) (string, error) {
	b := m.Bucketer(column)
	if b == nil {
		return "", fmt.Errorf("%w: no bucketer for derived column %q", model.ErrSchemaMismatch, column)
	}

	var value float64
	switch b.Input() {
	case rules.InputDuration:
		value = it.DurationDays
	case rules.InputAge:
		value = it.TravelerAge
	default:
		return "", fmt.Errorf("%w: derived column %q reads unsupported input %q", model.ErrSchemaMismatch, column, b.Input())
	}

	return b.Bucket(value)
}
