package rules

// Input names the continuous request value a derived column is bucketed from.
type Input string

const (
	InputDuration Input = "duration"
	InputAge      Input = "age"
)

// Rule maps a boolean CEL condition over `value` to a category.
type Rule struct {
	When  string `json:"when" yaml:"when"`
	Value string `json:"value" yaml:"value"`
}

// Definition describes how one derived categorical column is computed.
// Rules are tried in order; the first condition that holds wins, otherwise
// Default is used.
type Definition struct {
	Column  string `json:"column" yaml:"column"`
	Input   Input  `json:"input" yaml:"input"`
	Rules   []Rule `json:"rules" yaml:"rules"`
	Default string `json:"default" yaml:"default"`
}

// Values returns every category the definition can produce, rules first.
func (d Definition) Values() []string {
	values := make([]string, 0, len(d.Rules)+1)
	for _, r := range d.Rules {
		values = append(values, r.Value)
	}
	return append(values, d.Default)
}
