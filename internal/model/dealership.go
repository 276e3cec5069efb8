package model

// DealershipConfig carries the per-dealership processing rules. It is a
// read-only document: the core consumes it but never creates or migrates it.
type DealershipConfig struct {
	Name               string      `yaml:"name"`
	QRPathTemplate     string      `yaml:"qr_path_template"`
	ExcludedConditions []Condition `yaml:"excluded_conditions"`
	OutputFields       []string    `yaml:"output_fields"`
	MinPrice           float64     `yaml:"min_price"`
	MinYear            int         `yaml:"min_year"`
	RequireStock       bool        `yaml:"require_stock"`
	Active             bool        `yaml:"active"`
}

// Excludes reports whether the given condition is filtered out for this
// dealership.
func (c *DealershipConfig) Excludes(cond Condition) bool {
	for _, ex := range c.ExcludedConditions {
		if ex == cond {
			return true
		}
	}
	return false
}
