package analysis

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

// Options controls how analysis requests are issued
type Options struct {
	Model       string
	Temperature float32

	// MaxOutputTokens caps the reply; the JSON contract is small
	MaxOutputTokens int32
}

// DefaultOptions returns default analysis options
func DefaultOptions() Options {
	return Options{
		Model:           DefaultModel,
		Temperature:     0.9,
		MaxOutputTokens: 512,
	}
}

// WithModel overrides the model name; empty keeps the current one
func (o Options) WithModel(model string) Options {
	if model != "" {
		o.Model = model
	}
	return o
}

// WithTemperature sets the sampling temperature
func (o Options) WithTemperature(t float32) Options {
	o.Temperature = t
	return o
}
