package srs

// Number of model weights in the FSRS parameter vector.
const weightCount = 17

// Params defines all configurable parameters for the FSRS scheduler.
type Params struct {
	// Weights is the FSRS parameter vector (w0..w16). The first four
	// weights are the initial stabilities for the four grades; the rest
	// drive difficulty and stability updates.
	Weights [weightCount]float64

	// DesiredRetention is the retrievability the scheduler aims for at the
	// moment a rem comes due, typically 0.9.
	DesiredRetention float64

	// Interval bounds in days.
	MinIntervalDays int
	MaxIntervalDays int

	// AgainReviewMinutes is how soon a failed rem comes back, in minutes.
	// Failed rems are relearned within the session rather than pushed to
	// a future day.
	AgainReviewMinutes int
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values leave the corresponding default in place.
type ParamsConfig struct {
	Weights            []float64
	DesiredRetention   float64
	MinIntervalDays    int
	MaxIntervalDays    int
	AgainReviewMinutes int
}

// defaultWeights is the published FSRS-4.5 default parameter vector.
var defaultWeights = [weightCount]float64{
	0.4872, 1.4003, 3.7145, 13.8206,
	5.1618, 1.2298, 0.8975, 0.0310,
	1.6474, 0.1367, 1.0461, 2.1072,
	0.0793, 0.3246, 1.5870, 0.2272,
	2.8755,
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		Weights:            defaultWeights,
		DesiredRetention:   0.9,
		MinIntervalDays:    1,
		MaxIntervalDays:    36500,
		AgainReviewMinutes: 10,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Returns an error if the supplied weight vector has the wrong length or
// the retention target is out of range.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.Weights != nil {
		if len(config.Weights) != weightCount {
			return nil, ErrInvalidWeights
		}
		copy(params.Weights[:], config.Weights)
	}

	if config.DesiredRetention != 0 {
		if config.DesiredRetention <= 0 || config.DesiredRetention >= 1 {
			return nil, ErrInvalidRetention
		}
		params.DesiredRetention = config.DesiredRetention
	}

	if config.MinIntervalDays > 0 {
		params.MinIntervalDays = config.MinIntervalDays
	}

	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	if config.AgainReviewMinutes > 0 {
		params.AgainReviewMinutes = config.AgainReviewMinutes
	}

	return params, nil
}
