package scoring

// Weights controls how much each sub-score contributes to the total. They are applied as given
// and never renormalised.
type Weights struct {
	Availability float64 `json:"availability"`
	Distance     float64 `json:"distance"`
	SkillMatch   float64 `json:"skillMatch"`
	LoadBalance  float64 `json:"loadBalance"`
	Performance  float64 `json:"performance"`
}

// DefaultWeights returns the production weight set. It sums to 1.0.
func DefaultWeights() Weights {
	return Weights{
		Availability: 0.35,
		Distance:     0.30,
		SkillMatch:   0.20,
		LoadBalance:  0.10,
		Performance:  0.05,
	}
}

// WeightOverrides carries a partial weight set, typically decoded from job variables.
type WeightOverrides struct {
	Availability *float64 `json:"availability,omitempty"`
	Distance     *float64 `json:"distance,omitempty"`
	SkillMatch   *float64 `json:"skillMatch,omitempty"`
	LoadBalance  *float64 `json:"loadBalance,omitempty"`
	Performance  *float64 `json:"performance,omitempty"`
}

// Apply returns base with every non-nil override replacing the matching weight.
func (o *WeightOverrides) Apply(base Weights) Weights {
	if o == nil {
		return base
	}
	if o.Availability != nil {
		base.Availability = *o.Availability
	}
	if o.Distance != nil {
		base.Distance = *o.Distance
	}
	if o.SkillMatch != nil {
		base.SkillMatch = *o.SkillMatch
	}
	if o.LoadBalance != nil {
		base.LoadBalance = *o.LoadBalance
	}
	if o.Performance != nil {
		base.Performance = *o.Performance
	}
	return base
}
