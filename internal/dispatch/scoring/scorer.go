// Package scoring ranks doctors for an appointment using a weighted multi-factor score.
package scoring

import (
	"errors"
	"math"
	"strings"

	"dispatch-workers/internal/dispatch/geo"
	"dispatch-workers/internal/models"
)

const (
	MaxCasesPerDay          = 10
	DistanceHorizonKm       = 20.0
	FallbackDistanceKm      = 10.0
	ServiceGuaranteeMinutes = 30
	DefaultPerformanceScore = 75.0
)

const (
	ReasonClosestAvailable = "Closest available doctor"
	ReasonFreshStart       = "Fresh start, no cases today"
	ReasonNearbyGuarantee  = "Nearby and can meet 30-min guarantee"
	ReasonHighlyAvailable  = "Highly available for assignments"
	ReasonVeryClose        = "Very close to appointment location"
	ReasonAvailable        = "Available for assignment"
)

var ErrMissingCoordinates = errors.New("appointment has no coordinates")

// PerformanceRater supplies the performance sub-score for a doctor.
type PerformanceRater interface {
	Rate(doctor models.Doctor) float64
}

// ConstantPerformance rates every doctor the same. No historical data source is wired in yet.
type ConstantPerformance float64

func (c ConstantPerformance) Rate(models.Doctor) float64 {
	return float64(c)
}

type Breakdown struct {
	Availability int `json:"availability"`
	Distance     int `json:"distance"`
	SkillMatch   int `json:"skillMatch"`
	LoadBalance  int `json:"loadBalance"`
	Performance  int `json:"performance"`
}

type Details struct {
	DistanceKm       float64 `json:"distanceKm"`
	EstimatedMinutes int     `json:"estimatedMinutes"`
	CasesToday       int     `json:"casesToday"`
	CanMeetGuarantee bool    `json:"canMeetGuarantee"`
	Reason           string  `json:"reason"`
}

type DoctorScore struct {
	Doctor     models.Doctor `json:"doctor"`
	TotalScore float64       `json:"totalScore"`
	Breakdown  Breakdown     `json:"breakdown"`
	Details    Details       `json:"details"`
}

type Scorer struct {
	weights     Weights
	performance PerformanceRater
}

// NewScorer builds a scorer. A nil rater falls back to DefaultPerformanceScore.
func NewScorer(weights Weights, performance PerformanceRater) *Scorer {
	if performance == nil {
		performance = ConstantPerformance(DefaultPerformanceScore)
	}
	return &Scorer{weights: weights, performance: performance}
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score evaluates one doctor for target. all is the full appointment collection and is only read.
func (s *Scorer) Score(target models.Appointment, doctor models.Doctor, all []models.Appointment) (DoctorScore, error) {
	if !target.HasCoordinates() {
		return DoctorScore{}, ErrMissingCoordinates
	}

	casesToday := CasesOnDate(all, doctor.Name, target.VisitDate)

	distanceKm := FallbackDistanceKm
	if doctor.HasCoordinates() {
		distanceKm = geo.DistanceKm(*doctor.Latitude, *doctor.Longitude, *target.Latitude, *target.Longitude)
	}
	estimatedMinutes := geo.EstimateMinutes(distanceKm)
	canMeetGuarantee := estimatedMinutes <= ServiceGuaranteeMinutes

	availability := availabilityScore(casesToday)
	distance := distanceScore(distanceKm)
	skill := skillMatchScore(doctor.Specialty, target.PetType, target.Issue)
	load := loadBalanceScore(casesToday)
	performance := clamp(s.performance.Rate(doctor))

	total := availability*s.weights.Availability +
		distance*s.weights.Distance +
		skill*s.weights.SkillMatch +
		load*s.weights.LoadBalance +
		performance*s.weights.Performance

	return DoctorScore{
		Doctor:     doctor,
		TotalScore: roundTo(total, 1),
		Breakdown: Breakdown{
			Availability: int(math.Round(availability)),
			Distance:     int(math.Round(distance)),
			SkillMatch:   int(math.Round(skill)),
			LoadBalance:  int(math.Round(load)),
			Performance:  int(math.Round(performance)),
		},
		Details: Details{
			DistanceKm:       roundTo(distanceKm, 1),
			EstimatedMinutes: estimatedMinutes,
			CasesToday:       casesToday,
			CanMeetGuarantee: canMeetGuarantee,
			Reason:           reason(distanceKm, casesToday, canMeetGuarantee, availability),
		},
	}, nil
}

// CasesOnDate counts appointments assigned to doctorName on visitDate.
func CasesOnDate(all []models.Appointment, doctorName, visitDate string) int {
	n := 0
	for _, a := range all {
		if a.DoctorName == doctorName && a.VisitDate == visitDate {
			n++
		}
	}
	return n
}

func availabilityScore(casesToday int) float64 {
	if casesToday == 0 {
		return 100
	}
	utilization := float64(casesToday) / MaxCasesPerDay
	return math.Max(0, 100-utilization*100)
}

func distanceScore(distanceKm float64) float64 {
	if distanceKm >= DistanceHorizonKm {
		return 0
	}
	return math.Max(0, 100-(distanceKm/DistanceHorizonKm)*100)
}

// skillMatchScore applies the specialty rules in order; the first match wins.
func skillMatchScore(specialty, petType, issue string) float64 {
	if specialty == "" {
		return 50
	}

	specialty = strings.ToLower(specialty)
	petType = strings.ToLower(petType)
	issue = strings.ToLower(issue)

	switch {
	case strings.Contains(specialty, petType) || strings.Contains(specialty, "all"):
		return 100
	case strings.Contains(issue, "surgery") && strings.Contains(specialty, "surgeon"):
		return 100
	case strings.Contains(issue, "emergency") && strings.Contains(specialty, "emergency"):
		return 100
	case strings.Contains(issue, "vaccination") && strings.Contains(specialty, "general"):
		return 90
	default:
		return 60
	}
}

// loadBalanceScore is currently the same decay as availabilityScore. Kept separate so the two
// can diverge without touching callers.
func loadBalanceScore(casesToday int) float64 {
	return math.Max(0, 100-(float64(casesToday)/MaxCasesPerDay)*100)
}

func reason(distanceKm float64, casesToday int, canMeetGuarantee bool, availability float64) string {
	switch {
	case distanceKm < 2 && availability > 80:
		return ReasonClosestAvailable
	case casesToday == 0:
		return ReasonFreshStart
	case canMeetGuarantee && distanceKm < 5:
		return ReasonNearbyGuarantee
	case availability > 90:
		return ReasonHighlyAvailable
	case distanceKm < 3:
		return ReasonVeryClose
	default:
		return ReasonAvailable
	}
}

func clamp(score float64) float64 {
	return math.Min(math.Max(score, 0), 100)
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
