package scoring

import (
	"math/rand"
	"testing"

	"dispatch-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

// oneKmNorth is the latitude delta of roughly one kilometre.
const oneKmNorth = 0.0089932

func newAppointment(id string, lat, lng float64) models.Appointment {
	return models.Appointment{
		ID:        id,
		VisitDate: "2024-01-10",
		PetType:   "Dog",
		Issue:     "Checkup",
		Status:    models.StatusPending,
		Latitude:  ptr(lat),
		Longitude: ptr(lng),
	}
}

func TestScorer_Score_FreshDoctorOneKmAway(t *testing.T) {
	doctor := models.Doctor{ID: "d1", Name: "A", Latitude: ptr(12.9716), Longitude: ptr(77.5946)}
	target := newAppointment("x", 12.9716+oneKmNorth, 77.5946)

	score, err := NewScorer(DefaultWeights(), nil).Score(target, doctor, []models.Appointment{target})
	require.NoError(t, err)

	assert.Equal(t, 100, score.Breakdown.Availability)
	assert.Equal(t, 95, score.Breakdown.Distance)
	assert.Equal(t, 50, score.Breakdown.SkillMatch)
	assert.Equal(t, 100, score.Breakdown.LoadBalance)
	assert.Equal(t, 75, score.Breakdown.Performance)
	assert.InDelta(t, 87.25, score.TotalScore, 0.051)
	assert.Equal(t, 1.0, score.Details.DistanceKm)
	assert.Equal(t, 3, score.Details.EstimatedMinutes)
	assert.Equal(t, 0, score.Details.CasesToday)
	assert.True(t, score.Details.CanMeetGuarantee)
	assert.Equal(t, ReasonClosestAvailable, score.Details.Reason)
	assert.Equal(t, "A", score.Doctor.Name)
}

func TestScorer_Score_MissingCoordinates(t *testing.T) {
	doctor := models.Doctor{Name: "A", Latitude: ptr(1), Longitude: ptr(1)}
	target := models.Appointment{ID: "x", VisitDate: "2024-01-10", Latitude: ptr(1)}

	_, err := NewScorer(DefaultWeights(), nil).Score(target, doctor, nil)
	assert.ErrorIs(t, err, ErrMissingCoordinates)
}

func TestScorer_Score_DoctorWithoutLocation(t *testing.T) {
	doctor := models.Doctor{Name: "Nomad"}
	target := newAppointment("x", 12.97, 77.59)

	score, err := NewScorer(DefaultWeights(), nil).Score(target, doctor, nil)
	require.NoError(t, err)

	assert.Equal(t, FallbackDistanceKm, score.Details.DistanceKm)
	assert.Equal(t, 30, score.Details.EstimatedMinutes)
	assert.True(t, score.Details.CanMeetGuarantee)
	assert.Equal(t, 50, score.Breakdown.Distance)
	assert.Equal(t, ReasonFreshStart, score.Details.Reason)
}

func TestScorer_Score_CasesToday(t *testing.T) {
	doctor := models.Doctor{Name: "A", Latitude: ptr(12.97), Longitude: ptr(77.59)}
	target := newAppointment("x", 12.97, 77.59)

	all := []models.Appointment{
		{ID: "1", DoctorName: "A", OrderNumber: 1, VisitDate: "2024-01-10"},
		{ID: "2", DoctorName: "A", OrderNumber: 2, VisitDate: "2024-01-10"},
		{ID: "3", DoctorName: "A", OrderNumber: 3, VisitDate: "2024-01-11"},
		{ID: "4", DoctorName: "B", OrderNumber: 1, VisitDate: "2024-01-10"},
	}

	score, err := NewScorer(DefaultWeights(), nil).Score(target, doctor, all)
	require.NoError(t, err)

	assert.Equal(t, 2, score.Details.CasesToday)
	assert.Equal(t, 80, score.Breakdown.Availability)
	assert.Equal(t, 80, score.Breakdown.LoadBalance)
	// availability is not above 80, so proximity alone is not enough for the top reason
	assert.Equal(t, ReasonNearbyGuarantee, score.Details.Reason)
}

func TestScorer_Score_Saturated(t *testing.T) {
	doctor := models.Doctor{Name: "A", Latitude: ptr(12.97), Longitude: ptr(77.59)}
	target := newAppointment("x", 13.5, 77.59)

	var all []models.Appointment
	for i := 1; i <= 12; i++ {
		all = append(all, models.Appointment{DoctorName: "A", OrderNumber: i, VisitDate: "2024-01-10"})
	}

	score, err := NewScorer(DefaultWeights(), nil).Score(target, doctor, all)
	require.NoError(t, err)

	assert.Equal(t, 0, score.Breakdown.Availability)
	assert.Equal(t, 0, score.Breakdown.LoadBalance)
	assert.Equal(t, 0, score.Breakdown.Distance)
	assert.False(t, score.Details.CanMeetGuarantee)
	assert.Equal(t, ReasonAvailable, score.Details.Reason)
}

func TestSkillMatchScore(t *testing.T) {
	tests := []struct {
		name      string
		specialty string
		petType   string
		issue     string
		want      float64
	}{
		{"no specialty", "", "Dog", "Checkup", 50},
		{"pet type match", "Canine and dog care", "dog", "Checkup", 100},
		{"all animals", "All animals", "Parrot", "Checkup", 100},
		{"surgeon for surgery", "Surgeon", "Cat", "Needs surgery", 100},
		{"emergency", "Emergency response", "Cat", "EMERGENCY visit", 100},
		{"general vaccination", "General practice", "Cat", "Vaccination due", 90},
		{"no rule", "Dermatology", "Cat", "Itching", 60},
		{"surgery without surgeon", "Dermatology", "Cat", "surgery", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, skillMatchScore(tt.specialty, tt.petType, tt.issue))
		})
	}
}

func TestReasonPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		distanceKm   float64
		casesToday   int
		guarantee    bool
		availability float64
		want         string
	}{
		{"close and free", 1.5, 1, true, 90, ReasonClosestAvailable},
		{"fresh start far away", 15, 0, false, 100, ReasonFreshStart},
		{"nearby with guarantee", 4, 3, true, 70, ReasonNearbyGuarantee},
		{"very close but busy", 2.5, 5, false, 50, ReasonVeryClose},
		{"default", 12, 5, false, 50, ReasonAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reason(tt.distanceKm, tt.casesToday, tt.guarantee, tt.availability))
		})
	}
}

func TestScorer_Score_SubScoresBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scorer := NewScorer(DefaultWeights(), ConstantPerformance(140))
	specialties := []string{"", "surgeon", "general", "all", "feline"}

	for i := 0; i < 300; i++ {
		doctor := models.Doctor{
			Name:      "A",
			Specialty: specialties[rng.Intn(len(specialties))],
		}
		if rng.Intn(4) > 0 {
			doctor.Latitude = ptr(rng.Float64()*2 + 12)
			doctor.Longitude = ptr(rng.Float64()*2 + 77)
		}
		target := newAppointment("x", rng.Float64()*2+12, rng.Float64()*2+77)

		var all []models.Appointment
		for j := 0; j < rng.Intn(15); j++ {
			all = append(all, models.Appointment{DoctorName: "A", OrderNumber: j + 1, VisitDate: target.VisitDate})
		}

		score, err := scorer.Score(target, doctor, all)
		require.NoError(t, err)

		for _, v := range []int{
			score.Breakdown.Availability,
			score.Breakdown.Distance,
			score.Breakdown.SkillMatch,
			score.Breakdown.LoadBalance,
			score.Breakdown.Performance,
		} {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 100)
		}
		assert.GreaterOrEqual(t, score.TotalScore, 0.0)
		assert.LessOrEqual(t, score.TotalScore, 100.0)
	}
}

func TestScorer_Score_DoesNotMutateInputs(t *testing.T) {
	doctor := models.Doctor{Name: "A", Latitude: ptr(12.97), Longitude: ptr(77.59)}
	target := newAppointment("x", 12.98, 77.59)
	all := []models.Appointment{{ID: "1", DoctorName: "A", OrderNumber: 1, VisitDate: "2024-01-10"}, target}
	before := append([]models.Appointment(nil), all...)

	_, err := NewScorer(DefaultWeights(), nil).Score(target, doctor, all)
	require.NoError(t, err)
	assert.Equal(t, before, all)
}

func TestWeightOverrides_Apply(t *testing.T) {
	var nilOverrides *WeightOverrides
	assert.Equal(t, DefaultWeights(), nilOverrides.Apply(DefaultWeights()))

	overrides := &WeightOverrides{Distance: ptr(0.9), Performance: ptr(0)}
	got := overrides.Apply(DefaultWeights())

	assert.Equal(t, 0.35, got.Availability)
	assert.Equal(t, 0.9, got.Distance)
	assert.Equal(t, 0.20, got.SkillMatch)
	assert.Equal(t, 0.10, got.LoadBalance)
	assert.Equal(t, 0.0, got.Performance)
}
