package scoring

import (
	"sort"

	"dispatch-workers/internal/models"
)

type Ranker struct {
	scorer *Scorer
}

func NewRanker(scorer *Scorer) *Ranker {
	return &Ranker{scorer: scorer}
}

// Rank scores every doctor for target and returns them best first. Equal totals keep roster
// order. topK <= 0 returns every doctor. A target without coordinates yields an empty list.
func (r *Ranker) Rank(target models.Appointment, doctors []models.Doctor, all []models.Appointment, topK int) []DoctorScore {
	if !target.HasCoordinates() || len(doctors) == 0 {
		return []DoctorScore{}
	}

	scores := make([]DoctorScore, 0, len(doctors))
	for _, doctor := range doctors {
		score, err := r.scorer.Score(target, doctor, all)
		if err != nil {
			continue
		}
		scores = append(scores, score)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})

	if topK > 0 && len(scores) > topK {
		scores = scores[:topK]
	}
	return scores
}
