package domain

import "math"

// AnswerSet maps question id to the selected option index.
type AnswerSet map[string]int

// Covers reports whether every question has an answer.
func (a AnswerSet) Covers(questions []Question) bool {
	if len(a) != len(questions) {
		return false
	}
	for _, q := range questions {
		if _, ok := a[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Score returns round(100 * correct / total). An empty quiz scores 0.
func Score(questions []Question, answers AnswerSet) int {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		if idx, ok := answers[q.ID]; ok && idx == q.CorrectIndex {
			correct++
		}
	}
	return int(math.Round(float64(correct) * 100 / float64(len(questions))))
}

// Passed reports whether score earns a certificate.
func Passed(score int) bool {
	return score >= PassThreshold
}
