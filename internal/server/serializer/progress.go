package serializer

import "github.com/akarpov/examtrainer/internal/model"

// Progress serializes the render of a progress record.
func Progress(m *model.Progress) map[string]interface{} {
	answers := make(map[string]interface{}, len(m.Answers))
	for id, a := range m.Answers {
		answers[id] = map[string]interface{}{
			"value":          a.Value,
			"attempts":       a.Attempts,
			"correct_streak": a.CorrectStreak,
			"total_correct":  a.TotalCorrect,
			"mastered":       a.Mastered,
			"last_attempt":   a.LastAttempt,
		}
	}

	return map[string]interface{}{
		"exam_id":      m.ExamID,
		"status":       m.Status,
		"answers":      answers,
		"last_updated": m.LastUpdated,
	}
}

// Progresses serializes the render of several progress records.
func Progresses(m []*model.Progress) []map[string]interface{} {
	records := make([]map[string]interface{}, len(m))
	for i, p := range m {
		records[i] = Progress(p)
	}
	return records
}
