package model

import (
	"time"
)

// Progress statuses.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// MasteryStreak is the number of consecutive correct answers after which a
// question is considered mastered.
const MasteryStreak = 3

type (
	// A Progress represents a database record holding one user's state for
	// one exam. There is at most one record per (user, exam) pair.
	Progress struct {
		Base `msgpack:",inline" storm:"inline"`

		// Key is "<user_id>:<exam_id>", the composite the store enforces
		// uniqueness on.
		Key         string             `json:"-"            msgpack:"key"     storm:"unique"`
		UserID      string             `json:"user_id"      msgpack:"user_id" storm:"index"`
		ExamID      string             `json:"exam_id"      msgpack:"exam_id"`
		Answers     map[string]*Answer `json:"answers"      msgpack:"answers"`
		Status      string             `json:"status"       msgpack:"status"`
		LastUpdated time.Time          `json:"last_updated" msgpack:"last_updated"`
	}

	// An Answer records the latest submission for a question together with
	// the attempt bookkeeping used by the trainer.
	Answer struct {
		Value         string     `json:"value"                  msgpack:"value"`
		Attempts      int        `json:"attempts"               msgpack:"attempts"`
		CorrectStreak int        `json:"correct_streak"         msgpack:"correct_streak"`
		TotalCorrect  int        `json:"total_correct"          msgpack:"total_correct"`
		Mastered      bool       `json:"mastered"               msgpack:"mastered"`
		LastAttempt   *time.Time `json:"last_attempt,omitempty" msgpack:"last_attempt"`
	}
)

// ProgressKey builds the composite key of a progress record.
func ProgressKey(userID, examID string) string {
	return userID + ":" + examID
}

// NewProgress returns the default record for a (user, exam) pair that has
// never been written.
func NewProgress(userID, examID string) *Progress {
	return &Progress{
		Key:     ProgressKey(userID, examID),
		UserID:  userID,
		ExamID:  examID,
		Answers: map[string]*Answer{},
		Status:  StatusNotStarted,
	}
}

// SetMastered marks or unmarks the question as mastered by hand.
// Unmarking resets the streak so mastery has to be earned again.
func (a *Answer) SetMastered(mastered bool) {
	a.Mastered = mastered
	if !mastered {
		a.CorrectStreak = 0
	}
}

// Record applies one submission to the question's answer entry.
// A correct answer extends the streak and flips Mastered once the streak
// reaches MasteryStreak; a wrong or dont-know submission resets the streak.
func (a *Answer) Record(value string, correct, dontKnow bool, now time.Time) {
	a.Value = value
	a.Attempts++
	a.LastAttempt = &now

	switch {
	case dontKnow:
		a.CorrectStreak = 0
	case correct:
		a.CorrectStreak++
		a.TotalCorrect++
		if a.CorrectStreak >= MasteryStreak {
			a.Mastered = true
		}
	default:
		a.CorrectStreak = 0
	}
}
