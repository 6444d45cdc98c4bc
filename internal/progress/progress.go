// Package progress implements the per-user, per-exam progress service on
// top of the database client's transactional update.
package progress

import (
	"time"

	"github.com/akarpov/examtrainer/internal/database"
	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/akarpov/examtrainer/internal/model"
)

type (
	// A Service exposes the progress operations called by the presentation
	// layer once a request passed the access guard.
	Service struct {
		db database.Client
	}

	// SubmitParams carries one answer submission.
	SubmitParams struct {
		UserID     string
		ExamID     string
		QuestionID string
		Answer     string
		Correct    bool
		DontKnow   bool
	}
)

// NewService returns a new progress service.
func NewService(db database.Client) Service {
	return Service{db: db}
}

// Get returns the record for the given pair. A pair that has never been
// written yields the default not_started record, not an error.
func (s Service) Get(userID, examID string) (*model.Progress, error) {
	record, err := s.db.FindProgress(userID, examID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return model.NewProgress(userID, examID), nil
		}
		return nil, eterror.StoreUnavailable(err)
	}
	return record, nil
}

// List returns all the user's records, optionally only those updated after
// since (zero value means all).
func (s Service) List(userID string, since time.Time) ([]*model.Progress, error) {
	records, err := s.db.FindProgressByUserID(userID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return []*model.Progress{}, nil
		}
		return nil, eterror.StoreUnavailable(err)
	}

	if since.IsZero() {
		return records, nil
	}

	filtered := records[:0]
	for _, record := range records {
		if record.LastUpdated.After(since) {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// SubmitAnswer upserts the question's answer and its attempt bookkeeping.
// The first submission moves the record from not_started to in_progress.
func (s Service) SubmitAnswer(params SubmitParams) (*model.Progress, error) {
	record, err := s.db.UpdateProgress(params.UserID, params.ExamID, func(p *model.Progress) error {
		answer := p.Answers[params.QuestionID]
		if answer == nil {
			answer = &model.Answer{}
			p.Answers[params.QuestionID] = answer
		}
		answer.Record(params.Answer, params.Correct, params.DontKnow, time.Now().UTC())

		if p.Status == model.StatusNotStarted {
			p.Status = model.StatusInProgress
		}
		return nil
	})
	if err != nil {
		return nil, eterror.StoreUnavailable(err)
	}
	return record, nil
}

// SetMastered marks or unmarks one question as mastered, bypassing the
// streak. A question that was never answered gets an empty entry so the
// mark survives until the first submission.
func (s Service) SetMastered(userID, examID, questionID string, mastered bool) (*model.Progress, error) {
	record, err := s.db.UpdateProgress(userID, examID, func(p *model.Progress) error {
		answer := p.Answers[questionID]
		if answer == nil {
			answer = &model.Answer{}
			p.Answers[questionID] = answer
		}
		answer.SetMastered(mastered)
		return nil
	})
	if err != nil {
		return nil, eterror.StoreUnavailable(err)
	}
	return record, nil
}

// MarkCompleted sets the record's status to completed. Completion is always
// an explicit caller decision; the core never infers it.
func (s Service) MarkCompleted(userID, examID string) (*model.Progress, error) {
	record, err := s.db.UpdateProgress(userID, examID, func(p *model.Progress) error {
		p.Status = model.StatusCompleted
		return nil
	})
	if err != nil {
		return nil, eterror.StoreUnavailable(err)
	}
	return record, nil
}

// Reset deletes the record. This is the only way a record goes away.
// Resetting a pair that was never written is a no-op.
func (s Service) Reset(userID, examID string) error {
	err := s.db.DeleteProgress(userID, examID)
	if err != nil && !s.db.IsNotFound(err) {
		return eterror.StoreUnavailable(err)
	}
	return nil
}
