package server

import (
	"io"
	"net/http"
	"time"

	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/akarpov/examtrainer/internal/progress"
	"github.com/akarpov/examtrainer/internal/server/serializer"
	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/valyala/fastjson"
)

// prgrss contains all progress handlers.
type prgrss struct {
	service progress.Service
}

///// List
////
//

// List renders all the user's progress records. The optional `since` query
// parameter restricts the result to records updated after that time; its
// format is parsed leniently.
func (h *prgrss) List(c echo.Context) error {
	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, eterror.New("Could not parse since parameter."))
		}
		since = t
	}

	records, err := h.service.List(currentUser(c), since)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"progress": serializer.Progresses(records),
	})
}

///// Get
////
//

// Get renders the record for one exam. An exam the user never touched
// yields the default not_started record.
func (h *prgrss) Get(c echo.Context) error {
	record, err := h.service.Get(currentUser(c), c.Param("exam"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Progress(record))
}

///// SubmitAnswer
////
//

// SubmitAnswer upserts one question's answer.
func (h *prgrss) SubmitAnswer(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, eterror.New("Could not read submission."))
	}

	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, eterror.New("Could not parse submission."))
	}

	params := progress.SubmitParams{
		UserID:     currentUser(c),
		ExamID:     c.Param("exam"),
		QuestionID: string(v.GetStringBytes("question_id")),
		Answer:     string(v.GetStringBytes("answer")),
		Correct:    v.GetBool("correct"),
		DontKnow:   v.GetBool("dont_know"),
	}
	if params.QuestionID == "" {
		return c.JSON(http.StatusBadRequest, eterror.New("No question_id provided."))
	}

	record, err := h.service.SubmitAnswer(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Progress(record))
}

///// SetMastered
////
//

// SetMastered toggles the manual mastered mark on one question.
func (h *prgrss) SetMastered(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, eterror.New("Could not read submission."))
	}

	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, eterror.New("Could not parse submission."))
	}

	questionID := string(v.GetStringBytes("question_id"))
	if questionID == "" {
		return c.JSON(http.StatusBadRequest, eterror.New("No question_id provided."))
	}

	record, err := h.service.SetMastered(currentUser(c), c.Param("exam"), questionID, v.GetBool("mastered"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Progress(record))
}

///// Complete
////
//

// Complete marks the exam as completed for the user.
func (h *prgrss) Complete(c echo.Context) error {
	record, err := h.service.MarkCompleted(currentUser(c), c.Param("exam"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Progress(record))
}

///// Reset
////
//

// Reset removes the record. Progress is never deleted any other way.
func (h *prgrss) Reset(c echo.Context) error {
	if err := h.service.Reset(currentUser(c), c.Param("exam")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
