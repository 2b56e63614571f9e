// Package lesson is the student's view of one course material. Plain lessons are completed by
// hand; SCORM packages talk to a runtime whose commits are saved in order.
package lesson

import (
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/scorm"
	"github.com/openschool/campus/view"
)

// Lesson is a material as one student sees it.
type Lesson struct {
	EnrollmentID string
	Material     course.Material
	Completed    bool
	// Data is the saved cmi state of SCORM packages, nil for other materials.
	Data *enrollment.MaterialData
}

// ProgressMeasure is the completion percentage of the lesson.
func (l Lesson) ProgressMeasure() int {
	switch {
	case l.Completed:
		return 100
	case l.Data != nil:
		return scorm.ProgressMeasure(l.Data.Version, l.Data.Data)
	}
	return 0
}

type FormData struct{}

type State = view.State[Lesson, FormData]

func NewState() State {
	return State{Form: view.NewForm(FormData{})}
}

type Action interface{ lessonAction() }

// Outcome actions name the material they were started for. They are dropped once another
// material is loaded.
type (
	LoadSucceeded struct{ Lesson Lesson }
	LoadFailed    struct{ Code int }

	Started struct {
		Verb       view.Verb
		MaterialID string
	}
	// CompletionSucceeded is the outcome of a completion toggle.
	CompletionSucceeded struct {
		Verb       view.Verb
		MaterialID string
		Completed  bool
	}
	// DataSaved is the outcome of a SCORM commit.
	DataSaved struct {
		MaterialID string
		Data       enrollment.MaterialData
	}

	Failed struct {
		Verb       view.Verb
		MaterialID string
		Failure    view.Failure
	}
)

func (LoadSucceeded) lessonAction()       {}
func (LoadFailed) lessonAction()          {}
func (Started) lessonAction()             {}
func (CompletionSucceeded) lessonAction() {}
func (DataSaved) lessonAction()           {}
func (Failed) lessonAction()              {}

// current reports whether materialID is the loaded material.
func current(s State, materialID string) bool {
	return s.Entity != nil && s.Entity.Material.ID == materialID
}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadSucceeded:
		s = s.Loaded(a.Lesson)
		s.Form = view.NewForm(FormData{})

	case LoadFailed:
		s = s.LoadFailed(a.Code)

	case Started:
		if current(s, a.MaterialID) {
			s.Form = s.Form.Started(a.Verb)
		}

	case CompletionSucceeded:
		if !current(s, a.MaterialID) {
			break
		}
		s.Form = s.Form.Succeeded()
		l := *s.Entity
		l.Completed = a.Completed
		s.Entity = &l

	case DataSaved:
		if !current(s, a.MaterialID) {
			break
		}
		s.Form = s.Form.Succeeded()
		l := *s.Entity
		l.Data = &a.Data
		l.Completed = l.Completed || scorm.Completed(a.Data.Version, a.Data.Data)
		s.Entity = &l

	case Failed:
		if current(s, a.MaterialID) {
			s.Form = s.Form.Failed(a.Verb, a.Failure.Message, a.Failure.Fields)
		}
	}
	return s
}
