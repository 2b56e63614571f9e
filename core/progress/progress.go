// Package progress computes course progress, where a unit weighs as much as Weight lessons.
package progress

import "math"

// Weight of a submitted unit relative to one completed lesson.
const Weight = 3

// Progress summarises a student's advancement through a course.
type Progress struct {
	LessonCount      int `json:"lesson_count"`
	CompletedLessons int `json:"completed_lessons"`
	UnitCount        int `json:"unit_count"`
	SubmittedUnits   int `json:"submitted_units"`
	Progress         int `json:"progress"`
	Max              int `json:"max"`
	Percentage       int `json:"percentage"`
}

func Calculate(completedLessons, submittedUnits int) int {
	return completedLessons + submittedUnits*Weight
}

func Max(lessonCount, unitCount int) int {
	return lessonCount + unitCount*Weight
}

// Percentage returns round(100 * progress / max), and 0 when max is 0.
func Percentage(progress, max int) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(progress) / float64(max)))
}

func New(lessonCount, completedLessons, unitCount, submittedUnits int) Progress {
	p := Progress{
		LessonCount:      lessonCount,
		CompletedLessons: completedLessons,
		UnitCount:        unitCount,
		SubmittedUnits:   submittedUnits,
		Progress:         Calculate(completedLessons, submittedUnits),
		Max:              Max(lessonCount, unitCount),
	}
	p.Percentage = Percentage(p.Progress, p.Max)
	return p
}
