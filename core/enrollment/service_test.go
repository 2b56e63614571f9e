package enrollment_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/scorm"
	"github.com/openschool/campus/testutil"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	fix := env.NewFixture(t)

	assert.Equal(t, "CAD", fix.Enrollment.Currency)
	assert.Equal(t, enrollment.PaymentPaid, fix.Enrollment.PaymentStatus)
	assert.False(t, fix.Enrollment.OnHold)

	uk := env.Student(t, "student2", "GB")
	cuba := env.Student(t, "student3", "CU")
	tutor := env.Tutor(t, "tutor02")

	tests := []struct {
		name      string
		ne        enrollment.NewEnrollment
		wantField string
		wantErr   error
		wantCurr  string
	}{
		{name: "GBP country", ne: enrollment.NewEnrollment{StudentID: uk.ID, CourseID: fix.Course.ID}, wantCurr: "GBP"},
		{name: "already enrolled", ne: enrollment.NewEnrollment{StudentID: fix.Student.ID, CourseID: fix.Course.ID}, wantErr: enrollment.ErrExists},
		{name: "embargoed", ne: enrollment.NewEnrollment{StudentID: cuba.ID, CourseID: fix.Course.ID}, wantField: "student_id", wantErr: enrollment.ErrEmbargoed},
		{name: "not a student", ne: enrollment.NewEnrollment{StudentID: tutor.ID, CourseID: fix.Course.ID}, wantField: "student_id", wantErr: enrollment.ErrNotStudent},
		{name: "unknown student", ne: enrollment.NewEnrollment{StudentID: "nope", CourseID: fix.Course.ID}, wantField: "student_id"},
		{name: "unknown course", ne: enrollment.NewEnrollment{StudentID: uk.ID, CourseID: "nope"}, wantField: "course_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enr, err := env.Enrollments.Create(ctx, tt.ne)
			switch {
			case tt.wantField != "":
				verr, ok := err.(*core.ValidationError)
				require.True(t, ok, "got %T: %v", err, err)
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				if tt.wantErr != nil {
					assert.Equal(t, tt.wantErr, verr.Err)
				}
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantCurr, enr.Currency)
			}
		})
	}

	enrs, err := env.Enrollments.ListForStudent(ctx, uk.ID)
	require.NoError(t, err)
	assert.Len(t, enrs, 1)
}

func TestNewEnrollment_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	ne := enrollment.NewEnrollment{StudentID: " s1 ", CourseID: "c1", Cost: 100, Installment: 50}
	require.NoError(t, ne.Validate(validate))
	assert.Equal(t, "s1", ne.StudentID)
	assert.Equal(t, enrollment.PaymentUnpaid, ne.PaymentStatus)

	ne = enrollment.NewEnrollment{StudentID: "s1", CourseID: "c1", Cost: 100, Installment: 150}
	assert.Error(t, ne.Validate(validate))
}

func TestService_Materials(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	fix := env.NewFixture(t)
	enr := fix.Enrollment

	require.NoError(t, env.Enrollments.CompleteMaterial(ctx, enr, fix.Lesson.ID))
	require.NoError(t, env.Enrollments.CompleteMaterial(ctx, enr, fix.Lesson.ID), "completing twice is a no-op")

	mcs, err := env.Enrollments.ListMaterialCompletions(ctx, enr)
	require.NoError(t, err)
	require.Len(t, mcs, 1)
	assert.Equal(t, fix.Lesson.ID, mcs[0].MaterialID)

	// materials of another course are not found
	other, err := env.Courses.CreateCourse(ctx, course.NewCourse{Code: "ART200", Name: "Art"})
	require.NoError(t, err)
	foreign, err := env.Courses.CreateMaterial(ctx, other.ID, course.NewMaterial{Type: course.MaterialLesson, Title: "Elsewhere"})
	require.NoError(t, err)
	assert.Equal(t, course.ErrMaterialNotFound, env.Enrollments.CompleteMaterial(ctx, enr, foreign.ID))

	require.NoError(t, env.Enrollments.UncompleteMaterial(ctx, enr, fix.Lesson.ID))
	mcs, err = env.Enrollments.ListMaterialCompletions(ctx, enr)
	require.NoError(t, err)
	assert.Empty(t, mcs)

	enr, err = env.Enrollments.SetHold(ctx, enr, true)
	require.NoError(t, err)
	assert.Equal(t, enrollment.ErrOnHold, env.Enrollments.CompleteMaterial(ctx, enr, fix.Lesson.ID))
	assert.Equal(t, enrollment.ErrOnHold, env.Enrollments.UncompleteMaterial(ctx, enr, fix.Lesson.ID))
}

func TestService_MaterialData(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	fix := env.NewFixture(t)
	enr := fix.Enrollment

	_, err := env.Enrollments.GetMaterialData(ctx, enr, fix.Lesson.ID)
	assert.Equal(t, enrollment.ErrNotScorm, err)

	md, err := env.Enrollments.GetMaterialData(ctx, enr, fix.Scorm.ID)
	require.NoError(t, err)
	assert.Equal(t, scorm.Version2004, md.Version)
	assert.Equal(t, "ab-initio", md.Data["cmi.entry"])
	assert.Equal(t, fix.Student.ID, md.Data["cmi.learner_id"])
	assert.Equal(t, fix.Student.Name, md.Data["cmi.learner_name"])

	data := md.Data.Clone()
	data["cmi.location"] = "page-3"
	data["cmi.exit"] = "suspend"
	data["cmi.progress_measure"] = "0.5"
	_, err = env.Enrollments.UpdateMaterialData(ctx, enr, fix.Scorm.ID, data)
	require.NoError(t, err)

	mcs, err := env.Enrollments.ListMaterialCompletions(ctx, enr)
	require.NoError(t, err)
	assert.Empty(t, mcs, "incomplete sessions do not complete the material")

	md, err = env.Enrollments.GetMaterialData(ctx, enr, fix.Scorm.ID)
	require.NoError(t, err)
	assert.Equal(t, "resume", md.Data["cmi.entry"])
	assert.Equal(t, "page-3", md.Data["cmi.location"])
	_, hasExit := md.Data["cmi.exit"]
	assert.False(t, hasExit)
	assert.Equal(t, 50, scorm.ProgressMeasure(md.Version, md.Data))

	md.Data["cmi.completion_status"] = "completed"
	_, err = env.Enrollments.UpdateMaterialData(ctx, enr, fix.Scorm.ID, md.Data)
	require.NoError(t, err)

	mcs, err = env.Enrollments.ListMaterialCompletions(ctx, enr)
	require.NoError(t, err)
	require.Len(t, mcs, 1)
	assert.Equal(t, fix.Scorm.ID, mcs[0].MaterialID)

	enr, err = env.Enrollments.SetHold(ctx, enr, true)
	require.NoError(t, err)
	_, err = env.Enrollments.UpdateMaterialData(ctx, enr, fix.Scorm.ID, md.Data)
	assert.Equal(t, enrollment.ErrOnHold, err)
}

func TestService_Progress(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	fix := env.NewFixture(t)
	enr := fix.Enrollment

	p, err := env.Enrollments.Progress(ctx, enr)
	require.NoError(t, err)
	assert.Equal(t, 2, p.LessonCount)
	assert.Equal(t, 2, p.UnitCount)
	assert.Equal(t, 0, p.Progress)
	assert.Equal(t, 8, p.Max)
	assert.Equal(t, 0, p.Percentage)

	require.NoError(t, env.Enrollments.CompleteMaterial(ctx, enr, fix.Lesson.ID))

	sub, err := env.Submissions.Initialize(ctx, enr)
	require.NoError(t, err)
	_, err = env.Submissions.SaveTextBox(ctx, sub.ID, sub.Assignments[0].Parts[0].TextBoxes[0].ID, "answer")
	require.NoError(t, err)
	_, err = env.Submissions.Submit(ctx, sub.ID)
	require.NoError(t, err)

	p, err = env.Enrollments.Progress(ctx, enr)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CompletedLessons)
	assert.Equal(t, 1, p.SubmittedUnits)
	assert.Equal(t, 4, p.Progress)
	assert.Equal(t, 50, p.Percentage)

	// skipped units count as submitted
	subB, err := env.Submissions.Initialize(ctx, enr)
	require.NoError(t, err)
	_, err = env.Submissions.Skip(ctx, subB.ID)
	require.NoError(t, err)

	p, err = env.Enrollments.Progress(ctx, enr)
	require.NoError(t, err)
	assert.Equal(t, 2, p.SubmittedUnits)
	assert.Equal(t, 7, p.Progress)
	assert.Equal(t, 88, p.Percentage)
}
