package course_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/testutil"
)

func TestService_Courses(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	c, err := env.Courses.CreateCourse(ctx, course.NewCourse{Code: "DSN101", Name: "Interior Design"})
	require.NoError(t, err)
	_, err = env.Courses.CreateCourse(ctx, course.NewCourse{Code: "ART100", Name: "Art"})
	require.NoError(t, err)

	_, err = env.Courses.CreateCourse(ctx, course.NewCourse{Code: "DSN101", Name: "Again"})
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "got %T: %v", err, err)
	assert.Equal(t, "code", verr.Fields[0].Field)

	courses, err := env.Courses.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "ART100", courses[0].Code)

	got, err := env.Courses.GetCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = env.Courses.GetCourse(ctx, "nope")
	assert.True(t, core.IsNotFound(err))
}

func TestService_UnitTemplates(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	c, err := env.Courses.CreateCourse(ctx, course.NewCourse{Code: "DSN101", Name: "Interior Design"})
	require.NoError(t, err)

	utB, err := env.Courses.CreateUnitTemplate(ctx, c.ID, testutil.UnitBInput())
	require.NoError(t, err)
	utA, err := env.Courses.CreateUnitTemplate(ctx, c.ID, testutil.UnitAInput())
	require.NoError(t, err)

	assert.Equal(t, float64(15), utA.Points())
	a := utA.Assignments[0]
	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, a.Parts[0].ID)
	assert.NotEmpty(t, a.Parts[0].TextBoxes[0].ID)
	assert.NotEmpty(t, a.Parts[0].UploadSlots[0].ID)

	uts, err := env.Courses.ListUnitTemplates(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, uts, 2)
	assert.Equal(t, "A", uts[0].Letter, "sorted by order")
	assert.Equal(t, "B", uts[1].Letter)

	// letters are unique per course
	_, err = env.Courses.CreateUnitTemplate(ctx, c.ID, testutil.UnitAInput())
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "got %T: %v", err, err)
	assert.Equal(t, course.ErrLetterExists, verr.Err)
	assert.Equal(t, "letter", verr.Fields[0].Field)

	in := testutil.UnitBInput()
	in.Letter = "A"
	_, err = env.Courses.UpdateUnitTemplate(ctx, utB, in)
	assert.Error(t, err)

	// updating keeps node IDs that were sent back
	in = testutil.UnitAInput()
	in.Title = "Introduction to design"
	in.Assignments = utA.Assignments
	updated, err := env.Courses.UpdateUnitTemplate(ctx, utA, in)
	require.NoError(t, err)
	assert.Equal(t, "Introduction to design", updated.Title)
	assert.Equal(t, a.ID, updated.Assignments[0].ID)
	assert.Equal(t, utA.CreatedAt, updated.CreatedAt)

	// another course may reuse a letter
	other, err := env.Courses.CreateCourse(ctx, course.NewCourse{Code: "ART100", Name: "Art"})
	require.NoError(t, err)
	_, err = env.Courses.CreateUnitTemplate(ctx, other.ID, testutil.UnitAInput())
	assert.NoError(t, err)

	_, err = env.Courses.CreateUnitTemplate(ctx, "nope", testutil.UnitAInput())
	assert.Equal(t, course.ErrNotFound, err)

	require.NoError(t, env.Courses.DeleteUnitTemplate(ctx, utB.ID))
	_, err = env.Courses.GetUnitTemplate(ctx, utB.ID)
	assert.Equal(t, course.ErrUnitTemplateNotFound, err)
	assert.Equal(t, course.ErrUnitTemplateNotFound, env.Courses.DeleteUnitTemplate(ctx, utB.ID))
}

func TestService_Materials(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	c, err := env.Courses.CreateCourse(ctx, course.NewCourse{Code: "DSN101", Name: "Interior Design"})
	require.NoError(t, err)

	for _, nm := range []course.NewMaterial{
		{UnitLetter: "B", Type: course.MaterialVideo, Title: "Tour", Order: 1},
		{UnitLetter: "A", Type: course.MaterialScorm12, Title: "Lighting", Order: 2},
		{UnitLetter: "A", Type: course.MaterialLesson, Title: "Colour", Order: 1},
	} {
		_, err = env.Courses.CreateMaterial(ctx, c.ID, nm)
		require.NoError(t, err)
	}

	materials, err := env.Courses.ListMaterials(ctx, c.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(materials))
	for _, m := range materials {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"Colour", "Lighting", "Tour"}, titles)
	assert.True(t, materials[1].IsScorm())
	assert.False(t, materials[0].IsScorm())

	_, err = env.Courses.CreateMaterial(ctx, "nope", course.NewMaterial{Type: course.MaterialLesson, Title: "x"})
	assert.Equal(t, course.ErrNotFound, err)
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	_, translator := testutil.NewValidator()
	got := make(map[string]string)
	if err == nil {
		return got
	}
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "got %T: %v", err, err)
	for _, fe := range verrs {
		got[fe.Field()] = fe.Translate(translator)
	}
	return got
}

func TestUnitTemplateInput_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	in := testutil.UnitAInput()
	in.Letter = " c "
	in.Title = "  Trimmed title "
	require.NoError(t, in.Validate(validate))
	assert.Equal(t, "C", in.Letter)
	assert.Equal(t, "Trimmed title", in.Title)

	tests := []struct {
		name   string
		mutate func(in *course.UnitTemplateInput)
		want   []string
	}{
		{name: "two letters", mutate: func(in *course.UnitTemplateInput) { in.Letter = "AB" }, want: []string{"letter"}},
		{name: "order too large", mutate: func(in *course.UnitTemplateInput) { in.Order = 128 }, want: []string{"order"}},
		{name: "missing title", mutate: func(in *course.UnitTemplateInput) { in.Title = "" }, want: []string{"title"}},
		{name: "long title", mutate: func(in *course.UnitTemplateInput) { in.Title = strings.Repeat("é", 96) }, want: []string{"title"}},
		{
			name:   "bad upload type",
			mutate: func(in *course.UnitTemplateInput) { in.Assignments[0].Parts[0].UploadSlots[0].AllowedTypes = []string{"exe"} },
			want:   []string{"allowed_types[0]"},
		},
		{
			name:   "negative points",
			mutate: func(in *course.UnitTemplateInput) { in.Assignments[0].Parts[0].TextBoxes[0].Points = -1 },
			want:   []string{"points"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testutil.UnitAInput()
			tt.mutate(&in)
			got := validationFields(t, in.Validate(validate))
			for _, fld := range tt.want {
				assert.Contains(t, got, fld)
			}
			assert.Len(t, got, len(tt.want))
		})
	}
}

func TestNewCourse_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	nc := course.NewCourse{Code: " dsn101 ", Name: " Interior Design "}
	require.NoError(t, nc.Validate(validate))
	assert.Equal(t, "DSN101", nc.Code)
	assert.Equal(t, "Interior Design", nc.Name)

	nc = course.NewCourse{Code: "DSN-101", Name: "x"}
	assert.Contains(t, validationFields(t, nc.Validate(validate)), "code")
}
