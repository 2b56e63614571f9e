package client_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/openschool/campus/apps/api/echo"
	"github.com/openschool/campus/client"
	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func setup(t *testing.T) (*testutil.Env, func() *client.Client) {
	t.Helper()
	env := testutil.NewEnv(t)
	ts := httptest.NewServer(echoapi.NewServer(echoapi.Options{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		DisableReqLogs: true,
		Users:          env.Users,
		Courses:        env.Courses,
		Enrollments:    env.Enrollments,
		Submissions:    env.Submissions,
		Payments:       env.Payments,
	}))
	t.Cleanup(ts.Close)

	newClient := func() *client.Client {
		conf := *env.Conf
		conf.Client.BaseURL = ts.URL
		conf.Client.Timeout = 5 * time.Second
		return client.New(&conf)
	}
	return env, newClient
}

func login(t *testing.T, c *client.Client, uname string) {
	t.Helper()
	require.NoError(t, c.Users.Login(context.Background(), uname, testutil.Password))
}

func TestClient_errors(t *testing.T) {
	env, newClient := setup(t)
	ctx := context.Background()
	student := env.Student(t, "student1", "CA")
	c := newClient()

	err := c.Users.Login(ctx, "student1", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, client.StatusCode(err))
	assert.EqualError(t, err, "400 authentication failed")
	assert.False(t, client.IsRefreshError(err))

	err = c.Users.Login(ctx, "", "")
	assert.Equal(t, []string{"password", "username"}, keys(client.FieldErrors(err)))

	// unauthenticated requests are not session expiries
	_, err = c.Users.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))
	assert.False(t, client.IsRefreshError(err))

	login(t, c, "student1")
	me, err := c.Users.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, student.ID, me.ID)
	require.NoError(t, c.Users.RefreshToken(ctx))

	_, err = env.Users.Delete(ctx, student.ID)
	require.NoError(t, err)
	_, err = c.Users.Me(ctx)
	assert.True(t, client.IsRefreshError(err))

	c.Users.Logout()
	assert.Empty(t, c.Token())
}

func TestClient_courseWork(t *testing.T) {
	env, newClient := setup(t)
	ctx := context.Background()
	fix := env.NewFixture(t)
	env.Admin(t, "admin01")

	adm := newClient()
	login(t, adm, "admin01")
	in := testutil.UnitBInput()
	in.Letter = "c"
	in.Order = 3
	ut, err := adm.Courses.CreateUnitTemplate(ctx, fix.Course.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "C", ut.Letter)
	require.NoError(t, adm.Courses.DeleteUnitTemplate(ctx, ut.ID))

	std := newClient()
	login(t, std, "student1")
	uts, err := std.Courses.ListUnitTemplates(ctx, fix.Course.ID)
	require.NoError(t, err)
	assert.Len(t, uts, 2)

	enrs, err := std.Enrollments.List(ctx, enrollment.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, enrs, 1)

	require.NoError(t, std.Enrollments.CompleteMaterial(ctx, fix.Enrollment.ID, fix.Lesson.ID))
	p, err := std.Enrollments.Progress(ctx, fix.Enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CompletedLessons)

	md, err := std.Enrollments.MaterialData(ctx, fix.Enrollment.ID, fix.Scorm.ID)
	require.NoError(t, err)
	data := md.Data.Clone()
	data["cmi.location"] = "3"
	_, err = std.Enrollments.UpdateMaterialData(ctx, fix.Enrollment.ID, fix.Scorm.ID, data)
	require.NoError(t, err)

	sub, err := std.Units.Initialize(ctx, fix.Enrollment.ID)
	require.NoError(t, err)
	part := sub.Assignments[0].Parts[0]
	boxID, slotID := part.TextBoxes[0].ID, part.UploadSlots[0].ID

	_, err = std.Units.Submit(ctx, sub.ID)
	assert.Contains(t, client.FieldErrors(err), "text_boxes."+boxID)

	_, err = std.Units.SaveTextBox(ctx, sub.ID, boxID, "Warm colours")
	require.NoError(t, err)

	var calls int
	var lastSent, lastTotal int64
	sub, err = std.Units.Upload(ctx, sub.ID, slotID, "moodboard.png", bytes.NewReader(pngHeader), int64(len(pngHeader)), func(sent, total int64) {
		calls++
		lastSent, lastTotal = sent, total
	})
	require.NoError(t, err)
	assert.Positive(t, calls)
	assert.Equal(t, int64(len(pngHeader)), lastSent)
	assert.Equal(t, lastSent, lastTotal)

	content, filename, err := std.Units.Download(ctx, sub.ID, slotID)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, content)
	assert.Equal(t, "moodboard.png", filename)

	sub, err = std.Units.Submit(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsSubmitted())

	tutor := newClient()
	login(t, tutor, "tutor01")
	sub, err = tutor.Units.SetTextBoxMark(ctx, sub.ID, boxID, submission.MarkPatch{Mark: core.Set(7.5)})
	require.NoError(t, err)
	require.NotNil(t, sub.Mark)
	assert.Equal(t, 7.5, *sub.Mark)

	sub, err = tutor.Units.Close(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsClosed())

	_, err = tutor.Units.Close(ctx, sub.ID)
	assert.Equal(t, http.StatusConflict, client.StatusCode(err))
}

func TestClient_paymentMethods(t *testing.T) {
	env, newClient := setup(t)
	ctx := context.Background()
	fix := env.NewFixture(t)

	c := newClient()
	login(t, c, "student1")

	cl, err := c.Countries.Classify(ctx, "ca")
	require.NoError(t, err)
	assert.True(t, cl.NeedsPostalCode)

	m, err := c.PaymentMethods.Insert(ctx, payment.NewMethod{
		EnrollmentID:   fix.Enrollment.ID,
		SingleUseToken: "tok",
		Country:        cl.Code,
		PostalCode:     "K1A 0B1",
	})
	require.NoError(t, err)
	assert.True(t, m.Primary)

	m, err = c.PaymentMethods.Disable(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, m.Disabled)

	_, err = c.PaymentMethods.SetPrimary(ctx, m.ID)
	assert.Equal(t, http.StatusConflict, client.StatusCode(err))

	methods, err := c.PaymentMethods.List(ctx)
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	_, err = c.Courses.Create(ctx, course.NewCourse{Code: "X1", Name: "X"})
	assert.Equal(t, http.StatusForbidden, client.StatusCode(err))
}

func keys(m map[string]string) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
