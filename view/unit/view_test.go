package unit

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/client"
	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/grading"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/view"
)

func newUnit() submission.Submission {
	return submission.Submission{
		ID:         "u1",
		UnitLetter: "A",
		Assignments: []submission.Assignment{{
			ID: "a1",
			Parts: []submission.Part{{
				ID:          "p1",
				TextBoxes:   []submission.TextBox{{ID: "tb1", Marks: grading.Marks{Points: 10}}},
				UploadSlots: []submission.UploadSlot{{ID: "us1", Optional: true, AllowedTypes: []string{"pdf"}, Marks: grading.Marks{Points: 5}}},
			}},
		}},
	}
}

type fakeService struct {
	mu      sync.Mutex
	unit    submission.Submission
	block   chan struct{} // when set, every call but Get waits for it
	err     error
	saved   []string
	submits int
}

func (f *fakeService) wait() {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeService) Get(ctx context.Context, id string) (submission.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unit.Clone(), nil
}

func (f *fakeService) SaveTextBox(ctx context.Context, id, textBoxID, text string) (submission.Submission, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, text)
	tb, err := f.unit.TextBox(textBoxID)
	if err != nil {
		return submission.Submission{}, err
	}
	tb.Text = text
	return f.unit.Clone(), nil
}

func (f *fakeService) Upload(ctx context.Context, id, slotID, filename string, content io.Reader, size int64, progress client.ProgressFunc) (submission.Submission, error) {
	f.wait()
	var sent int64
	buf := make([]byte, 4)
	for {
		n, err := content.Read(buf)
		sent += int64(n)
		if n > 0 {
			progress(sent, size)
		}
		if err != nil {
			break
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, err := f.unit.UploadSlot(slotID)
	if err != nil {
		return submission.Submission{}, err
	}
	slot.File = &submission.File{ID: "f1", Filename: filename, Size: sent}
	return f.unit.Clone(), nil
}

func (f *fakeService) DeleteFile(ctx context.Context, id, slotID string) (submission.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, err := f.unit.UploadSlot(slotID)
	if err != nil {
		return submission.Submission{}, err
	}
	slot.File = nil
	return f.unit.Clone(), nil
}

func (f *fakeService) Submit(ctx context.Context, id string) (submission.Submission, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	now := time.Now().UTC()
	f.unit.Submitted = &now
	return f.unit.Clone(), nil
}

func (f *fakeService) Skip(ctx context.Context, id string) (submission.Submission, error) {
	return submission.Submission{}, f.err
}

func load(t *testing.T, svc *fakeService) *View {
	v := New(context.Background(), svc, nil)
	t.Cleanup(v.Close)
	v.Load("u1")
	v.Wait()
	require.NotNil(t, v.State().Entity)
	return v
}

func TestView_autosave(t *testing.T) {
	svc := &fakeService{unit: newUnit(), block: make(chan struct{})}
	v := load(t, svc)

	for _, text := range []string{"a", "ab", "abc"} {
		v.SetText("tb1", text)
	}
	close(svc.block)
	v.Wait()

	assert.Equal(t, []string{"a", "ab", "abc"}, svc.saved, "saved in the order typed")
	tb, err := v.State().Entity.TextBox("tb1")
	require.NoError(t, err)
	assert.Equal(t, "abc", tb.Text)
	assert.Equal(t, view.Idle, v.State().Form.ProcessingState)

	// too long: shown on the field, never sent
	v.SetText("tb1", strings.Repeat("é", core.LongTextMaxBytes/2+1))
	v.Wait()
	assert.Len(t, svc.saved, 3)
	assert.Equal(t, core.MsgMaxBytes, v.State().Form.ValidationMessages["text_boxes.tb1"])
}

func TestView_submit(t *testing.T) {
	svc := &fakeService{unit: newUnit()}
	v := load(t, svc)

	v.Submit()
	v.Wait()
	assert.Zero(t, svc.submits, "required answers are missing")
	assert.Equal(t, core.MsgRequired, v.State().Form.ValidationMessages["text_boxes.tb1"])

	v.SetText("tb1", "my answer")
	v.Wait()
	assert.True(t, v.State().Form.Valid())
	v.Submit()
	v.Wait()
	assert.Equal(t, 1, svc.submits)
	assert.True(t, v.State().Entity.IsSubmitted())

	// read only once submitted
	v.SetText("tb1", "changed")
	v.Wait()
	assert.Equal(t, "my answer", v.State().Form.Data.Texts["tb1"])
	assert.Equal(t, []string{"my answer"}, svc.saved)
}

func TestView_submitExhaust(t *testing.T) {
	unit := newUnit()
	unit.Assignments[0].Parts[0].TextBoxes[0].Text = "done"
	svc := &fakeService{unit: unit, block: make(chan struct{})}
	v := load(t, svc)

	var states []view.ProcessingState
	v.Subscribe(func(s State) {
		if n := len(states); n == 0 || states[n-1] != s.Form.ProcessingState {
			states = append(states, s.Form.ProcessingState)
		}
	})
	v.Submit()
	v.Submit() // dropped: the first submit is in flight
	close(svc.block)
	v.Wait()

	assert.Equal(t, 1, svc.submits)
	assert.Equal(t, []view.ProcessingState{view.Idle, "submitting", view.Idle}, states)
	assert.True(t, v.State().Entity.IsSubmitted())
}

func TestView_upload(t *testing.T) {
	svc := &fakeService{unit: newUnit()}
	v := load(t, svc)

	var progress []int
	v.Subscribe(func(s State) {
		if s.Form.ProcessingState == view.Upload.Active() && s.Form.Data.UploadProgress > 0 {
			progress = append(progress, s.Form.Data.UploadProgress)
		}
	})
	v.Upload("us1", File{Name: "essay.pdf", Content: strings.NewReader("12345678"), Size: 8})
	v.Wait()

	assert.Equal(t, []int{50, 100}, progress)
	s := v.State()
	assert.Equal(t, view.Idle, s.Form.ProcessingState)
	assert.Zero(t, s.Form.Data.UploadProgress)
	slot, err := s.Entity.UploadSlot("us1")
	require.NoError(t, err)
	require.NotNil(t, slot.File)
	assert.Equal(t, "essay.pdf", slot.File.Filename)

	v.DeleteFile("us1")
	v.Wait()
	slot, _ = v.State().Entity.UploadSlot("us1")
	assert.Nil(t, slot.File)
}

func TestView_skipFailure(t *testing.T) {
	svc := &fakeService{unit: newUnit(), err: &client.Error{Status: http.StatusConflict, Message: "unit is not optional"}}
	v := load(t, svc)

	v.Skip()
	v.Wait()
	s := v.State()
	assert.Equal(t, view.Skip.Failed(), s.Form.ProcessingState)
	assert.Equal(t, "unit is not optional", s.Form.ErrorMessage)
	assert.False(t, s.Entity.IsSubmitted())
}

func TestView_submitWhileSaving(t *testing.T) {
	unit := newUnit()
	unit.Assignments[0].Parts[0].TextBoxes[0].Text = "done"
	svc := &fakeService{unit: unit, block: make(chan struct{})}
	v := load(t, svc)

	v.SetText("tb1", "done!")
	v.Submit() // refused: the answer is still being saved
	close(svc.block)
	v.Wait()

	assert.Zero(t, svc.submits)
	assert.Equal(t, []string{"done!"}, svc.saved)
}

func TestView_saveWhileSubmitting(t *testing.T) {
	unit := newUnit()
	unit.Assignments[0].Parts[0].TextBoxes[0].Text = "done"
	svc := &fakeService{unit: unit, block: make(chan struct{})}
	v := load(t, svc)

	v.Submit()
	require.Eventually(t, func() bool {
		return v.State().Form.ProcessingState == view.Submit.Active()
	}, time.Second, time.Millisecond)
	assert.False(t, Editable(v.State()))

	v.SetText("tb1", "too late")
	v.autosave.Next(textEdit{textBoxID: "tb1", text: "too late"})
	close(svc.block)
	v.Wait()

	assert.Equal(t, 1, svc.submits)
	assert.Empty(t, svc.saved)
	s := v.State()
	assert.True(t, s.Entity.IsSubmitted())
	assert.Equal(t, "done", s.Form.Data.Texts["tb1"])
	assert.Equal(t, view.Idle, s.Form.ProcessingState)
}

func TestView_saveWhileUploading(t *testing.T) {
	svc := &fakeService{unit: newUnit(), block: make(chan struct{})}
	v := load(t, svc)

	v.Upload("us1", File{Name: "essay.pdf", Content: strings.NewReader("12345678"), Size: 8})
	require.Eventually(t, func() bool {
		return v.State().Form.ProcessingState == view.Upload.Active()
	}, time.Second, time.Millisecond)

	v.SetText("tb1", "typed during the upload")
	s := v.State()
	assert.Equal(t, view.Upload.Active(), s.Form.ProcessingState, "the upload stays in flight")
	assert.Equal(t, "us1", s.Form.Data.UploadSlotID)
	assert.Empty(t, s.Form.Data.Texts["tb1"])

	close(svc.block)
	v.Wait()
	assert.Empty(t, svc.saved)
	slot, err := v.State().Entity.UploadSlot("us1")
	require.NoError(t, err)
	require.NotNil(t, slot.File)

	// editable again once the upload is done
	v.SetText("tb1", "after the upload")
	v.Wait()
	assert.Equal(t, []string{"after the upload"}, svc.saved)
}
