package lesson

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/scorm"
	"github.com/openschool/campus/view"
)

type fakeService struct {
	mu          sync.Mutex
	completions map[string]bool
	data        scorm.Data
	updates     []scorm.Data
	targets     []string      // material of every update
	gate        chan struct{} // updates wait for it, when set
}

func (f *fakeService) MaterialCompletions(ctx context.Context, id string) ([]enrollment.MaterialCompletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mcs []enrollment.MaterialCompletion
	for mid := range f.completions {
		mcs = append(mcs, enrollment.MaterialCompletion{EnrollmentID: id, MaterialID: mid})
	}
	return mcs, nil
}

func (f *fakeService) CompleteMaterial(ctx context.Context, enrollmentID, materialID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions[materialID] = true
	return nil
}

func (f *fakeService) UncompleteMaterial(ctx context.Context, enrollmentID, materialID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.completions, materialID)
	return nil
}

func (f *fakeService) MaterialData(ctx context.Context, enrollmentID, materialID string) (enrollment.MaterialData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return enrollment.MaterialData{EnrollmentID: enrollmentID, MaterialID: materialID, Version: scorm.Version2004, Data: f.data.Clone()}, nil
}

func (f *fakeService) UpdateMaterialData(ctx context.Context, enrollmentID, materialID string, data scorm.Data) (enrollment.MaterialData, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, data)
	f.targets = append(f.targets, materialID)
	f.data = data.Clone()
	return enrollment.MaterialData{EnrollmentID: enrollmentID, MaterialID: materialID, Version: scorm.Version2004, Data: data}, nil
}

var (
	lessonMaterial = course.Material{ID: "m1", Type: course.MaterialLesson, Title: "Colour theory"}
	scormMaterial  = course.Material{ID: "m2", Type: course.MaterialScorm2004, Title: "Interactive tour"}
	quizMaterial   = course.Material{ID: "m3", Type: course.MaterialScorm2004, Title: "Quiz"}
)

func TestView_lesson(t *testing.T) {
	svc := &fakeService{completions: map[string]bool{"m1": true}}
	v := New(context.Background(), svc, nil)
	defer v.Close()

	v.Load("e1", lessonMaterial)
	v.Wait()
	require.NotNil(t, v.State().Entity)
	assert.True(t, v.State().Entity.Completed)
	assert.Nil(t, v.Runtime())

	v.Uncomplete()
	v.Wait()
	assert.False(t, v.State().Entity.Completed)
	assert.Equal(t, 0, v.State().Entity.ProgressMeasure())

	v.Complete()
	v.Wait()
	assert.True(t, v.State().Entity.Completed)
	assert.True(t, svc.completions["m1"])
	assert.Equal(t, view.Idle, v.State().Form.ProcessingState)
}

func TestView_scorm(t *testing.T) {
	svc := &fakeService{completions: map[string]bool{}, data: scorm.Defaults(scorm.Version2004, "s1", "Student")}
	v := New(context.Background(), svc, nil)
	defer v.Close()

	v.Load("e1", scormMaterial)
	v.Wait()
	rt := v.Runtime()
	require.NotNil(t, rt)
	assert.False(t, v.State().Entity.Completed)

	assert.Equal(t, "true", rt.Initialize(""))
	assert.Equal(t, "ab-initio", rt.GetValue("cmi.entry"))
	assert.Equal(t, "true", rt.SetValue("cmi.location", "page-2"))
	assert.Equal(t, "true", rt.SetValue("cmi.progress_measure", "0.5"))
	assert.Equal(t, "true", rt.Commit(""))
	assert.Equal(t, "true", rt.SetValue("cmi.completion_status", "completed"))
	assert.Equal(t, "true", rt.Terminate(""))
	v.Wait()

	require.Len(t, svc.updates, 2, "one save per commit, in order")
	assert.Equal(t, "page-2", svc.updates[0]["cmi.location"])
	assert.Equal(t, "completed", svc.updates[1]["cmi.completion_status"])

	s := v.State()
	assert.True(t, s.Entity.Completed)
	assert.Equal(t, 100, s.Entity.ProgressMeasure())

	// SCORM packages complete through their data only
	v.Uncomplete()
	v.Wait()
	assert.True(t, v.State().Entity.Completed)
}

func TestView_scormClose(t *testing.T) {
	svc := &fakeService{completions: map[string]bool{}, data: scorm.Defaults(scorm.Version2004, "s1", "Student")}
	v := New(context.Background(), svc, nil)

	v.Load("e1", scormMaterial)
	v.Wait()
	rt := v.Runtime()
	require.NotNil(t, rt)
	rt.Initialize("")
	rt.SetValue("cmi.location", "page-9")

	v.Close()
	rt.Commit("")
	v.Wait()
	assert.Empty(t, svc.updates, "nothing is saved once the view is closed")
}

func TestView_scormNavigation(t *testing.T) {
	svc := &fakeService{completions: map[string]bool{}, data: scorm.Defaults(scorm.Version2004, "s1", "Student"), gate: make(chan struct{})}
	v := New(context.Background(), svc, nil)
	defer v.Close()

	v.Load("e1", scormMaterial)
	v.Wait()
	rt := v.Runtime()
	require.NotNil(t, rt)
	rt.Initialize("")
	rt.SetValue("cmi.location", "page-2")
	assert.Equal(t, "true", rt.Commit(""))
	rt.SetValue("cmi.completion_status", "completed")
	assert.Equal(t, "true", rt.Commit(""))

	// leave for another package while both commits are queued
	v.Load("e1", quizMaterial)
	require.Eventually(t, func() bool {
		s := v.State()
		return s.Entity != nil && s.Entity.Material.ID == quizMaterial.ID
	}, time.Second, time.Millisecond)
	close(svc.gate)
	v.Wait()

	assert.Equal(t, []string{"m2", "m2"}, svc.targets, "commits are saved to the package that made them")
	require.Len(t, svc.updates, 2)
	assert.Equal(t, "page-2", svc.updates[0]["cmi.location"])
	assert.Equal(t, "completed", svc.updates[1]["cmi.completion_status"])

	s := v.State()
	assert.Equal(t, quizMaterial.ID, s.Entity.Material.ID)
	assert.False(t, s.Entity.Completed)
	require.NotNil(t, s.Entity.Data)
	assert.Equal(t, quizMaterial.ID, s.Entity.Data.MaterialID)
	assert.Empty(t, s.Entity.Data.Data["cmi.location"])
	assert.Equal(t, view.Idle, s.Form.ProcessingState)
}

func TestReduce_staleOutcomes(t *testing.T) {
	s := Reduce(NewState(), LoadSucceeded{Lesson: Lesson{EnrollmentID: "e1", Material: lessonMaterial}})

	s = Reduce(s, Started{Verb: view.Save, MaterialID: scormMaterial.ID})
	assert.Equal(t, view.Idle, s.Form.ProcessingState)
	s = Reduce(s, Failed{Verb: view.Save, MaterialID: scormMaterial.ID, Failure: view.Failure{Message: "gone"}})
	assert.Equal(t, view.Idle, s.Form.ProcessingState)
	s = Reduce(s, DataSaved{MaterialID: scormMaterial.ID, Data: enrollment.MaterialData{MaterialID: scormMaterial.ID}})
	assert.Nil(t, s.Entity.Data)

	s = Reduce(s, Started{Verb: view.Save, MaterialID: lessonMaterial.ID})
	s = Reduce(s, CompletionSucceeded{Verb: view.Save, MaterialID: lessonMaterial.ID, Completed: true})
	assert.True(t, s.Entity.Completed)
	assert.Equal(t, view.Idle, s.Form.ProcessingState)
}
