package scorm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commitRecorder struct {
	commits []Data
	err     error
}

func (c *commitRecorder) Commit(data Data) error {
	if c.err != nil {
		return c.err
	}
	c.commits = append(c.commits, data)
	return nil
}

func TestRuntime_lifecycle(t *testing.T) {
	rec := new(commitRecorder)
	rt := NewRuntime(Version2004, Defaults(Version2004, "42", "Ada"), rec)

	assert.Equal(t, "false", rt.SetValue("cmi.location", "p1"))
	assert.Equal(t, "132", rt.GetLastError())
	assert.Equal(t, "", rt.GetValue("cmi.location"))
	assert.Equal(t, "122", rt.GetLastError())
	assert.Equal(t, "false", rt.Terminate(""))
	assert.Equal(t, TerminationBeforeInit, rt.LastError())

	assert.Equal(t, "false", rt.Initialize("x"))
	assert.Equal(t, "201", rt.GetLastError())
	require.Equal(t, "true", rt.Initialize(""))
	assert.Equal(t, "0", rt.GetLastError())
	assert.Equal(t, "false", rt.Initialize(""))
	assert.Equal(t, "103", rt.GetLastError())

	assert.Equal(t, "Ada", rt.GetValue("cmi.learner_name"))
	assert.Equal(t, "true", rt.SetValue("cmi.location", "page-3"))
	assert.Equal(t, "true", rt.SetValue("cmi.progress_measure", "0.5"))
	assert.Equal(t, "true", rt.Commit(""))
	require.Len(t, rec.commits, 1)
	assert.Equal(t, "page-3", rec.commits[0]["cmi.location"])

	// nothing changed: no new commit
	assert.Equal(t, "true", rt.Commit(""))
	assert.Len(t, rec.commits, 1)

	assert.Equal(t, "true", rt.SetValue("cmi.completion_status", "completed"))
	assert.Equal(t, "true", rt.Terminate(""))
	require.Len(t, rec.commits, 2)
	assert.True(t, Completed(Version2004, rec.commits[1]))

	assert.Equal(t, "false", rt.SetValue("cmi.location", "p1"))
	assert.Equal(t, "133", rt.GetLastError())
	assert.Equal(t, "false", rt.Commit(""))
	assert.Equal(t, "143", rt.GetLastError())
	assert.Equal(t, "false", rt.Initialize(""))
	assert.Equal(t, "104", rt.GetLastError())
}

func TestRuntime_dataModel2004(t *testing.T) {
	rt := NewRuntime(Version2004, Defaults(Version2004, "1", "Bo"), nil)
	require.Equal(t, "true", rt.Initialize(""))

	tests := []struct {
		name     string
		element  string
		value    string
		wantRes  string
		wantCode string
	}{
		{name: "read only", element: "cmi.learner_id", value: "2", wantRes: "false", wantCode: "404"},
		{name: "keyword", element: "cmi.interactions._count", value: "2", wantRes: "false", wantCode: "404"},
		{name: "undefined", element: "cmi.lol", value: "x", wantRes: "false", wantCode: "401"},
		{name: "bad vocabulary", element: "cmi.completion_status", value: "done", wantRes: "false", wantCode: "406"},
		{name: "out of range", element: "cmi.progress_measure", value: "1.5", wantRes: "false", wantCode: "406"},
		{name: "not a number", element: "cmi.score.scaled", value: "abc", wantRes: "false", wantCode: "406"},
		{name: "interaction", element: "cmi.interactions.0.id", value: "q1", wantRes: "true", wantCode: "0"},
		{name: "second interaction", element: "cmi.interactions.1.type", value: "choice", wantRes: "true", wantCode: "0"},
		{name: "write only", element: "cmi.session_time", value: "PT1M", wantRes: "true", wantCode: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRes, rt.SetValue(tt.element, tt.value))
			assert.Equal(t, tt.wantCode, rt.GetLastError())
		})
	}

	assert.Equal(t, "2", rt.GetValue("cmi.interactions._count"))
	assert.Equal(t, "scaled,raw,min,max", rt.GetValue("cmi.score._children"))
	assert.Equal(t, "", rt.GetValue("cmi.session_time"))
	assert.Equal(t, "405", rt.GetLastError())
	assert.Equal(t, "", rt.GetValue("cmi.suspend_data"))
	assert.Equal(t, "403", rt.GetLastError())
	assert.Equal(t, "Data Model Element Value Not Initialized", rt.GetErrorString("403"))
	assert.Equal(t, "cmi.suspend_data", rt.GetDiagnostic(""))
}

func TestRuntime_scorm12(t *testing.T) {
	var committed Data
	rt := NewRuntime(Version12, Defaults(Version12, "7", "Cy"), CommitFunc(func(d Data) error {
		committed = d
		return nil
	}))

	assert.Equal(t, "", rt.LMSGetValue("cmi.core.lesson_status"))
	assert.Equal(t, "301", rt.LMSGetLastError())
	assert.Equal(t, "Not initialized", rt.LMSGetErrorString("301"))

	require.Equal(t, "true", rt.LMSInitialize(""))
	assert.Equal(t, "not attempted", rt.LMSGetValue("cmi.core.lesson_status"))
	assert.Equal(t, "false", rt.LMSSetValue("cmi.core.student_name", "X"))
	assert.Equal(t, "403", rt.LMSGetLastError())
	assert.Equal(t, "false", rt.LMSSetValue("cmi.core.score.raw", "101"))
	assert.Equal(t, "405", rt.LMSGetLastError())
	assert.Equal(t, "true", rt.LMSSetValue("cmi.core.score.raw", "88"))
	assert.Equal(t, "true", rt.LMSSetValue("cmi.core.lesson_status", "passed"))
	assert.Equal(t, "true", rt.LMSFinish(""))

	assert.True(t, Completed(Version12, committed))
	assert.Equal(t, 100, ProgressMeasure(Version12, committed))
}

func TestRuntime_commitFailure(t *testing.T) {
	rt := NewRuntime(Version2004, nil, &commitRecorder{err: errors.New("offline")})
	require.Equal(t, "true", rt.Initialize(""))
	require.Equal(t, "true", rt.SetValue("cmi.location", "x"))
	assert.Equal(t, "false", rt.Commit(""))
	assert.Equal(t, "391", rt.GetLastError())
	assert.Equal(t, "offline", rt.GetDiagnostic("391"))
}

func TestProgressMeasure(t *testing.T) {
	assert.Equal(t, 0, ProgressMeasure(Version2004, Data{}))
	assert.Equal(t, 50, ProgressMeasure(Version2004, Data{"cmi.progress_measure": "0.5"}))
	assert.Equal(t, 100, ProgressMeasure(Version2004, Data{"cmi.completion_status": "completed"}))
	assert.Equal(t, 100, ProgressMeasure(Version2004, Data{"cmi.success_status": "passed"}))
	assert.Equal(t, 0, ProgressMeasure(Version12, Data{"cmi.core.lesson_status": "incomplete"}))
}

func TestResume(t *testing.T) {
	d := Resume(Version2004, Data{"cmi.entry": "ab-initio", "cmi.exit": "suspend", "cmi.location": "p2"})
	assert.Equal(t, Data{"cmi.entry": "resume", "cmi.location": "p2"}, d)
}
