package view

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openschool/campus/client"
	"github.com/openschool/campus/core"
)

type counterAction int

func TestStore(t *testing.T) {
	s := NewStore(0, func(state int, a counterAction) int { return state + int(a) })

	var seen []int
	unsubscribe := s.Subscribe(func(state int) { seen = append(seen, state) })
	s.Dispatch(2)
	s.Dispatch(3)
	assert.Equal(t, 5, s.State())
	assert.Equal(t, []int{2, 5}, seen)

	unsubscribe()
	s.Dispatch(1)
	assert.Equal(t, []int{2, 5}, seen)

	s.Close()
	s.Dispatch(10)
	assert.Equal(t, 6, s.State(), "a closed store ignores actions")
	assert.True(t, s.Closed())
}

func TestProcessingState(t *testing.T) {
	tests := []struct {
		ps                   ProcessingState
		idle, busy, hasError bool
	}{
		{Idle, true, false, false},
		{Save.Active(), false, true, false},
		{Submit.Failed(), false, false, true},
		{Upload.Active(), false, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.ps), func(t *testing.T) {
			assert.Equal(t, tt.idle, tt.ps.IsIdle())
			assert.Equal(t, tt.busy, tt.ps.Busy())
			assert.Equal(t, tt.hasError, tt.ps.IsError())
		})
	}
	assert.Equal(t, ProcessingState("inserting"), Insert.Active())
	assert.Equal(t, ProcessingState("delete error"), Delete.Failed())
}

func TestForm(t *testing.T) {
	f := NewForm("data")
	assert.True(t, f.Valid())

	f2 := f.WithMessage("letter", core.MsgRequired)
	assert.False(t, f2.Valid())
	assert.True(t, f.Valid(), "messages are copied, not shared")

	f2 = f2.Started(Save)
	assert.Equal(t, ProcessingState("saving"), f2.ProcessingState)

	f2 = f2.Failed(Save, "boom", map[string]string{"title": "taken"})
	assert.Equal(t, ProcessingState("save error"), f2.ProcessingState)
	assert.Equal(t, "boom", f2.ErrorMessage)
	assert.Equal(t, map[string]string{"letter": core.MsgRequired, "title": "taken"}, f2.ValidationMessages)

	f2 = f2.Started(Save)
	assert.Empty(t, f2.ErrorMessage, "starting again clears the error")
	f2 = f2.WithMessage("letter", "").Succeeded()
	assert.Equal(t, Idle, f2.ProcessingState)
	assert.Equal(t, map[string]string{"title": "taken"}, f2.ValidationMessages)
}

func TestState_load(t *testing.T) {
	var s State[string, struct{}]
	s = s.LoadFailed(http.StatusNotFound)
	assert.True(t, s.Error)
	assert.Equal(t, http.StatusNotFound, s.ErrorCode)

	s = s.Loaded("entity")
	require.NotNil(t, s.Entity)
	assert.Equal(t, "entity", *s.Entity)
	assert.False(t, s.Error)
}

func TestHandleError(t *testing.T) {
	var redirects int
	nav := NavigatorFunc(func() { redirects++ })
	var failures []Failure
	failed := func(f Failure) { failures = append(failures, f) }
	ctx := context.Background()

	HandleError(ctx, nil, nav, failed)
	HandleError(ctx, errors.Wrap(client.SessionExpired(), "loading unit"), nav, failed)
	assert.Equal(t, 1, redirects)
	assert.Empty(t, failures, "an expired session shows no inline error")

	HandleError(ctx, &client.Error{Status: http.StatusConflict, Message: "unit already submitted"}, nav, failed)
	HandleError(ctx, &client.Error{Status: http.StatusBadRequest, Message: "Bad Request", Fields: map[string]string{"letter": "x"}}, nav, failed)
	HandleError(ctx, errors.New("connection refused"), nav, failed)
	require.Len(t, failures, 3)
	assert.Equal(t, Failure{Status: http.StatusConflict, Message: "unit already submitted"}, failures[0])
	assert.Equal(t, msgCorrectErrors, failures[1].Message)
	assert.Equal(t, map[string]string{"letter": "x"}, failures[1].Fields)
	assert.Equal(t, Failure{Message: msgUnexpected}, failures[2])

	closed, cancel := context.WithCancel(ctx)
	cancel()
	HandleError(closed, errors.New("late"), nav, failed)
	assert.Len(t, failures, 3, "errors after close are dropped")
}

func TestValidate(t *testing.T) {
	msgs := Validate(map[string]func() string{
		"title":       TextRule("", core.ShortTextMaxBytes, true),
		"description": TextRule("é", 1, false),
		"notes":       TextRule("ok", core.LongTextMaxBytes, false),
	})
	assert.Equal(t, map[string]string{"title": core.MsgRequired, "description": core.MsgMaxBytes}, msgs)
}
