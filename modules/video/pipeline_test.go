package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reelcraft-server/modules/common/model"
)

func TestNext_HappyPaths(t *testing.T) {
	tests := []struct {
		from string
		ev   Event
		want string
	}{
		{model.StatusPending, EventSegmentCompleted, model.StatusProcessing},
		{model.StatusProcessing, EventSegmentCompleted, model.StatusProcessing},
		{model.StatusPending, EventFinalSegmentCompleted, model.StatusMerging},
		{model.StatusProcessing, EventFinalSegmentCompleted, model.StatusMerging},
		{model.StatusMerging, EventStored, model.StatusCompleted},
		{model.StatusMerging, EventStorageFailed, model.StatusFailed},
		{model.StatusPending, EventSegmentFailed, model.StatusFailed},
		{model.StatusProcessing, EventDownloadFailed, model.StatusFailed},
		{model.StatusProcessing, EventExtendFailed, model.StatusFailed},
		{model.StatusPending, EventMissingResult, model.StatusFailed},
		{model.StatusMerging, EventTimedOut, model.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.from+"/"+string(tt.ev), func(t *testing.T) {
			got, err := Next(tt.from, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_TerminalStatesAreFinal(t *testing.T) {
	events := []Event{
		EventSegmentCompleted, EventFinalSegmentCompleted, EventStored, EventSegmentFailed,
		EventMissingResult, EventDownloadFailed, EventExtendFailed, EventStorageFailed, EventTimedOut,
	}
	for _, from := range []string{model.StatusCompleted, model.StatusFailed} {
		for _, ev := range events {
			got, err := Next(from, ev)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s + %s", from, ev)
			assert.Equal(t, from, got)
		}
	}
}

func TestNext_IllegalTransitions(t *testing.T) {
	_, err := Next(model.StatusPending, EventStored)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Next(model.StatusProcessing, EventStorageFailed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Next(model.StatusMerging, EventSegmentCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
