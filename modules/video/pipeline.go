package video

import (
	"fmt"

	"reelcraft-server/modules/common/model"
)

// Event - something that happened to an in-flight generation
type Event string

const (
	EventSegmentCompleted      Event = "segment_completed"       // more segments to go, extend issued
	EventFinalSegmentCompleted Event = "final_segment_completed" // last segment downloaded, storing
	EventStored                Event = "stored"
	EventSegmentFailed         Event = "segment_failed"
	EventMissingResult         Event = "missing_result"
	EventDownloadFailed        Event = "download_failed"
	EventExtendFailed          Event = "extend_failed"
	EventStorageFailed         Event = "storage_failed"
	EventTimedOut              Event = "timed_out"
)

// Next - status transition table. Terminal states accept nothing.
func Next(from string, ev Event) (string, error) {
	if model.IsTerminal(from) {
		return from, fmt.Errorf("%w: %s is terminal (event %s)", ErrInvalidTransition, from, ev)
	}

	switch ev {
	case EventSegmentCompleted:
		if from == model.StatusPending || from == model.StatusProcessing {
			return model.StatusProcessing, nil
		}
	case EventFinalSegmentCompleted:
		if from == model.StatusPending || from == model.StatusProcessing {
			return model.StatusMerging, nil
		}
	case EventStored:
		if from == model.StatusMerging {
			return model.StatusCompleted, nil
		}
	case EventStorageFailed:
		if from == model.StatusMerging {
			return model.StatusFailed, nil
		}
	case EventSegmentFailed, EventMissingResult, EventDownloadFailed, EventExtendFailed, EventTimedOut:
		switch from {
		case model.StatusPending, model.StatusProcessing, model.StatusMerging:
			return model.StatusFailed, nil
		}
	}
	return from, fmt.Errorf("%w: %s + %s", ErrInvalidTransition, from, ev)
}
