package app

import "quiz-play-service/internal/domain"

type event int

const (
	evLoaded event = iota
	evLoadFailed
	evToggle
	evTick
	evFinish
	evExpire
	evReported
	evReportFailed
	evAbandon
)

type effect int

const (
	effStartClock effect = iota
	effApplyToggle
	effPublishTick
	effClaim
	effStopClock
	effSend
	effRecordResult
	effRecordError
	effRelease
)

// step is the attempt state machine. It has no side effects of its own; the
// engine executes the returned effects in order. An event that does not apply
// to the current state yields (from, nil).
func step(from domain.SessionState, ev event) (domain.SessionState, []effect) {
	switch from {
	case domain.StateLoading:
		switch ev {
		case evLoaded:
			return domain.StateActive, []effect{effStartClock}
		case evLoadFailed, evAbandon:
			return domain.StateFailed, []effect{effRecordError, effRelease}
		}
	case domain.StateActive:
		switch ev {
		case evToggle:
			return domain.StateActive, []effect{effApplyToggle}
		case evTick:
			return domain.StateActive, []effect{effPublishTick}
		case evFinish, evExpire:
			return domain.StateFinishing, []effect{effClaim, effStopClock, effSend}
		case evAbandon:
			return domain.StateFailed, []effect{effStopClock, effRecordError, effRelease}
		}
	case domain.StateFinishing:
		switch ev {
		case evReported:
			return domain.StateCompleted, []effect{effRecordResult, effRelease}
		case evReportFailed:
			return domain.StateFailed, []effect{effRecordError, effRelease}
		}
	}
	return from, nil
}
