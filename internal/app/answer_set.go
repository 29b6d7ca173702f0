package app

import (
	"sort"
	"sync"

	"quiz-play-service/internal/domain"
)

// AnswerSet tracks the selected choices per question for one attempt.
// A question with no selected choice is removed from the set.
type AnswerSet struct {
	mu         sync.RWMutex
	selections map[int]map[string]struct{}
}

func NewAnswerSet() *AnswerSet {
	return &AnswerSet{selections: make(map[int]map[string]struct{})}
}

// Toggle adds choiceID to the question's selection, or removes it if already selected.
// Ids are not checked against quiz content.
func (a *AnswerSet) Toggle(questionID int, choiceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	choices, ok := a.selections[questionID]
	if !ok {
		a.selections[questionID] = map[string]struct{}{choiceID: {}}
		return
	}
	if _, selected := choices[choiceID]; selected {
		delete(choices, choiceID)
		if len(choices) == 0 {
			delete(a.selections, questionID)
		}
		return
	}
	choices[choiceID] = struct{}{}
}

// Selected reports whether the choice is currently selected.
func (a *AnswerSet) Selected(questionID int, choiceID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.selections[questionID][choiceID]
	return ok
}

// Snapshot returns a copy that later toggles cannot affect. Choice ids are sorted.
func (a *AnswerSet) Snapshot() domain.AnswerSelection {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(domain.AnswerSelection, len(a.selections))
	for questionID, choices := range a.selections {
		ids := make([]string, 0, len(choices))
		for id := range choices {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[questionID] = ids
	}
	return out
}
