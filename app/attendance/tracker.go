package attendance

import (
	"fmt"
	"slices"
	"sync"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
)

// Persister is a durable mirror of the subject list, read once on start
type Persister interface {
	Load() ([]Subject, error)
	Save(subjects []Subject) error
	Remove() error
}

// Tracker owns the session state and is the only place where persistence happens.
// Commands are serialized, each one runs to completion including its write.
type Tracker struct {
	mu    sync.Mutex
	state State
	store Persister
}

// NewTracker makes a tracker and loads the initial list from the store.
// Missing or unreadable snapshot gives an empty list.
func NewTracker(store Persister) *Tracker {
	res := &Tracker{store: store, state: State{Subjects: []Subject{}}}
	subjects, err := store.Load()
	if err != nil {
		log.Printf("[WARN] can't load subjects, starting with empty list: %v", err)
		return res
	}
	res.state.Subjects = fromSnapshot(subjects)
	log.Printf("[DEBUG] loaded %d subjects", len(res.state.Subjects))
	return res
}

// Do applies the command and performs its persistence effect.
// The in-memory state keeps the change even if the write fails, the error is returned to the caller.
func (t *Tracker) Do(cmd Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, effect, err := Apply(t.state, cmd)
	if err != nil {
		return err
	}
	t.state = st
	log.Printf("[DEBUG] %s %s, effect %s, subjects %d", cmd.Op, cmd.SubjectID, effect, len(st.Subjects))

	switch effect {
	case EffectSave:
		if err := t.store.Save(st.Subjects); err != nil {
			return fmt.Errorf("failed to save subjects after %s: %w", cmd.Op, err)
		}
	case EffectRemove:
		if err := t.store.Remove(); err != nil {
			return fmt.Errorf("failed to remove subjects: %w", err)
		}
	}
	return nil
}

// Add appends a subject, empty name is ignored
func (t *Tracker) Add(name string) error { return t.Do(Add(name)) }

// Delete removes the subject by id
func (t *Tracker) Delete(id string) error { return t.Do(Delete(id)) }

// MarkPresent records attended lecture
func (t *Tracker) MarkPresent(id string) error { return t.Do(Present(id)) }

// MarkAbsent records missed lecture
func (t *Tracker) MarkAbsent(id string) error { return t.Do(Absent(id)) }

// Undo reverts the last mark if any
func (t *Tracker) Undo() error { return t.Do(Undo()) }

// RemoveAll clears the list and deletes the snapshot
func (t *Tracker) RemoveAll() error { return t.Do(RemoveAll()) }

// Replace swaps the list with validated subjects
func (t *Tracker) Replace(subjects []Subject) error { return t.Do(Replace(subjects)) }

// Subjects returns a copy of the current list
func (t *Tracker) Subjects() []Subject {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.state.Subjects)
}

// CanUndo tells if the undo slot is armed
func (t *Tracker) CanUndo() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Last != nil
}

// Summary returns derived rows and aggregate for the current list
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := Summarize(t.state.Subjects)
	res.CanUndo = t.state.Last != nil
	return res
}

// At resolves 1-based position, as shown to the user, to the subject
func (t *Tracker) At(pos int) (Subject, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos < 1 || pos > len(t.state.Subjects) {
		return Subject{}, fmt.Errorf("position %d of %d: %w", pos, len(t.state.Subjects), ErrNotFound)
	}
	return t.state.Subjects[pos-1], nil
}

// fromSnapshot assigns ids to subjects stored without them and drops entries failing presence checks
func fromSnapshot(subjects []Subject) []Subject {
	res := make([]Subject, 0, len(subjects))
	seen := make(map[string]bool, len(subjects))
	for i, s := range subjects {
		if err := s.Validate(); err != nil {
			log.Printf("[WARN] skip stored subject %d: %v", i+1, err)
			continue
		}
		if s.ID == "" || seen[s.ID] {
			s.ID = uuid.NewString()
		}
		seen[s.ID] = true
		res = append(res, s)
	}
	return res
}
