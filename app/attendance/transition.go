package attendance

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Op is a kind of state transition
type Op string

// supported transitions
const (
	OpAdd       Op = "add"
	OpDelete    Op = "delete"
	OpPresent   Op = "present"
	OpAbsent    Op = "absent"
	OpUndo      Op = "undo"
	OpRemoveAll Op = "remove-all"
	OpReplace   Op = "replace"
)

// Effect tells the caller what to do with the persisted snapshot after a transition
type Effect int

// persistence effects
const (
	EffectNone   Effect = iota // nothing changed
	EffectSave                 // write the full list
	EffectRemove               // delete the snapshot key
)

func (e Effect) String() string {
	switch e {
	case EffectSave:
		return "save"
	case EffectRemove:
		return "remove"
	default:
		return "none"
	}
}

// LastAction is the content of the undo slot, only present and absent marks are recorded
type LastAction struct {
	Op        Op
	SubjectID string
}

// State is the whole in-memory session: ordered subjects and at most one undoable mark
type State struct {
	Subjects []Subject
	Last     *LastAction
}

// Command is a request to change the state. UIs collect prompts and confirmations before making one.
type Command struct {
	Op        Op
	SubjectID string
	Name      string
	Subjects  []Subject // for OpReplace
}

// Add makes a command appending a new subject with a fresh id
func Add(name string) Command { return Command{Op: OpAdd, Name: name, SubjectID: uuid.NewString()} }

// Delete makes a command removing the subject
func Delete(id string) Command { return Command{Op: OpDelete, SubjectID: id} }

// Present makes a command marking attended lecture
func Present(id string) Command { return Command{Op: OpPresent, SubjectID: id} }

// Absent makes a command marking missed lecture
func Absent(id string) Command { return Command{Op: OpAbsent, SubjectID: id} }

// Undo makes a command reverting the last mark
func Undo() Command { return Command{Op: OpUndo} }

// RemoveAll makes a command clearing everything
func RemoveAll() Command { return Command{Op: OpRemoveAll} }

// Replace makes a command swapping the whole list, used by import
func Replace(subjects []Subject) Command { return Command{Op: OpReplace, Subjects: subjects} }

// Apply is the transition function. It never modifies st and returns the new state with the
// persistence effect the caller has to perform. On error the returned state is st itself.
func Apply(st State, cmd Command) (State, Effect, error) {
	switch cmd.Op {
	case OpAdd:
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return st, EffectNone, nil // cancelled or empty input
		}
		id := cmd.SubjectID
		if id == "" {
			id = uuid.NewString()
		}
		res := State{Subjects: slices.Clone(st.Subjects), Last: st.Last}
		res.Subjects = append(res.Subjects, Subject{ID: id, Name: name})
		return res, EffectSave, nil

	case OpDelete:
		idx := indexOf(st.Subjects, cmd.SubjectID)
		if idx < 0 {
			return st, EffectNone, fmt.Errorf("delete %q: %w", cmd.SubjectID, ErrNotFound)
		}
		res := State{Subjects: slices.Delete(slices.Clone(st.Subjects), idx, idx+1), Last: st.Last}
		if res.Last != nil && res.Last.SubjectID == cmd.SubjectID {
			res.Last = nil // undo slot must not point to a removed subject
		}
		return res, EffectSave, nil

	case OpPresent, OpAbsent:
		idx := indexOf(st.Subjects, cmd.SubjectID)
		if idx < 0 {
			return st, EffectNone, fmt.Errorf("%s %q: %w", cmd.Op, cmd.SubjectID, ErrNotFound)
		}
		res := State{Subjects: slices.Clone(st.Subjects), Last: &LastAction{Op: cmd.Op, SubjectID: cmd.SubjectID}}
		if cmd.Op == OpPresent {
			res.Subjects[idx].Present++
		}
		res.Subjects[idx].Total++
		return res, EffectSave, nil

	case OpUndo:
		if st.Last == nil {
			return st, EffectNone, nil
		}
		idx := indexOf(st.Subjects, st.Last.SubjectID)
		if idx < 0 {
			return State{Subjects: st.Subjects}, EffectNone, nil
		}
		res := State{Subjects: slices.Clone(st.Subjects)}
		s := &res.Subjects[idx]
		switch st.Last.Op {
		case OpPresent:
			if s.Present == 0 || s.Total == 0 {
				return res, EffectNone, nil
			}
			s.Present--
			s.Total--
		case OpAbsent:
			if s.Total == s.Present {
				return res, EffectNone, nil
			}
			s.Total--
		}
		return res, EffectSave, nil

	case OpRemoveAll:
		return State{Subjects: []Subject{}}, EffectRemove, nil

	case OpReplace:
		subjects, err := normalize(cmd.Subjects)
		if err != nil {
			return st, EffectNone, fmt.Errorf("replace: %w", err)
		}
		return State{Subjects: subjects}, EffectSave, nil
	}
	return st, EffectNone, fmt.Errorf("unknown operation %q", cmd.Op)
}

// normalize validates subjects and assigns missing or duplicated ids
func normalize(subjects []Subject) ([]Subject, error) {
	res := make([]Subject, 0, len(subjects))
	seen := make(map[string]bool, len(subjects))
	for i, s := range subjects {
		s.Name = strings.TrimSpace(s.Name)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("subject %d: %w", i+1, err)
		}
		if s.ID == "" || seen[s.ID] {
			s.ID = uuid.NewString()
		}
		seen[s.ID] = true
		res = append(res, s)
	}
	return res, nil
}

func indexOf(subjects []Subject, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(subjects, func(s Subject) bool { return s.ID == id })
}
