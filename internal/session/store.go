package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// Record kinds in the append log
const (
	kindSessionCreated  = "session_created"
	kindIterationClosed = "iteration_closed"
)

// record is one line of the session log
type record struct {
	Kind      string           `json:"kind"`
	At        time.Time        `json:"at"`
	Header    *header          `json:"header,omitempty"`
	Iteration *model.Iteration `json:"iteration,omitempty"`
}

// header is the session_created payload
type header struct {
	ID              string `json:"id"`
	Topic           string `json:"topic"`
	PrimaryQuestion string `json:"primary_question"`
}

// Store persists sessions as append-only JSONL logs, one file per
// session. The fold over a log is the only representation of session
// state; nothing is stored redundantly. Writes are expected from a
// single writer (the orchestrator) at phase boundaries.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Create starts a new session and durably appends its header record
func (s *Store) Create(topic, primaryQuestion string) (*model.Session, error) {
	if primaryQuestion == "" {
		primaryQuestion = topic
	}

	sess := &model.Session{
		ID:              uuid.NewString(),
		Topic:           topic,
		PrimaryQuestion: primaryQuestion,
		CreatedAt:       time.Now().UTC(),
		Status:          model.StatusActive,
	}

	rec := record{
		Kind: kindSessionCreated,
		At:   sess.CreatedAt,
		Header: &header{
			ID:              sess.ID,
			Topic:           sess.Topic,
			PrimaryQuestion: sess.PrimaryQuestion,
		},
	}

	if err := s.append(sess.ID, rec); err != nil {
		return nil, err
	}
	return sess, nil
}

// AppendIteration durably appends a closed iteration. The caller must
// not advance session state until this returns nil.
func (s *Store) AppendIteration(sessionID string, it model.Iteration) error {
	return s.append(sessionID, record{
		Kind:      kindIterationClosed,
		At:        it.ClosedAt,
		Iteration: &it,
	})
}

// Load rebuilds a session by replaying its log in append order
func (s *Store) Load(sessionID string) (*model.Session, error) {
	f, err := os.Open(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrSessionNotFound
		}
		return nil, &model.PersistenceError{Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	var sess *model.Session

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, &model.PersistenceError{Op: "replay", Err: fmt.Errorf("line %d: %w", line, err)}
		}

		switch rec.Kind {
		case kindSessionCreated:
			if rec.Header == nil {
				return nil, &model.PersistenceError{Op: "replay", Err: fmt.Errorf("line %d: header record without header", line)}
			}
			sess = &model.Session{
				ID:              rec.Header.ID,
				Topic:           rec.Header.Topic,
				PrimaryQuestion: rec.Header.PrimaryQuestion,
				CreatedAt:       rec.At,
				Status:          model.StatusActive,
			}
		case kindIterationClosed:
			if sess == nil {
				return nil, &model.PersistenceError{Op: "replay", Err: fmt.Errorf("line %d: iteration before session header", line)}
			}
			sess.Iterations = append(sess.Iterations, *rec.Iteration)
		default:
			return nil, &model.PersistenceError{Op: "replay", Err: fmt.Errorf("line %d: unknown record kind %q", line, rec.Kind)}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "replay", Err: err}
	}
	if sess == nil {
		return nil, model.ErrSessionNotFound
	}

	// Status is derived from the final iteration's halt decision
	if n := len(sess.Iterations); n > 0 {
		halt := sess.Iterations[n-1].Halt
		switch {
		case halt.Halt && halt.Reason == model.HaltUserRequest:
			sess.Status = model.StatusHaltedByRequest
		case halt.Halt:
			sess.Status = model.StatusHalted
		}
	}

	return sess, nil
}

// List returns the IDs of all persisted sessions, oldest first
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.PersistenceError{Op: "list", Err: err}
	}

	type stamped struct {
		id  string
		mod time.Time
	}
	var found []stamped
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, stamped{
			id:  strings.TrimSuffix(e.Name(), ".jsonl"),
			mod: info.ModTime(),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod.Before(found[j].mod) })

	ids := make([]string, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	return ids, nil
}

// append writes one record and syncs before acknowledging
func (s *Store) append(sessionID string, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &model.PersistenceError{Op: "marshal", Err: err}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &model.PersistenceError{Op: "mkdir", Err: err}
	}

	f, err := os.OpenFile(s.path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &model.PersistenceError{Op: "open", Err: err}
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return &model.PersistenceError{Op: "write", Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return &model.PersistenceError{Op: "sync", Err: err}
	}
	if err := f.Close(); err != nil {
		return &model.PersistenceError{Op: "close", Err: err}
	}
	return nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".jsonl")
}
