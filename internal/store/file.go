package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"daypack/internal/engine"
	logx "daypack/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.state.json    (periodic snapshot of all records)
//   - <prefix>.journal.jsonl (append-only mutation journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File
	journalPath  string

	recurring  map[string]Recurring
	objectives map[string]Objective
	done       map[string]map[string]bool // recurring id -> day key set

	writes       int
	compactEvery int
}

type journalRecord struct {
	Op        string     `json:"op"`
	Recurring *Recurring `json:"recurring,omitempty"`
	Objective *Objective `json:"objective,omitempty"`
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Day       string     `json:"day,omitempty"`
	Status    string     `json:"status,omitempty"`
}

type snapshot struct {
	Recurring  []Recurring         `json:"recurring"`
	Objectives []Objective         `json:"objectives"`
	Done       map[string][]string `json:"done"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:          log,
		snapshotPath: prefix + ".state.json",
		journalPath:  prefix + ".journal.jsonl",
		recurring:    map[string]Recurring{},
		objectives:   map[string]Objective{},
		done:         map[string]map[string]bool{},
		compactEvery: 256,
	}

	if err := s.loadSnapshot(); err != nil {
		return nil, err
	}
	if err := s.replayJournal(); err != nil {
		return nil, err
	}

	jf, err := os.OpenFile(s.journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	s.journalFile = jf
	return s, nil
}

func (s *fileStore) loadSnapshot() error {
	b, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	for _, r := range snap.Recurring {
		s.recurring[r.ID] = r
	}
	for _, o := range snap.Objectives {
		s.objectives[o.ID] = o
	}
	for id, days := range snap.Done {
		set := map[string]bool{}
		for _, d := range days {
			set[d] = true
		}
		s.done[id] = set
	}
	return nil
}

func (s *fileStore) replayJournal() error {
	f, err := os.Open(s.journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec journalRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A torn tail write is expected after a crash; stop replay there.
			s.log.Warn("journal line skipped", logx.Err(err))
			break
		}
		s.applyLocked(rec)
	}
	return sc.Err()
}

func (s *fileStore) applyLocked(rec journalRecord) {
	switch rec.Op {
	case "put_recurring":
		if rec.Recurring != nil {
			s.recurring[rec.Recurring.ID] = *rec.Recurring
		}
	case "put_objective":
		if rec.Objective != nil {
			s.objectives[rec.Objective.ID] = *rec.Objective
		}
	case "mark_done":
		set := s.done[rec.ID]
		if set == nil {
			set = map[string]bool{}
			s.done[rec.ID] = set
		}
		set[rec.Day] = true
	case "set_status":
		if o, ok := s.objectives[rec.ID]; ok {
			o.Status = engine.Status(rec.Status)
			s.objectives[rec.ID] = o
		}
	}
}

func (s *fileStore) journal(rec journalRecord) error {
	if s.journalFile == nil {
		return errors.New("journal closed")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.journalFile.Write(append(b, '\n')); err != nil {
		return err
	}
	s.writes++
	if s.writes%s.compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Warn("journal compaction failed", logx.Err(err))
		}
	}
	return nil
}

// compactLocked rewrites the snapshot atomically and truncates the journal.
func (s *fileStore) compactLocked() error {
	snap := snapshot{Done: map[string][]string{}}
	for _, r := range s.recurring {
		snap.Recurring = append(snap.Recurring, r)
	}
	for _, o := range s.objectives {
		snap.Objectives = append(snap.Objectives, o)
	}
	sort.Slice(snap.Recurring, func(i, j int) bool { return snap.Recurring[i].ID < snap.Recurring[j].ID })
	sort.Slice(snap.Objectives, func(i, j int) bool { return snap.Objectives[i].ID < snap.Objectives[j].ID })
	for id, set := range s.done {
		days := make([]string, 0, len(set))
		for d := range set {
			days = append(days, d)
		}
		sort.Strings(days)
		snap.Done[id] = days
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}

	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	if _, err := s.journalFile.Seek(0, 0); err != nil {
		return err
	}
	return nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	err := s.compactLocked()
	cerr := s.journalFile.Close()
	s.journalFile = nil
	if err != nil {
		return err
	}
	return cerr
}

func (s *fileStore) PutRecurring(ctx context.Context, r Recurring) error {
	_ = ctx
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("recurring id required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring[r.ID] = r
	return s.journal(journalRecord{Op: "put_recurring", Recurring: &r})
}

func (s *fileStore) PutObjective(ctx context.Context, o Objective) error {
	_ = ctx
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("objective id required")
	}
	if o.Status == "" {
		o.Status = engine.StatusNotStarted
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectives[o.ID] = o
	return s.journal(journalRecord{Op: "put_objective", Objective: &o})
}

func (s *fileStore) UnmetRecurring(ctx context.Context, userID string, day time.Time) ([]Recurring, error) {
	_ = ctx
	key := day.Format(DayKey)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Recurring
	for _, r := range s.recurring {
		if r.UserID != userID || !r.FiresOn(day) {
			continue
		}
		if s.done[r.ID][key] {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fileStore) OpenObjectives(ctx context.Context, userID string) ([]Objective, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Objective
	for _, o := range s.objectives {
		if o.UserID != userID || o.Status == engine.StatusCompleted {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fileStore) MarkRecurringDone(ctx context.Context, id, userID string, day time.Time) error {
	_ = ctx
	key := day.Format(DayKey)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recurring[id]
	if !ok || r.UserID != userID {
		return ErrNotFound
	}
	if s.done[id][key] {
		return nil // already marked; idempotent
	}
	set := s.done[id]
	if set == nil {
		set = map[string]bool{}
		s.done[id] = set
	}
	set[key] = true
	return s.journal(journalRecord{Op: "mark_done", ID: id, Day: key})
}

func (s *fileStore) SetObjectiveStatus(ctx context.Context, id, userID string, status engine.Status) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objectives[id]
	if !ok || o.UserID != userID {
		return ErrNotFound
	}
	// Never regress a finished objective; repeating a set is a no-op.
	if o.Status == engine.StatusCompleted || o.Status == status {
		return nil
	}
	o.Status = status
	s.objectives[id] = o
	return s.journal(journalRecord{Op: "set_status", ID: id, Status: string(status)})
}
