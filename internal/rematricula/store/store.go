// Package store persists re-enrollment records, lock slots and per-class
// offer configuration in the tree store.
//
// Layout:
//
//	rematriculas/{id}                               record
//	rematriculaLocks/{ano}/{chaveAluno}/{uuidTurma} owning record id
//	rematriculaConfig/{ano}/{uuidTurma}             {"habilitada": bool}
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"escolinha/internal/rematricula/models"
	"escolinha/internal/storage"
	turmaStore "escolinha/internal/turma/store"
	"escolinha/pkg/platform/sentinel"
	pkgstrings "escolinha/pkg/platform/strings"
)

const (
	recordsRoot = "rematriculas"
	locksRoot   = "rematriculaLocks"
	configRoot  = "rematriculaConfig"
)

// ErrLockTaken is returned when a slot belongs to another record.
var ErrLockTaken = errors.New("lock slot owned by another record")

type Store struct {
	tree storage.Store
}

func New(tree storage.Store) *Store {
	return &Store{tree: tree}
}

func recordPath(id string) string {
	return storage.Join(recordsRoot, id)
}

// LockPath is the slot of one student in one class for one year.
func LockPath(ano int, chaveAluno, uuidTurma string) string {
	return storage.Join(locksRoot, strconv.Itoa(ano), chaveAluno, uuidTurma)
}

func configPath(ano int, uuidTurma string) string {
	return storage.Join(configRoot, strconv.Itoa(ano), uuidTurma)
}

func decodeRecord(v any) (*models.Rematricula, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r models.Rematricula
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: rematricula: %v", sentinel.ErrInvalidState, err)
	}
	return &r, nil
}

// Get loads a record. Missing records yield sentinel.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.Rematricula, error) {
	v, err := s.tree.Get(ctx, recordPath(id))
	if err != nil {
		return nil, fmt.Errorf("load rematricula %q: %w", id, err)
	}
	r, err := decodeRecord(v)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("rematricula %q: %w", id, sentinel.ErrNotFound)
	}
	return r, nil
}

// CreateIfAbsent writes r unless a record with its id exists. It returns the
// stored record and whether this call created it.
func (s *Store) CreateIfAbsent(ctx context.Context, r *models.Rematricula) (*models.Rematricula, bool, error) {
	var existing *models.Rematricula
	committed, err := s.tree.Transact(ctx, recordPath(r.ID), func(current any) (any, error) {
		rec, err := decodeRecord(current)
		if err != nil {
			return nil, err
		}
		existing = rec
		if rec != nil {
			return nil, sentinel.ErrAborted
		}
		return r, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("create rematricula %q: %w", r.ID, err)
	}
	if !committed {
		return existing, false, nil
	}
	return r, true, nil
}

// List returns the records of one year, or of every year when ano is 0,
// ordered by student name then id.
func (s *Store) List(ctx context.Context, ano int) ([]*models.Rematricula, error) {
	var (
		raw map[string]any
		err error
	)
	if ano != 0 {
		raw, err = s.tree.QueryByChildEquals(ctx, recordsRoot, "ano", ano)
	} else {
		var v any
		v, err = s.tree.Get(ctx, recordsRoot)
		raw, _ = v.(map[string]any)
	}
	if err != nil {
		return nil, fmt.Errorf("list rematriculas: %w", err)
	}
	out := make([]*models.Rematricula, 0, len(raw))
	for _, v := range raw {
		r, err := decodeRecord(v)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Aluno.Nome != out[j].Aluno.Nome {
			return out[i].Aluno.Nome < out[j].Aluno.Nome
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LockOwner returns the record id holding a slot, or "".
func (s *Store) LockOwner(ctx context.Context, ano int, chaveAluno, uuidTurma string) (string, error) {
	v, err := s.tree.Get(ctx, LockPath(ano, chaveAluno, uuidTurma))
	if err != nil {
		return "", err
	}
	owner, _ := v.(string)
	return owner, nil
}

// Enabled reports whether a class is offered for ano. Classes without a
// stored flag are offered.
func (s *Store) Enabled(ctx context.Context, ano int, uuidTurma string) (bool, error) {
	v, err := s.tree.Get(ctx, configPath(ano, uuidTurma))
	if err != nil {
		return false, fmt.Errorf("load rematricula config: %w", err)
	}
	return enabledFrom(v), nil
}

// EnabledMap returns the stored flags of one year keyed by class UUID.
func (s *Store) EnabledMap(ctx context.Context, ano int) (map[string]bool, error) {
	v, err := s.tree.Get(ctx, storage.Join(configRoot, strconv.Itoa(ano)))
	if err != nil {
		return nil, fmt.Errorf("load rematricula config: %w", err)
	}
	out := map[string]bool{}
	if m, ok := v.(map[string]any); ok {
		for id, cfg := range m {
			out[id] = enabledFrom(cfg)
		}
	}
	return out, nil
}

// SetEnabled stores the offer flag of a class.
func (s *Store) SetEnabled(ctx context.Context, ano int, uuidTurma string, enabled bool) error {
	if err := s.tree.Set(ctx, configPath(ano, uuidTurma), map[string]any{"habilitada": enabled}); err != nil {
		return fmt.Errorf("save rematricula config: %w", err)
	}
	return nil
}

func enabledFrom(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return true
	}
	enabled, ok := m["habilitada"].(bool)
	return !ok || enabled
}

// Slots is the working set of lock slots in a transaction, keyed by class
// UUID. An empty value is a free slot.
type Slots map[string]string

// TxFunc mutates a record together with the lock slots and modalidade
// documents a transaction covers. rec is nil when the record does not
// exist; setting *rec to nil deletes it. Returning sentinel.ErrAborted
// declines to write.
type TxFunc func(rec **models.Rematricula, slots Slots, docs turmaStore.Docs) error

// Tx describes the paths a transaction covers beyond the record itself.
type Tx struct {
	ID          string
	Ano         int
	ChaveAluno  string
	Slots       []string
	Modalidades []string
}

// Run loads the record, the requested slots and modalidades, applies fn and
// writes everything back atomically. fn may run more than once.
func (s *Store) Run(ctx context.Context, tx Tx, fn TxFunc) (bool, error) {
	slots := pkgstrings.Unique(tx.Slots)
	modalidades := pkgstrings.Unique(tx.Modalidades)
	paths := make([]string, 0, 1+len(slots)+len(modalidades))
	paths = append(paths, recordPath(tx.ID))
	for _, uuid := range slots {
		paths = append(paths, LockPath(tx.Ano, tx.ChaveAluno, uuid))
	}
	for _, nome := range modalidades {
		paths = append(paths, turmaStore.Path(nome))
	}

	committed, err := s.tree.TransactMulti(ctx, paths, func(current []any) ([]any, error) {
		rec, err := decodeRecord(current[0])
		if err != nil {
			return nil, err
		}
		held := make(Slots, len(slots))
		for i, uuid := range slots {
			owner, _ := current[1+i].(string)
			held[uuid] = owner
		}
		docs := make(turmaStore.Docs, len(modalidades))
		for i, nome := range modalidades {
			m, err := turmaStore.Decode(nome, current[1+len(slots)+i])
			if err != nil {
				return nil, err
			}
			docs[nome] = m
		}

		if err := fn(&rec, held, docs); err != nil {
			return nil, err
		}

		next := make([]any, len(paths))
		if rec != nil {
			next[0] = rec
		}
		for i, uuid := range slots {
			if owner := held[uuid]; owner != "" {
				next[1+i] = owner
			}
		}
		for i, nome := range modalidades {
			v, err := turmaStore.Encode(docs[nome])
			if err != nil {
				return nil, err
			}
			next[1+len(slots)+i] = v
		}
		return next, nil
	})
	if err != nil {
		return false, err
	}
	return committed, nil
}

// Claim takes every slot for owner. Free slots and slots already owned by
// owner succeed; any other owner fails the whole claim with ErrLockTaken.
func (sl Slots) Claim(owner string) error {
	for _, current := range sl {
		if current != "" && current != owner {
			return ErrLockTaken
		}
	}
	for uuid := range sl {
		sl[uuid] = owner
	}
	return nil
}

// Release frees the slots owner holds.
func (sl Slots) Release(owner string) {
	for uuid, current := range sl {
		if current == owner {
			sl[uuid] = ""
		}
	}
}
