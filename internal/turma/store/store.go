// Package store persists modalidades in the tree store. Every write goes
// through models.Modalidade.Prepare, so rosters land compact and counters
// match roster length.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"escolinha/internal/storage"
	"escolinha/internal/turma/models"
	"escolinha/pkg/platform/sentinel"
	pkgstrings "escolinha/pkg/platform/strings"
)

const root = "modalidades"

// Store is the modalidade repository.
type Store struct {
	tree storage.Store
}

// New wraps a tree store.
func New(tree storage.Store) *Store {
	return &Store{tree: tree}
}

// Tree exposes the underlying store for callers that compose modalidade
// documents with their own paths in one transaction.
func (s *Store) Tree() storage.Store {
	return s.tree
}

// Path is the document path of a modalidade.
func Path(nome string) string {
	return storage.Join(root, nome)
}

// Decode converts a stored value into a modalidade. A nil value decodes to
// nil.
func Decode(nome string, v any) (*models.Modalidade, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode modalidade %q: %w", nome, err)
	}
	var m models.Modalidade
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: modalidade %q: %v", sentinel.ErrInvalidState, nome, err)
	}
	if m.Nome == "" {
		m.Nome = nome
	}
	return &m, nil
}

// Encode prepares m for storage. A nil modalidade encodes to nil (delete).
func Encode(m *models.Modalidade) (any, error) {
	if m == nil {
		return nil, nil
	}
	m.Prepare()
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode modalidade %q: %w", m.Nome, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get loads one modalidade. Missing documents and names that are not valid
// keys yield sentinel.ErrNotFound.
func (s *Store) Get(ctx context.Context, nome string) (*models.Modalidade, error) {
	if !models.ValidKey(nome) {
		return nil, fmt.Errorf("modalidade %q: %w", nome, sentinel.ErrNotFound)
	}
	v, err := s.tree.Get(ctx, Path(nome))
	if err != nil {
		return nil, fmt.Errorf("load modalidade %q: %w", nome, err)
	}
	m, err := Decode(nome, v)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("modalidade %q: %w", nome, sentinel.ErrNotFound)
	}
	return m, nil
}

// List loads every modalidade, reserved ones included, ordered by name.
func (s *Store) List(ctx context.Context) ([]*models.Modalidade, error) {
	v, err := s.tree.Get(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("list modalidades: %w", err)
	}
	docs, _ := v.(map[string]any)
	names := make([]string, 0, len(docs))
	for k := range docs {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]*models.Modalidade, 0, len(names))
	for _, name := range names {
		m, err := Decode(name, docs[name])
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindByUUID locates a class by its durable id across all modalidades.
func (s *Store) FindByUUID(ctx context.Context, id string) (*models.Modalidade, int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, -1, err
	}
	for _, m := range all {
		if i := m.FindTurmaByUUID(id); i >= 0 {
			return m, i, nil
		}
	}
	return nil, -1, fmt.Errorf("turma %q: %w", id, sentinel.ErrNotFound)
}

// Save overwrites one modalidade.
func (s *Store) Save(ctx context.Context, m *models.Modalidade) error {
	v, err := Encode(m)
	if err != nil {
		return err
	}
	if err := s.tree.Set(ctx, Path(m.Nome), v); err != nil {
		return fmt.Errorf("save modalidade %q: %w", m.Nome, err)
	}
	return nil
}

// Docs is the working set of a Mutate call, keyed by modalidade name. A nil
// entry is an absent document; leaving or setting it nil keeps it absent.
type Docs map[string]*models.Modalidade

// Mutate loads the named modalidades, lets fn change them and writes them
// back atomically. A name that is not a valid key fails with
// sentinel.ErrNotFound before anything is read. fn may run more than once
// when the backend retries, so it must only touch docs and state it resets
// itself.
func (s *Store) Mutate(ctx context.Context, nomes []string, fn func(docs Docs) error) error {
	names := pkgstrings.Unique(nomes)
	paths := make([]string, len(names))
	for i, n := range names {
		if !models.ValidKey(n) {
			return fmt.Errorf("modalidade %q: %w", n, sentinel.ErrNotFound)
		}
		paths[i] = Path(n)
	}
	_, err := s.tree.TransactMulti(ctx, paths, func(current []any) ([]any, error) {
		docs := make(Docs, len(names))
		for i, n := range names {
			m, err := Decode(n, current[i])
			if err != nil {
				return nil, err
			}
			docs[n] = m
		}
		if err := fn(docs); err != nil {
			return nil, err
		}
		next := make([]any, len(names))
		for i, n := range names {
			v, err := Encode(docs[n])
			if err != nil {
				return nil, err
			}
			next[i] = v
		}
		return next, nil
	})
	return err
}
