// Package storage implements the hierarchical, path-addressed document store
// every feature persists into.
//
// Paths are slash separated ("modalidades/futebol/turmas"). Values are
// JSON-shaped: map[string]any, []any, string, float64, bool or nil. Setting
// nil deletes. The tree is partitioned into documents at depth two
// ("<root>/<key>"); deeper segments address inside a document and depth-one
// reads assemble every document under the root.
//
// The only concurrency primitive is compare-and-swap. Transact covers a single
// path; TransactMulti covers several paths, possibly in different documents,
// atomically. A callback returning sentinel.ErrAborted declines to write.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"escolinha/pkg/platform/sentinel"
)

// ErrInvalidPath is returned for empty paths, empty segments, or operations
// that need a document-level path but were given a root.
var ErrInvalidPath = errors.New("invalid storage path")

// Store is the hierarchical store consumed by the domain packages.
type Store interface {
	// Get returns the value at path, or nil when absent.
	Get(ctx context.Context, path string) (any, error)
	// Set replaces the value at path; nil deletes it.
	Set(ctx context.Context, path string, value any) error
	// Update sets each relative sub-path in fields. Fields landing in the
	// same set of documents are written atomically.
	Update(ctx context.Context, path string, fields map[string]any) error
	// QueryByChildEquals returns the children of path whose field equals value.
	QueryByChildEquals(ctx context.Context, path, field string, value any) (map[string]any, error)
	// Transact runs a compare-and-swap on path. It reports whether a write
	// was committed.
	Transact(ctx context.Context, path string, fn func(current any) (any, error)) (bool, error)
	// TransactMulti is Transact over several paths at once. fn receives the
	// current values in path order and returns the next values in the same
	// order.
	TransactMulti(ctx context.Context, paths []string, fn func(current []any) ([]any, error)) (bool, error)
}

// Backend persists whole documents by key.
type Backend interface {
	// Name labels metrics and spans ("memory", "redis", "postgres").
	Name() string
	// Load returns the raw document or nil when it does not exist.
	Load(ctx context.Context, key string) ([]byte, error)
	// Keys lists document keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Swap reads the documents for keys, calls fn and atomically writes the
	// documents fn returns (nil bytes delete). fn may be called more than
	// once when the backend retries after losing an optimistic race; it must
	// not have side effects. An error from fn aborts without writing.
	Swap(ctx context.Context, keys []string, fn func(current map[string][]byte) (map[string][]byte, error)) error
}

var tracer = otel.Tracer("escolinha/internal/storage")

// Tree implements Store over a Backend.
type Tree struct {
	backend Backend
}

// NewTree wraps a backend.
func NewTree(backend Backend) *Tree {
	return &Tree{backend: backend}
}

// Backend exposes the wrapped backend, for health checks.
func (t *Tree) Backend() Backend {
	return t.backend
}

type location struct {
	root   string
	docKey string
	sub    []string
}

func parsePath(path string) (location, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return location{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	segs := strings.Split(trimmed, "/")
	for _, s := range segs {
		if strings.TrimSpace(s) == "" {
			return location{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
	}
	loc := location{root: segs[0]}
	if len(segs) >= 2 {
		loc.docKey = segs[0] + "/" + segs[1]
		loc.sub = segs[2:]
	}
	return loc, nil
}

// Join builds a path from segments, skipping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

func (t *Tree) observe(ctx context.Context, op, path string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "storage."+op, trace.WithAttributes(
		attribute.String("storage.backend", t.backend.Name()),
		attribute.String("storage.path", path),
	))
	start := time.Now()
	return ctx, func(err error) {
		operationDuration.WithLabelValues(t.backend.Name(), op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Get implements Store.
func (t *Tree) Get(ctx context.Context, path string) (value any, err error) {
	ctx, done := t.observe(ctx, "get", path)
	defer func() { done(err) }()

	loc, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	if loc.docKey == "" {
		return t.getRoot(ctx, loc.root)
	}
	raw, err := t.backend.Load(ctx, loc.docKey)
	if err != nil {
		return nil, err
	}
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return valueAt(doc, loc.sub), nil
}

func (t *Tree) getRoot(ctx context.Context, root string) (any, error) {
	keys, err := t.backend.Keys(ctx, root+"/")
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		raw, err := t.backend.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			out[strings.TrimPrefix(key, root+"/")] = doc
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Set implements Store.
func (t *Tree) Set(ctx context.Context, path string, value any) (err error) {
	ctx, done := t.observe(ctx, "set", path)
	defer func() { done(err) }()

	loc, err := parsePath(path)
	if err != nil {
		return err
	}
	value, err = canonical(value)
	if err != nil {
		return err
	}
	if loc.docKey == "" {
		return t.setRoot(ctx, loc.root, value)
	}
	return t.backend.Swap(ctx, []string{loc.docKey}, func(current map[string][]byte) (map[string][]byte, error) {
		doc, err := decode(current[loc.docKey])
		if err != nil {
			return nil, err
		}
		raw, err := encode(setAt(doc, loc.sub, value))
		if err != nil {
			return nil, err
		}
		return map[string][]byte{loc.docKey: raw}, nil
	})
}

func (t *Tree) setRoot(ctx context.Context, root string, value any) error {
	children := map[string]any{}
	if value != nil {
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: root %q only accepts an object", sentinel.ErrInvalidState, root)
		}
		children = m
	}
	existing, err := t.backend.Keys(ctx, root+"/")
	if err != nil {
		return err
	}
	keys := append([]string{}, existing...)
	for child := range children {
		keys = append(keys, root+"/"+child)
	}
	keys = dedupeSorted(keys)
	return t.backend.Swap(ctx, keys, func(map[string][]byte) (map[string][]byte, error) {
		next := make(map[string][]byte, len(keys))
		for _, key := range keys {
			raw, err := encode(children[strings.TrimPrefix(key, root+"/")])
			if err != nil {
				return nil, err
			}
			next[key] = raw
		}
		return next, nil
	})
}

// Update implements Store.
func (t *Tree) Update(ctx context.Context, path string, fields map[string]any) (err error) {
	ctx, done := t.observe(ctx, "update", path)
	defer func() { done(err) }()

	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	paths := make([]string, 0, len(names))
	values := make([]any, 0, len(names))
	for _, name := range names {
		v, err := canonical(fields[name])
		if err != nil {
			return err
		}
		paths = append(paths, Join(path, name))
		values = append(values, v)
	}
	_, err = t.transact(ctx, paths, func([]any) ([]any, error) {
		return values, nil
	})
	return err
}

// QueryByChildEquals implements Store.
func (t *Tree) QueryByChildEquals(ctx context.Context, path, field string, value any) (result map[string]any, err error) {
	want, err := canonical(value)
	if err != nil {
		return nil, err
	}
	children, err := t.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	_, done := t.observe(ctx, "query", path)
	defer func() { done(err) }()

	result = map[string]any{}
	visit := func(key string, child any) {
		m, ok := child.(map[string]any)
		if !ok {
			return
		}
		if reflect.DeepEqual(m[field], want) {
			result[key] = m
		}
	}
	switch c := children.(type) {
	case map[string]any:
		for k, v := range c {
			visit(k, v)
		}
	case []any:
		for i, v := range c {
			visit(strconv.Itoa(i), v)
		}
	}
	return result, nil
}

// Transact implements Store.
func (t *Tree) Transact(ctx context.Context, path string, fn func(current any) (any, error)) (committed bool, err error) {
	ctx, done := t.observe(ctx, "transact", path)
	defer func() { done(err) }()

	return t.transact(ctx, []string{path}, func(current []any) ([]any, error) {
		next, err := fn(current[0])
		if err != nil {
			return nil, err
		}
		return []any{next}, nil
	})
}

// TransactMulti implements Store.
func (t *Tree) TransactMulti(ctx context.Context, paths []string, fn func(current []any) ([]any, error)) (committed bool, err error) {
	ctx, done := t.observe(ctx, "transact_multi", strings.Join(paths, ","))
	defer func() { done(err) }()

	return t.transact(ctx, paths, fn)
}

func (t *Tree) transact(ctx context.Context, paths []string, fn func(current []any) ([]any, error)) (bool, error) {
	if len(paths) == 0 {
		return false, nil
	}
	locs := make([]location, len(paths))
	keys := make([]string, 0, len(paths))
	for i, p := range paths {
		loc, err := parsePath(p)
		if err != nil {
			return false, err
		}
		if loc.docKey == "" {
			return false, fmt.Errorf("%w: transaction on root %q", ErrInvalidPath, p)
		}
		locs[i] = loc
		keys = append(keys, loc.docKey)
	}
	keys = dedupeSorted(keys)

	err := t.backend.Swap(ctx, keys, func(current map[string][]byte) (map[string][]byte, error) {
		docs := make(map[string]any, len(keys))
		for _, key := range keys {
			doc, err := decode(current[key])
			if err != nil {
				return nil, err
			}
			docs[key] = doc
		}
		values := make([]any, len(locs))
		for i, loc := range locs {
			values[i] = valueAt(docs[loc.docKey], loc.sub)
		}
		next, err := fn(values)
		if err != nil {
			return nil, err
		}
		if len(next) != len(locs) {
			return nil, fmt.Errorf("%w: transaction returned %d values for %d paths", sentinel.ErrInvalidState, len(next), len(locs))
		}
		for i, loc := range locs {
			v, err := canonical(next[i])
			if err != nil {
				return nil, err
			}
			docs[loc.docKey] = setAt(docs[loc.docKey], loc.sub, v)
		}
		out := make(map[string][]byte, len(keys))
		for _, key := range keys {
			raw, err := encode(docs[key])
			if err != nil {
				return nil, err
			}
			out[key] = raw
		}
		return out, nil
	})
	if errors.Is(err, sentinel.ErrAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// canonical round-trips v through JSON so that typed structs, ints and
// nested slices compare and store exactly like values read back later.
func canonical(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", sentinel.ErrInvalidState, err)
	}
	return v, nil
}

func encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func valueAt(doc any, sub []string) any {
	cur := doc
	for _, seg := range sub {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	return cur
}

// setAt returns doc with value placed at sub. Writing into an array by an
// in-range index keeps it an array (deleting leaves a nil hole); anything
// else turns the node into an object, as the tree store always did.
func setAt(doc any, sub []string, value any) any {
	if len(sub) == 0 {
		return value
	}
	seg, rest := sub[0], sub[1:]

	if arr, ok := doc.([]any); ok {
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 && idx < len(arr) {
			out := append([]any{}, arr...)
			out[idx] = setAt(arr[idx], rest, value)
			return out
		}
		m := make(map[string]any, len(arr)+1)
		for i, v := range arr {
			if v != nil {
				m[strconv.Itoa(i)] = v
			}
		}
		doc = m
	}

	m, ok := doc.(map[string]any)
	if !ok {
		if value == nil {
			return doc
		}
		m = map[string]any{}
	} else {
		copied := make(map[string]any, len(m)+1)
		for k, v := range m {
			copied[k] = v
		}
		m = copied
	}

	child := setAt(m[seg], rest, value)
	if child == nil {
		delete(m, seg)
	} else {
		m[seg] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func dedupeSorted(keys []string) []string {
	sort.Strings(keys)
	out := keys[:0]
	for i, k := range keys {
		if i == 0 || k != keys[i-1] {
			out = append(out, k)
		}
	}
	return out
}
