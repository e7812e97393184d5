package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Records in the tree carry fields this service never reads (address,
// health notes, uploaded document URLs). The helpers below keep them across
// a decode/encode cycle so a roster rewrite never drops data.

var knownFieldsCache sync.Map // reflect.Type -> map[string]struct{}

func knownFields(t reflect.Type) map[string]struct{} {
	if cached, ok := knownFieldsCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	fields := map[string]struct{}{}
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			fields[name] = struct{}{}
		}
	}
	knownFieldsCache.Store(t, fields)
	return fields
}

// splitExtras returns the keys of data that are not json fields of known.
func splitExtras(data []byte, known reflect.Type) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	fields := knownFields(known)
	for k := range all {
		if _, ok := fields[k]; ok {
			delete(all, k)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// joinExtras marshals v and adds extras that v does not already set.
func joinExtras(v any, extras map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extras) == 0 {
		return data, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k, x := range extras {
		if _, ok := m[k]; !ok {
			m[k] = x
		}
	}
	return json.Marshal(m)
}
