package cell

import (
	"reflect"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
)

// maxCopyDepth bounds the walk over interface-held values.
const maxCopyDepth = 64

// typeInfo describes how a value of one type can be copied.
type typeInfo struct {
	// refs: the type reaches shared storage (pointer, slice, map, interface).
	refs bool
	// opaque: deepcopy would lose or share part of it. Set for unexported
	// struct fields, arrays of references and recursive types.
	opaque bool
	// dyn: the type holds interfaces, so the dynamic values decide.
	dyn bool
}

var (
	typeInfos sync.Map // reflect.Type -> typeInfo
	warned    sync.Map // reflect.Type -> struct{}

	timeType = reflect.TypeFor[time.Time]()
)

func infoFor(t reflect.Type) typeInfo {
	if ti, ok := typeInfos.Load(t); ok {
		return ti.(typeInfo)
	}
	ti := classify(t, map[reflect.Type]bool{})
	typeInfos.Store(t, ti)
	return ti
}

func classify(t reflect.Type, visiting map[reflect.Type]bool) typeInfo {
	if visiting[t] {
		return typeInfo{refs: true, opaque: true}
	}
	visiting[t] = true
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice:
		ti := classify(t.Elem(), visiting)
		ti.refs = true
		return ti
	case reflect.Map:
		k, e := classify(t.Key(), visiting), classify(t.Elem(), visiting)
		return typeInfo{refs: true, opaque: k.opaque || e.opaque, dyn: k.dyn || e.dyn}
	case reflect.Interface:
		return typeInfo{refs: true, dyn: true}
	case reflect.Array:
		ti := classify(t.Elem(), visiting)
		if ti.refs {
			ti.opaque = true
		}
		return ti
	case reflect.Struct:
		if t == timeType {
			return typeInfo{}
		}
		var ti typeInfo
		for i := range t.NumField() {
			f := t.Field(i)
			fi := classify(f.Type, visiting)
			ti.refs = ti.refs || fi.refs
			ti.opaque = ti.opaque || fi.opaque || !f.IsExported()
			ti.dyn = ti.dyn || fi.dyn
		}
		return ti
	}
	return typeInfo{}
}

// opaqueValue walks the interface-held parts of v and reports whether any
// dynamic value cannot be reproduced by deepcopy.
func opaqueValue(v reflect.Value, depth int) bool {
	if !v.IsValid() {
		return false
	}
	if depth > maxCopyDepth {
		return true
	}
	ti := infoFor(v.Type())
	if ti.opaque {
		return true
	}
	if !ti.dyn {
		return false
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		return !v.IsNil() && opaqueValue(v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if opaqueValue(v.Index(i), depth+1) {
				return true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if opaqueValue(iter.Key(), depth+1) || opaqueValue(iter.Value(), depth+1) {
				return true
			}
		}
	case reflect.Struct:
		for i := range v.NumField() {
			if opaqueValue(v.Field(i), depth+1) {
				return true
			}
		}
	}
	return false
}

// copyValue returns a copy of v that shares no storage with it. ok is
// false when the type only allows a plain assignment; such types need a
// Cloner or WithCopier to be copied deeply.
func copyValue[T any](v T) (cp T, ok bool) {
	rv := reflect.ValueOf(any(v))
	if !rv.IsValid() {
		return v, true
	}
	ti := infoFor(rv.Type())
	if !ti.refs {
		return v, true
	}
	if ti.opaque || (ti.dyn && opaqueValue(rv, 0)) {
		return v, false
	}
	cp, ok = deepcopy.Copy(any(v)).(T)
	if !ok {
		return v, false
	}
	return cp, true
}

// warnShallow logs once per type that a value could only be copied by
// assignment.
func warnShallow(rt *Runtime, t reflect.Type, group uint64) {
	if _, seen := warned.LoadOrStore(t, struct{}{}); seen {
		return
	}
	rt.Logger.Warn().
		Str("type", t.String()).
		Uint64("group", group).
		Msg("copy_shallow: implement Cloner or use WithCopier")
}
