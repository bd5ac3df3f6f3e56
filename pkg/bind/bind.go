// Package bind maps Go structs onto slab schemas.
//
// Exported fields of fixed width become container fields in declaration
// order: booleans, sized integers and floats as scalars, Go arrays of them as
// value arrays, slab.ContainerReference (and arrays of it) as references.
// int and uint map to 64-bit fields. Strings need a fixed capacity:
//
//	Name string `slab:"name,len=16"` // 16-byte char array
//	Code [4]byte `slab:",char"`      // char array rather than uint8 array
//	Skip int32   `slab:"-"`
package bind

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/rawbytedev/slab"
	"go.uber.org/zap"
)

var (
	ErrNotStruct    = errors.New("bind: value is not a struct")
	ErrNotStructPtr = errors.New("bind: target is not a pointer to struct")
)

var refType = reflect.TypeFor[slab.ContainerReference]()

type Binder struct {
	pool  *slab.SchemaPool
	plans map[reflect.Type]*plan
	mu    sync.RWMutex
}

type plan struct {
	schema *slab.Schema
	fields []fieldPlan
}

type fieldPlan struct {
	index int
	name  string
	kind  reflect.Kind // element kind
	vt    slab.ValueType
	count int
	array bool // Go array field
	text  bool // string with fixed capacity
}

func New(pool *slab.SchemaPool) *Binder {
	return &Binder{pool: pool, plans: make(map[reflect.Type]*plan)}
}

// SchemaFor returns the interned schema for struct type t.
func (b *Binder) SchemaFor(t reflect.Type) (*slab.Schema, error) {
	p, err := b.getPlan(t)
	if err != nil {
		return nil, err
	}
	return p.schema, nil
}

func (b *Binder) getPlan(t reflect.Type) (*plan, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	b.mu.RLock()
	if p, ok := b.plans[t]; ok {
		b.mu.RUnlock()
		return p, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	// Double-check
	if p, ok := b.plans[t]; ok {
		return p, nil
	}
	p, err := b.buildPlan(t)
	if err != nil {
		return nil, err
	}
	b.plans[t] = p
	slab.Logger().Debug("bind plan built", zap.Stringer("type", t), zap.Int("fields", len(p.fields)))
	return p, nil
}

func (b *Binder) buildPlan(t reflect.Type) (*plan, error) {
	p := &plan{}
	sb := slab.NewSchemaBuilder()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts := parseTag(sf)
		if name == "-" {
			continue
		}
		fp, err := fieldFor(i, name, sf.Type, opts)
		if err != nil {
			return nil, fmt.Errorf("bind: %s.%s: %w", t.Name(), sf.Name, err)
		}
		p.fields = append(p.fields, fp)
		sb.Add(fp.descriptor())
	}
	s, err := sb.Build(b.pool)
	if err != nil {
		return nil, err
	}
	p.schema = s
	return p, nil
}

func parseTag(sf reflect.StructField) (string, map[string]string) {
	tag, ok := sf.Tag.Lookup("slab")
	if !ok {
		return sf.Name, nil
	}
	name, rest, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	opts := make(map[string]string)
	for rest != "" {
		var opt string
		opt, rest, _ = strings.Cut(rest, ",")
		k, v, _ := strings.Cut(opt, "=")
		opts[k] = v
	}
	return name, opts
}

func fieldFor(index int, name string, t reflect.Type, opts map[string]string) (fieldPlan, error) {
	fp := fieldPlan{index: index, name: name, count: 1}
	_, char := opts["char"]
	switch {
	case t.Kind() == reflect.String:
		n, err := strconv.Atoi(opts["len"])
		if err != nil || n < 0 {
			return fp, fmt.Errorf("%w: string field needs len=N", slab.ErrUnsupported)
		}
		fp.kind, fp.vt, fp.count, fp.text = reflect.String, slab.TypeChar, n, true
		return fp, nil
	case t.Kind() == reflect.Array:
		fp.array, fp.count = true, t.Len()
		t = t.Elem()
	}
	fp.kind = t.Kind()
	switch {
	case t == refType:
		fp.vt = slab.TypeRef
	case char && fp.kind == reflect.Uint8 && fp.array:
		fp.vt = slab.TypeChar
	default:
		vt, ok := kindType(fp.kind)
		if !ok {
			return fp, fmt.Errorf("%w: %s", slab.ErrUnsupported, t)
		}
		fp.vt = vt
	}
	return fp, nil
}

func kindType(k reflect.Kind) (slab.ValueType, bool) {
	switch k {
	case reflect.Bool:
		return slab.TypeBool, true
	case reflect.Int8:
		return slab.TypeInt8, true
	case reflect.Uint8:
		return slab.TypeUInt8, true
	case reflect.Int16:
		return slab.TypeInt16, true
	case reflect.Uint16:
		return slab.TypeUInt16, true
	case reflect.Int32:
		return slab.TypeInt32, true
	case reflect.Uint32:
		return slab.TypeUInt32, true
	case reflect.Int64, reflect.Int:
		return slab.TypeInt64, true
	case reflect.Uint64, reflect.Uint:
		return slab.TypeUInt64, true
	case reflect.Float32:
		return slab.TypeFloat32, true
	case reflect.Float64:
		return slab.TypeFloat64, true
	}
	return slab.TypeUnknown, false
}

func (fp fieldPlan) descriptor() slab.FieldDescriptor {
	switch {
	case fp.vt == slab.TypeRef && fp.array:
		return slab.ReferenceArray(fp.name, fp.count)
	case fp.vt == slab.TypeRef:
		return slab.Reference(fp.name)
	}
	return slab.ValueField(fp.name, fp.vt, fp.count)
}
