package program

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/zeebo/xxh3"
)

// canonTable maps the hash of a value's canonical encoding to the values
// sharing that hash.
type canonTable struct {
	mu      sync.RWMutex
	entries map[uint64][]canonEntry
}

type canonEntry struct {
	key   string
	value Value
}

func newCanonTable() canonTable {
	return canonTable{entries: make(map[uint64][]canonEntry, 256)}
}

// Canonicalize returns the canonical instance equal to v, registering v
// as canonical if no equal value was seen before. It fails for values that
// may not be shared: unfinalized types, mutable arrays and instances of
// abstract classes.
func (u *Universe) Canonicalize(v Value) (Value, error) {
	switch v.(type) {
	case *NullValue, *Bool:
		return v, nil
	}

	var enc encoder
	if err := enc.value(v); err != nil {
		return nil, err
	}
	key := enc.buf.String()
	h := xxh3.New()
	_, _ = h.Write(enc.buf.Bytes())
	sum := h.Sum64()

	t := &u.canon
	t.mu.RLock()
	if found := t.lookup(sum, key); found != nil {
		t.mu.RUnlock()
		return found, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	// Another goroutine may have won the race.
	if found := t.lookup(sum, key); found != nil {
		return found, nil
	}
	t.entries[sum] = append(t.entries[sum], canonEntry{key: key, value: v})
	return v, nil
}

// CanonicalCount returns the number of distinct canonical values.
func (u *Universe) CanonicalCount() int {
	t := &u.canon
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, bucket := range t.entries {
		n += len(bucket)
	}
	return n
}

func (t *canonTable) lookup(sum uint64, key string) Value {
	for _, e := range t.entries[sum] {
		if e.key == key {
			return e.value
		}
	}
	return nil
}

// Tags of the canonical encoding.
const (
	encNull byte = iota + 1
	encBool
	encInteger
	encDouble
	encString
	encArray
	encType
	encTypeArguments
	encTypeParameter
	encInstance
	encClosure
	encClass
	encField
	encFunction
	encLibrary
	encAbsent
)

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) tag(t byte) {
	e.buf.WriteByte(t)
}

func (e *encoder) int(i int64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutVarint(b[:], i)
	e.buf.Write(b[:n])
}

func (e *encoder) string(s string) {
	e.int(int64(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) object(o Object) error {
	switch o := o.(type) {
	case nil:
		e.tag(encAbsent)
	case *Class:
		e.tag(encClass)
		e.int(int64(o.ID))
	case *Field:
		e.tag(encField)
		e.string(o.CanonicalName())
	case *Function:
		e.tag(encFunction)
		e.string(o.CanonicalName())
	case *Library:
		e.tag(encLibrary)
		e.string(o.Name)
	case Value:
		return e.value(o)
	default:
		return fmt.Errorf("cannot encode %T", o)
	}
	return nil
}

func (e *encoder) typeArgs(ta *TypeArguments) error {
	if ta == nil {
		e.tag(encAbsent)
		return nil
	}
	return e.value(ta)
}

func (e *encoder) value(v Value) error {
	switch v := v.(type) {
	case *NullValue:
		e.tag(encNull)
	case *Bool:
		e.tag(encBool)
		if v.Value {
			e.int(1)
		} else {
			e.int(0)
		}
	case *Integer:
		e.tag(encInteger)
		e.int(v.Value)
	case *Double:
		e.tag(encDouble)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.Value))
		e.buf.Write(b[:])
	case *String:
		e.tag(encString)
		e.string(v.Value)
	case *Array:
		if !v.Immutable {
			return fmt.Errorf("array is not immutable")
		}
		e.tag(encArray)
		e.int(int64(len(v.Elements)))
		for _, elem := range v.Elements {
			if err := e.object(elem); err != nil {
				return err
			}
		}
		return e.typeArgs(v.TypeArgs)
	case *Type:
		if !v.Finalized {
			return fmt.Errorf("type %s is not finalized", v)
		}
		e.tag(encType)
		e.int(int64(v.Class.ID))
		return e.typeArgs(v.TypeArgs)
	case *TypeArguments:
		e.tag(encTypeArguments)
		e.int(int64(len(v.Types)))
		for _, t := range v.Types {
			if err := e.value(t); err != nil {
				return err
			}
		}
	case *TypeParameter:
		e.tag(encTypeParameter)
		e.string(v.Name)
		e.int(int64(v.Index))
		if v.Function != nil {
			e.string(v.Function.CanonicalName())
		} else {
			e.string(v.Class.CanonicalName())
		}
	case *Instance:
		if v.Class.Abstract {
			return fmt.Errorf("cannot create an instance of abstract class %s", v.Class.Name)
		}
		e.tag(encInstance)
		e.int(int64(v.Class.ID))
		for _, f := range v.Class.InstanceFields() {
			if err := e.object(v.GetField(f)); err != nil {
				return err
			}
		}
	case *Closure:
		e.tag(encClosure)
		e.string(v.Function.CanonicalName())
		for _, ta := range []*TypeArguments{v.InstantiatorTypeArgs, v.FunctionTypeArgs, v.DelayedTypeArgs} {
			if err := e.typeArgs(ta); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot canonicalize %T", v)
	}
	return nil
}
