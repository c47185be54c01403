package serializer

import (
	"fmt"

	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

// literal renders obj in full. Composite objects nested inside it are
// written as references when they are pool constants.
func (s *Serializer) literal(obj program.Object) *sexy.Node {
	return s.object(obj, true)
}

// nested renders an object that appears inside another one.
func (s *Serializer) nested(obj program.Object, refs bool) *sexy.Node {
	if refs && isComposite(obj) {
		if c, ok := s.pool[obj]; ok {
			return ssaName(c.SSAIndex())
		}
	}
	return s.object(obj, refs)
}

func isComposite(obj program.Object) bool {
	switch obj.(type) {
	case *program.Array, *program.Type, *program.TypeArguments, *program.Instance, *program.Closure:
		return true
	}
	return false
}

// object renders the top level of obj. refs controls whether nested pool
// constants become references. Compile types turn them off, because a
// definition's type is read before later pool entries exist.
func (s *Serializer) object(obj program.Object, refs bool) *sexy.Node {
	switch obj := obj.(type) {
	case nil:
		s.fail("missing object")
		return sexy.NewSymbol("null")
	case *program.NullValue:
		return sexy.NewSymbol("null")
	case *program.Bool:
		return sexy.NewBoolean(obj.Value)
	case *program.Integer:
		return sexy.NewInteger(obj.Value)
	case *program.Double:
		return sexy.NewDouble(obj.Value)
	case *program.String:
		return sexy.NewString(obj.Value)
	case *program.Library:
		return sexy.NewList(sexy.NewSymbol("Library"), sexy.NewSymbol(obj.Name))
	case *program.Class:
		return s.classRef(obj)
	case *program.Field:
		return sexy.NewList(sexy.NewSymbol("Field"), sexy.NewSymbol(obj.CanonicalName()))
	case *program.Function:
		return s.functionRef(obj)
	case *program.TypeParameter:
		return sexy.NewList(sexy.NewSymbol("TypeParameter"), sexy.NewSymbol(obj.Name))
	case *program.Type:
		list := sexy.NewList(sexy.NewSymbol("Type"), s.classRef(obj.Class))
		s.typeArgs(list, "type_args", obj.TypeArgs, refs)
		return list
	case *program.TypeArguments:
		list := sexy.NewList(sexy.NewSymbol("TypeArguments"))
		for _, t := range obj.Types {
			list.Add(s.nested(t, refs))
		}
		return list
	case *program.Array:
		tag := "List"
		if obj.Immutable {
			tag = "ImmutableList"
		}
		list := sexy.NewList(sexy.NewSymbol(tag))
		for _, elem := range obj.Elements {
			list.Add(s.nested(elem, refs))
		}
		s.typeArgs(list, "type_args", obj.TypeArgs, refs)
		return list
	case *program.Instance:
		list := sexy.NewList(sexy.NewSymbol("Instance"), sexy.NewInteger(int64(obj.Class.ID)))
		fields := sexy.NewList(sexy.NewSymbol("Fields"))
		for _, f := range obj.Class.InstanceFields() {
			if v := obj.GetField(f); v != nil {
				fields.SetMeta(f.Name, s.nested(v, refs))
			}
		}
		if len(fields.MetaKeys) > 0 {
			list.Add(fields)
		}
		return list
	case *program.Closure:
		list := sexy.NewList(sexy.NewSymbol("Closure"), s.functionRef(obj.Function))
		s.typeArgs(list, "inst_type_args", obj.InstantiatorTypeArgs, refs)
		s.typeArgs(list, "func_type_args", obj.FunctionTypeArgs, refs)
		s.typeArgs(list, "delayed_type_args", obj.DelayedTypeArgs, refs)
		return list
	}
	s.fail("cannot serialize object of type %T", obj)
	return sexy.NewSymbol(fmt.Sprintf("%T", obj))
}

func (s *Serializer) typeArgs(list *sexy.Node, key string, ta *program.TypeArguments, refs bool) {
	if ta != nil {
		list.SetMeta(key, s.nested(ta, refs))
	}
}

func (s *Serializer) classRef(cls *program.Class) *sexy.Node {
	return sexy.NewList(sexy.NewSymbol("Class"), sexy.NewInteger(int64(cls.ID)))
}

// functionRef renders (Function name ^{kind}). The kind is left out for
// regular functions.
func (s *Serializer) functionRef(fn *program.Function) *sexy.Node {
	list := sexy.NewList(sexy.NewSymbol("Function"), sexy.NewSymbol(fn.CanonicalName()))
	if fn.Kind != program.RegularFunction {
		list.SetMeta("kind", sexy.NewSymbol(string(fn.Kind)))
	}
	return list
}
