package deserializer

import (
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

// parseDartValue rebuilds a constant. Values are canonicalized before they
// are returned, so equal constants share one object.
func (d *Deserializer) parseDartValue(node *sexy.Node) (program.Object, bool) {
	if node == nil {
		return nil, false
	}

	var out program.Object
	switch node.Type {
	case sexy.NodeSymbol:
		if node.Text == "null" {
			return program.Null, true
		}
		// Any other symbol names a constant definition, which was
		// canonicalized when it was defined.
		index, ok := d.parseUse(node)
		if !ok {
			return nil, false
		}
		def, ok := d.definitions[index]
		if !ok {
			d.storeError(node, "found use prior to definition")
			return nil, false
		}
		c, ok := def.(*il.Constant)
		if !ok {
			d.storeError(node, "not a reference to a constant definition")
			return nil, false
		}
		return c.Value, true
	case sexy.NodeBoolean:
		return program.BoolOf(node.Boolean), true
	case sexy.NodeString:
		out = &program.String{Value: node.Text}
	case sexy.NodeInteger:
		out = &program.Integer{Value: node.Integer}
	case sexy.NodeDouble:
		out = &program.Double{Value: node.Double}
	case sexy.NodeList:
		list := d.checkTaggedList(node, "")
		if list == nil {
			return nil, false
		}
		obj, ok := d.parseDartList(list)
		if !ok {
			return nil, false
		}
		out = obj
	}

	if out == nil {
		d.storeError(node, "unhandled Dart value")
		return nil, false
	}
	if v, ok := out.(program.Value); ok {
		canon, err := d.universe.Canonicalize(v)
		if err != nil {
			d.storeError(node, "error during canonicalization: %s", err)
			return nil, false
		}
		out = canon
	}
	return out, true
}

// parseDartList handles the tagged forms. It returns (nil, true) for an
// unrecognized tag so the caller reports it as an unhandled value.
func (d *Deserializer) parseDartList(list *sexy.Node) (program.Object, bool) {
	switch list.Tag() {
	case "Class":
		return d.parseClass(list)
	case "Type":
		return d.parseType(list)
	case "TypeArguments":
		return d.parseTypeArguments(list)
	case "Field":
		return d.parseCanonicalName(d.checkSymbol(d.retrieve(list, 1)))
	case "Function":
		return d.parseFunctionValue(list)
	case "TypeParameter":
		return d.parseTypeParameter(list)
	case "ImmutableList":
		return d.parseImmutableList(list)
	case "Instance":
		return d.parseInstance(list)
	case "Closure":
		return d.parseClosure(list)
	}
	return nil, true
}

func (d *Deserializer) parseClass(list *sexy.Node) (program.Object, bool) {
	cidNode := d.checkInteger(d.retrieve(list, 1))
	if cidNode == nil {
		return nil, false
	}
	cid := program.CID(cidNode.Integer)
	if !d.universe.HasValidClassAt(cid) {
		d.storeError(cidNode, "no valid class found for cid")
		return nil, false
	}
	return d.universe.ClassAt(cid), true
}

// parseClassRef parses a nested (Class cid) form.
func (d *Deserializer) parseClassRef(node *sexy.Node) (*program.Class, bool) {
	list := d.checkTaggedList(node, "Class")
	if list == nil {
		return nil, false
	}
	obj, ok := d.parseClass(list)
	if !ok {
		return nil, false
	}
	return obj.(*program.Class), true
}

func (d *Deserializer) parseType(list *sexy.Node) (program.Object, bool) {
	cls, ok := d.parseClassRef(d.retrieve(list, 1))
	if !ok {
		return nil, false
	}
	typeArgs, ok := d.parseOptTypeArguments(list, "type_args")
	if !ok {
		return nil, false
	}
	// Only finalized types are ever serialized.
	return &program.Type{Class: cls, TypeArgs: typeArgs, Finalized: true}, true
}

func (d *Deserializer) parseTypeArguments(list *sexy.Node) (program.Object, bool) {
	ta := &program.TypeArguments{Types: make([]program.AbstractType, 0, list.Len()-1)}
	for i := 1; i < list.Len(); i++ {
		elem := list.At(i)
		obj, ok := d.parseDartValue(elem)
		if !ok {
			return nil, false
		}
		t, ok := obj.(program.AbstractType)
		if !ok {
			d.storeError(elem, "expected a type")
			return nil, false
		}
		ta.Types = append(ta.Types, t)
	}
	return ta, true
}

// parseOptTypeArguments reads an optional ^{key: (TypeArguments ...)}. The
// vector may also be a reference to a pool constant.
func (d *Deserializer) parseOptTypeArguments(list *sexy.Node, key string) (*program.TypeArguments, bool) {
	node := list.Meta(key)
	if node == nil {
		return nil, true
	}
	if node.Type != sexy.NodeSymbol && d.checkTaggedList(node, "TypeArguments") == nil {
		return nil, false
	}
	obj, ok := d.parseDartValue(node)
	if !ok {
		return nil, false
	}
	ta, ok := obj.(*program.TypeArguments)
	if !ok {
		d.storeError(node, "expected type arguments")
		return nil, false
	}
	return ta, true
}

func (d *Deserializer) parseFunctionValue(list *sexy.Node) (program.Object, bool) {
	obj, ok := d.parseCanonicalName(d.checkSymbol(d.retrieve(list, 1)))
	if !ok {
		return nil, false
	}
	fn, isFunction := obj.(*program.Function)
	if !isFunction {
		d.storeError(list.At(1), "not a function name")
		return nil, false
	}
	kindNode, ok := d.optSymbol(list, "kind")
	if !ok {
		return nil, false
	}
	if kindNode != nil {
		kind, known := program.ParseFunctionKind(kindNode.Text)
		if !known {
			d.storeError(kindNode, "unexpected function kind")
			return nil, false
		}
		if fn.Kind != kind {
			d.storeError(list, "retrieved function has kind %s", fn.Kind)
			return nil, false
		}
	}
	return fn, true
}

// parseFunctionRef parses a nested (Function name) form.
func (d *Deserializer) parseFunctionRef(node *sexy.Node) (*program.Function, bool) {
	list := d.checkTaggedList(node, "Function")
	if list == nil {
		return nil, false
	}
	obj, ok := d.parseFunctionValue(list)
	if !ok {
		return nil, false
	}
	return obj.(*program.Function), true
}

// parseTypeParameter looks the name up in the function being compiled
// first and then in the class that owns it.
func (d *Deserializer) parseTypeParameter(list *sexy.Node) (program.Object, bool) {
	name := d.checkSymbol(d.retrieve(list, 1))
	if name == nil {
		return nil, false
	}
	if d.parsedFunction != nil && d.parsedFunction.Function != nil {
		fn := d.parsedFunction.Function
		if p := fn.LookupTypeParameter(name.Text); p != nil {
			return p, true
		}
		if p := fn.Owner.LookupTypeParameter(name.Text); p != nil {
			return p, true
		}
	}
	d.storeError(name, "no type parameter found for name")
	return nil, false
}

func (d *Deserializer) parseImmutableList(list *sexy.Node) (program.Object, bool) {
	arr := &program.Array{Elements: make([]program.Object, 0, list.Len()-1)}
	for i := 1; i < list.Len(); i++ {
		elem, ok := d.parseDartValue(list.At(i))
		if !ok {
			return nil, false
		}
		arr.Elements = append(arr.Elements, elem)
	}
	typeArgs, ok := d.parseOptTypeArguments(list, "type_args")
	if !ok {
		return nil, false
	}
	arr.TypeArgs = typeArgs
	arr.Immutable = true
	return arr, true
}

// parseInstance handles (Instance cid (Fields ^{name: value, ...})). Field
// values may themselves be instances.
func (d *Deserializer) parseInstance(list *sexy.Node) (program.Object, bool) {
	cidNode := d.checkInteger(d.retrieve(list, 1))
	if cidNode == nil {
		return nil, false
	}
	cid := program.CID(cidNode.Integer)
	if !d.universe.HasValidClassAt(cid) {
		d.storeError(cidNode, "cid is not valid")
		return nil, false
	}
	cls := d.universe.ClassAt(cid)
	inst := program.NewInstance(cls)

	if list.Len() > 2 {
		fields := d.checkTaggedList(d.retrieve(list, 2), "Fields")
		if fields == nil {
			return nil, false
		}
		for i, key := range fields.MetaKeys {
			field := cls.LookupInstanceField(key)
			if field == nil {
				d.storeError(list, "cannot find field %s", key)
				return nil, false
			}
			value, ok := d.parseDartValue(fields.MetaItems[i])
			if !ok {
				return nil, false
			}
			inst.SetField(field, value)
		}
	}
	return inst, true
}

func (d *Deserializer) parseClosure(list *sexy.Node) (program.Object, bool) {
	fn, ok := d.parseFunctionRef(d.retrieve(list, 1))
	if !ok {
		return nil, false
	}
	if list.HasMeta("context") {
		d.storeError(list, "closures with contexts currently unhandled")
		return nil, false
	}
	c := &program.Closure{Function: fn}
	if c.InstantiatorTypeArgs, ok = d.parseOptTypeArguments(list, "inst_type_args"); !ok {
		return nil, false
	}
	if c.FunctionTypeArgs, ok = d.parseOptTypeArguments(list, "func_type_args"); !ok {
		return nil, false
	}
	if c.DelayedTypeArgs, ok = d.parseOptTypeArguments(list, "delayed_type_args"); !ok {
		return nil, false
	}
	return c, true
}

// parseCompileType handles (CompileType cid? ^{nullable, type}). A missing
// cid means dynamic and a missing nullable flag means nullable.
func (d *Deserializer) parseCompileType(list *sexy.Node) (*il.CompileType, bool) {
	if list == nil {
		return nil, false
	}
	nullable, ok := d.optBool(list, "nullable", true)
	if !ok {
		return nil, false
	}
	ct := &il.CompileType{Nullable: nullable, CID: program.DynamicCID}
	if list.Len() > 1 {
		cidNode := d.checkInteger(list.At(1))
		if cidNode == nil {
			return nil, false
		}
		ct.CID = program.CID(cidNode.Integer)
		if !d.universe.HasValidClassAt(ct.CID) {
			d.storeError(cidNode, "no valid class found for cid")
			return nil, false
		}
	}
	typeNode, ok := d.optTaggedList(list, "type", "")
	if !ok {
		return nil, false
	}
	if typeNode != nil {
		obj, ok := d.parseDartValue(typeNode)
		if !ok {
			return nil, false
		}
		t, isType := obj.(program.AbstractType)
		if !isType {
			d.storeError(typeNode, "expected a type")
			return nil, false
		}
		ct.Type = t
	}
	return ct, true
}
