package deserializer

import (
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/sexy"
)

// parseValue handles vN and (value vN ^{type: (CompileType ...)}). A use
// of an index with no definition yet is bound to the null constant and
// fixed up by bindDefinition, unless allowPending is false.
func (d *Deserializer) parseValue(node *sexy.Node, allowPending bool) *il.Value {
	if node == nil {
		return nil
	}
	name := node
	var reaching *il.CompileType
	if node.Type != sexy.NodeSymbol {
		list := d.checkTaggedList(node, "value")
		name = d.checkSymbol(d.retrieve(list, 1))
		if name == nil {
			return nil
		}
		typeNode, ok := d.optTaggedList(list, "type", "CompileType")
		if !ok {
			return nil
		}
		if typeNode != nil {
			if reaching, ok = d.parseCompileType(typeNode); !ok {
				return nil
			}
		}
	}

	index, ok := d.parseUse(name)
	if !ok {
		return nil
	}
	var v *il.Value
	if def, ok := d.definitions[index]; ok {
		v = il.NewValue(def)
	} else {
		if !allowPending {
			d.storeError(node, "found use prior to definition")
			return nil
		}
		v = il.NewValue(d.graph.ConstantNull())
		d.pending[index] = append(d.pending[index], v)
	}
	v.ReachingType = reaching
	return v
}

// bindDefinition numbers def from (def vN ... ^{type}) and resolves every
// pending use of vN.
func (d *Deserializer) bindDefinition(list *sexy.Node, def il.Definition) bool {
	name := d.checkSymbol(d.retrieve(list, 1))
	if name == nil {
		return false
	}
	index, ok := hasPrefixedInt(name, 'v')
	if !ok {
		d.storeError(list, "unhandled name for definition")
		return false
	}
	if _, exists := d.definitions[index]; exists {
		d.storeError(list, "multiple definitions for the same SSA index")
		return false
	}
	def.SetSSAIndex(index)
	if index > d.maxSSAIndex {
		d.maxSSAIndex = index
	}

	typeNode, ok := d.optTaggedList(list, "type", "CompileType")
	if !ok {
		return false
	}
	if typeNode != nil {
		ct, ok := d.parseCompileType(typeNode)
		if !ok {
			return false
		}
		def.SetType(ct)
	}

	d.definitions[index] = def
	d.fixPendingValues(index, def)
	return true
}

func (d *Deserializer) fixPendingValues(index int, def il.Definition) {
	for _, v := range d.pending[index] {
		v.BindTo(def)
	}
	delete(d.pending, index)
}
