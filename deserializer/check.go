package deserializer

import (
	"github.com/strager/ilsexp/sexy"
)

// The accessors below return nil after recording an error when the input
// has the wrong shape. A nil input is passed through without recording
// anything, so calls can be chained and only the first failure in a chain
// is reported.

func (d *Deserializer) retrieve(list *sexy.Node, index int) *sexy.Node {
	if list == nil {
		return nil
	}
	if index >= list.Len() {
		d.storeError(list, "expected at least %d element(s) in list", index+1)
		return nil
	}
	return list.At(index)
}

func (d *Deserializer) retrieveKey(list *sexy.Node, key string) *sexy.Node {
	if list == nil {
		return nil
	}
	elem := list.Meta(key)
	if elem == nil {
		d.storeError(list, "expected an extra info entry for key %s", key)
		return nil
	}
	return elem
}

func (d *Deserializer) checkType(node *sexy.Node, t sexy.NodeType) *sexy.Node {
	if node == nil {
		return nil
	}
	if node.Type != t {
		d.storeError(node, "expected %s", t)
		return nil
	}
	return node
}

func (d *Deserializer) checkSymbol(node *sexy.Node) *sexy.Node  { return d.checkType(node, sexy.NodeSymbol) }
func (d *Deserializer) checkString(node *sexy.Node) *sexy.Node  { return d.checkType(node, sexy.NodeString) }
func (d *Deserializer) checkInteger(node *sexy.Node) *sexy.Node { return d.checkType(node, sexy.NodeInteger) }
func (d *Deserializer) checkDouble(node *sexy.Node) *sexy.Node  { return d.checkType(node, sexy.NodeDouble) }
func (d *Deserializer) checkBool(node *sexy.Node) *sexy.Node    { return d.checkType(node, sexy.NodeBoolean) }
func (d *Deserializer) checkList(node *sexy.Node) *sexy.Node    { return d.checkType(node, sexy.NodeList) }

func (d *Deserializer) isTag(node *sexy.Node, label string) bool {
	sym := d.checkSymbol(node)
	if sym == nil {
		return false
	}
	if label != "" && sym.Text != label {
		d.storeError(sym, "expected symbol %s", label)
		return false
	}
	return true
}

// checkTaggedList checks for a non-empty list headed by a symbol, which
// must equal label unless label is empty.
func (d *Deserializer) checkTaggedList(node *sexy.Node, label string) *sexy.Node {
	list := d.checkList(node)
	if !d.isTag(d.retrieve(list, 0), label) {
		return nil
	}
	return list
}

// Optional extra attributes. A missing key yields the default and never
// records an error; a present key of the wrong type does.

func (d *Deserializer) optInt(list *sexy.Node, key string, def int) (int, bool) {
	node := list.Meta(key)
	if node == nil {
		return def, true
	}
	if node = d.checkInteger(node); node == nil {
		return 0, false
	}
	return int(node.Integer), true
}

func (d *Deserializer) optBool(list *sexy.Node, key string, def bool) (bool, bool) {
	node := list.Meta(key)
	if node == nil {
		return def, true
	}
	if node = d.checkBool(node); node == nil {
		return false, false
	}
	return node.Boolean, true
}

func (d *Deserializer) optString(list *sexy.Node, key string, def string) (string, bool) {
	node := list.Meta(key)
	if node == nil {
		return def, true
	}
	if node = d.checkString(node); node == nil {
		return "", false
	}
	return node.Text, true
}

// optSymbol returns the symbol node itself so callers can report problems
// with its value at it.
func (d *Deserializer) optSymbol(list *sexy.Node, key string) (*sexy.Node, bool) {
	node := list.Meta(key)
	if node == nil {
		return nil, true
	}
	if node = d.checkSymbol(node); node == nil {
		return nil, false
	}
	return node, true
}

func (d *Deserializer) optList(list *sexy.Node, key string) (*sexy.Node, bool) {
	node := list.Meta(key)
	if node == nil {
		return nil, true
	}
	if node = d.checkList(node); node == nil {
		return nil, false
	}
	return node, true
}

func (d *Deserializer) optTaggedList(list *sexy.Node, key, label string) (*sexy.Node, bool) {
	node := list.Meta(key)
	if node == nil {
		return nil, true
	}
	if node = d.checkTaggedList(node, label); node == nil {
		return nil, false
	}
	return node, true
}
