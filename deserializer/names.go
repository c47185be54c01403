package deserializer

import (
	"strconv"
	"strings"

	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

// parsePrefixedInt decodes symbols like B3 or v12.
func (d *Deserializer) parsePrefixedInt(sym *sexy.Node, prefix byte) (int, bool) {
	if sym == nil {
		return 0, false
	}
	name := sym.Text
	if name == "" || name[0] != prefix {
		d.storeError(sym, "expected symbol starting with '%c'", prefix)
		return 0, false
	}
	i, ok := parseDigits(name[1:])
	if !ok {
		d.storeError(sym, "expected number following symbol prefix '%c'", prefix)
		return 0, false
	}
	return i, true
}

// hasPrefixedInt is parsePrefixedInt without error reporting.
func hasPrefixedInt(node *sexy.Node, prefix byte) (int, bool) {
	if node == nil || node.Type != sexy.NodeSymbol || node.Text == "" || node.Text[0] != prefix {
		return 0, false
	}
	return parseDigits(node.Text[1:])
}

// parseDigits accepts unsigned decimal numbers only, so neither v-3 nor B+1
// names anything.
func parseDigits(s string) (int, bool) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return int(i), true
}

func (d *Deserializer) parseBlockID(sym *sexy.Node) (int, bool) {
	return d.parsePrefixedInt(sym, 'B')
}

func (d *Deserializer) parseSSATemp(sym *sexy.Node) (int, bool) {
	return d.parsePrefixedInt(sym, 'v')
}

// parseUse decodes the SSA index a use refers to.
func (d *Deserializer) parseUse(sym *sexy.Node) (int, bool) {
	return d.parseSSATemp(sym)
}

// parseCanonicalName resolves names of the form
//
//	library
//	library:Class
//	library:Class.field
//	library:Class:function
//	library:Class:function:function   (tearoff)
//	library:Class:dyn:function        (dynamic invocation forwarder)
//
// An empty class segment names the library's top-level class. Getter and
// setter names keep their get: and set: prefixes.
func (d *Deserializer) parseCanonicalName(sym *sexy.Node) (program.Object, bool) {
	if sym == nil {
		return nil, false
	}
	name := sym.Text
	if name == "" || name[0] == ':' {
		d.storeError(sym, "expected non-empty library")
		return nil, false
	}
	libName, rest, hasClass := strings.Cut(name, ":")
	lib := d.universe.LookupLibrary(libName)
	if lib == nil {
		d.storeError(sym, "failure looking up library %s", libName)
		return nil, false
	}
	if !hasClass {
		return lib, true
	}
	if rest == "" {
		d.storeError(sym, "no class found after colon")
		return nil, false
	}

	classEnd := strings.IndexByte(rest, ':')
	if classEnd < 0 {
		classEnd = strings.IndexByte(rest, '.')
	}
	if classEnd < 0 {
		classEnd = len(rest)
	}
	className := rest[:classEnd]
	cls := lib.LookupClass(className)
	if cls == nil {
		d.storeError(sym, "failure looking up class %s in library %s", className, lib.Name)
		return nil, false
	}
	if classEnd == len(rest) {
		return cls, true
	}
	ownerName := className
	if ownerName == "" {
		ownerName = "at top level"
	}

	member := rest[classEnd+1:]
	if rest[classEnd] == '.' {
		if member == "" {
			d.storeError(sym, "no field name found after period")
			return nil, false
		}
		field := cls.LookupField(member)
		if field == nil {
			d.storeError(sym, "failure looking up field %s in class %s", member, ownerName)
			return nil, false
		}
		return field, true
	}

	if member == "" {
		d.storeError(sym, "no function name found after final colon")
		return nil, false
	}
	return d.parseFunctionName(sym, cls, ownerName, member)
}

func (d *Deserializer) parseFunctionName(sym *sexy.Node, cls *program.Class, ownerName, s string) (program.Object, bool) {
	var fn *program.Function
	for {
		forwarder := strings.HasPrefix(s, "dyn:")
		if forwarder {
			s = s[len("dyn:"):]
		}
		end := segmentEnd(s)
		last := end < 0
		if last {
			end = len(s)
		}
		segment := s[:end]

		if fn != nil {
			// Only a tearoff of the enclosing function may follow it.
			if last && !forwarder && fn.HasImplicitClosureFunction() && segment == fn.Name {
				return fn.ImplicitClosureFunction(), true
			}
			d.storeError(sym, "no handling for local functions")
			return nil, false
		}

		if segment == "" {
			d.storeError(sym, "no function name found after final colon")
			return nil, false
		}
		fn = cls.LookupFunction(segment)
		if fn == nil {
			d.storeError(sym, "failure looking up function %s in class %s", segment, ownerName)
			return nil, false
		}
		if forwarder {
			fn = fn.DynamicInvocationForwarder("dyn:" + segment)
		}
		if last {
			return fn, true
		}
		if end == len(s)-1 {
			d.storeError(sym, "no function name found after final colon")
			return nil, false
		}
		s = s[end+1:]
	}
}

// segmentEnd returns the index of the colon ending the first function
// segment of s, or -1. The colon after a get or set prefix belongs to the
// name.
func segmentEnd(s string) int {
	if strings.HasPrefix(s, "get:") || strings.HasPrefix(s, "set:") {
		next := strings.IndexByte(s[4:], ':')
		if next < 0 {
			return -1
		}
		return 4 + next
	}
	return strings.IndexByte(s, ':')
}
