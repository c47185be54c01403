package sexy

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"test_var", "test_var"},
		{"B12", "B12"},
		{"v7", "v7"},
		{"===", "==="},
		{"!==", "!=="},
		{"-", "-"},
		{"null", "null"},
		{"myLib:MyClass.myField", "myLib:MyClass.myField"},
		{"myLib:MyClass:get:myProp", "myLib:MyClass:get:myProp"},
		{"core::print", "core::print"},
		{":lonely", ":lonely"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeSymbol)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		output   string
	}{
		{`"hello"`, "hello", `"hello"`},
		{`"hello world"`, "hello world", `"hello world"`},
		{`""`, "", `""`},
		{`"test\"quote"`, `test"quote`, `"test\"quote"`},
		{`"test\\backslash"`, `test\backslash`, `"test\\backslash"`},
		{`"line\nbreak\ttab"`, "line\nbreak\ttab", `"line\nbreak\ttab"`},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeString)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.output)
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		output   string
	}{
		{"42", 42, "42"},
		{"0", 0, "0"},
		{"-123", -123, "-123"},
		{"+456", 456, "456"},
		{"9223372036854775807", 9223372036854775807, "9223372036854775807"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeInteger)
		be.Equal(t, result.Integer, test.expected)
		be.Equal(t, result.String(), test.output)
	}
}

func TestParseDouble(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		output   string
	}{
		{"1.5", 1.5, "1.5"},
		{"-2e3", -2000, "-2000.0"},
		{"0.25", 0.25, "0.25"},
		{"3E2", 300, "300.0"},
		{"1e+21", 1e21, "1e+21"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeDouble)
		be.Equal(t, result.Double, test.expected)
		be.Equal(t, result.String(), test.output)
	}
}

func TestParseBoolean(t *testing.T) {
	result, err := Parse("true")
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeBoolean)
	be.Equal(t, result.Boolean, true)

	result, err = Parse("false")
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeBoolean)
	be.Equal(t, result.Boolean, false)
	be.Equal(t, result.String(), "false")
}

func TestParseList(t *testing.T) {
	result, err := Parse("(Goto B3)")
	be.Err(t, err, nil)

	be.Equal(t, result.Type, NodeList)
	be.Equal(t, result.Len(), 2)
	be.Equal(t, result.Tag(), "Goto")
	be.Equal(t, result.At(1).Text, "B3")
	be.True(t, result.At(2) == nil)
	be.Equal(t, result.String(), "(Goto B3)")

	empty, err := Parse("()")
	be.Err(t, err, nil)
	be.Equal(t, empty.Len(), 0)
	be.Equal(t, empty.Tag(), "")
	be.Equal(t, empty.String(), "()")
}

func TestParseMeta(t *testing.T) {
	result, err := Parse("(Block B1 ^{block_type: Join, deopt_id: 3} (Goto B2))")
	be.Err(t, err, nil)

	be.Equal(t, result.Tag(), "Block")
	be.Equal(t, result.Len(), 3)
	be.Equal(t, result.Meta("block_type").Text, "Join")
	be.Equal(t, result.Meta("deopt_id").Integer, int64(3))
	be.True(t, result.Meta("env") == nil)
	be.True(t, result.HasMeta("deopt_id"))
	be.Equal(t, result.String(), "(^{block_type: Join, deopt_id: 3} Block B1 (Goto B2))")
}

func TestParseMetaMerging(t *testing.T) {
	result, err := Parse("(x ^{a: 1, b: 2} y ^{b: 3, c: (v1 a0)})")
	be.Err(t, err, nil)

	be.Equal(t, result.Len(), 2)
	be.Equal(t, result.MetaKeys, []string{"a", "b", "c"})
	be.Equal(t, result.Meta("b").Integer, int64(3))
	be.Equal(t, result.Meta("c").String(), "(v1 a0)")
}

func TestParseComments(t *testing.T) {
	result, err := Parse(`; leading comment
(Return v1) ; trailing comment`)
	be.Err(t, err, nil)
	be.Equal(t, result.String(), "(Return v1)")
}

func TestParsePositions(t *testing.T) {
	result, err := Parse("(def v3 (Constant 42))")
	be.Err(t, err, nil)

	be.Equal(t, result.Pos, 0)
	be.Equal(t, result.At(1).Pos, 5)
	be.Equal(t, result.At(2).Pos, 8)
	be.Equal(t, result.At(2).At(1).Pos, 18)
	be.Equal(t, NewSymbol("v3").Pos, -1)
}

func TestRoundTripParsing(t *testing.T) {
	tests := []string{
		`(FlowGraph core::main (Entries (Normal B1 (def v0 (Parameter 0)))))`,
		`(^{deopt_id: 2, env: (^{fixed_param_count: 1} v1 a0)} StaticCall (Function core::print))`,
		`(Constants (def v1 null) (def v2 true) (def v3 -1.5) (def v4 "str\n"))`,
		`(Instance 100 (^{x: 1, y: (ImmutableList 1 2)} Fields))`,
		`(StrictCompare === v1 v2)`,
		`()`,
	}

	for _, input := range tests {
		first, err := Parse(input)
		be.Err(t, err, nil)
		be.Equal(t, first.String(), input)

		second, err := Parse(first.String())
		be.Err(t, err, nil)
		be.True(t, Equal(first, second))
	}
}

func TestEqual(t *testing.T) {
	a, err := Parse("(x ^{a: 1, b: (y z)} 2.5 true)")
	be.Err(t, err, nil)
	b, err := Parse("(x ^{b: (y z), a: 1} 2.5 true)")
	be.Err(t, err, nil)
	be.True(t, Equal(a, b))

	different := []string{
		"(x ^{a: 1} 2.5 true)",
		"(x ^{a: 1, b: (y w)} 2.5 true)",
		"(x ^{a: 1, c: (y z)} 2.5 true)",
		"(x ^{a: 1, b: (y z)} 2.5 false)",
		"(x ^{a: 1, b: (y z)} 2 true)",
		`(x ^{a: 1, b: (y z)} 2.5 "true")`,
	}
	for _, input := range different {
		other, err := Parse(input)
		be.Err(t, err, nil)
		be.True(t, !Equal(a, other))
	}

	be.True(t, Equal(nil, nil))
	be.True(t, !Equal(a, nil))
}

func TestBuilders(t *testing.T) {
	n := NewList(NewSymbol("Slot"), NewInteger(8))
	n.SetMeta("kind", NewSymbol("DartField"))
	n.SetMeta("field", NewList(NewSymbol("Field"), NewSymbol("lib:C.f")))
	n.SetMeta("kind", NewSymbol("TypeArguments"))

	be.Equal(t, n.String(), "(^{kind: TypeArguments, field: (Field lib:C.f)} Slot 8)")
	be.Equal(t, n.SortedMetaKeys(), []string{"field", "kind"})

	n.Add(NewString("x"), NewDouble(2), NewBoolean(true))
	be.Equal(t, n.String(), `(^{kind: TypeArguments, field: (Field lib:C.f)} Slot 8 "x" 2.0 true)`)

	parsed, err := Parse(n.String())
	be.Err(t, err, nil)
	be.True(t, Equal(n, parsed))
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"unterminated string`, "unterminated string"},
		{`"invalid \escape"`, "invalid escape sequence"},
		{"[", "unexpected character '['"},
		{"(a ]", "unexpected character ']'"},
		{"12abc", "malformed number '12abc'"},
		{"(1.5.6)", "malformed number"},
	}

	for _, test := range tests {
		_, err := Parse(test.input)
		be.Err(t, err, test.expected)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []string{
		"",            // nothing to parse
		"(",           // unclosed list
		"(hello",      // unclosed list with content
		")",           // stray close
		"^",           // invalid meta syntax
		"(^hello)",    // meta without braces
		"(^{a 1})",    // missing colon
		"(^{1: 2})",   // non-symbol key
		"(^{a: 1 b})", // missing comma
		"hello world", // extra tokens after main expression
		"42 extra",    // extra tokens after integer
		"(test) more", // extra tokens after list
		"99999999999999999999",
	}

	for _, test := range tests {
		result, err := Parse(test)
		be.True(t, err != nil)
		be.True(t, result == nil)
	}
}

func TestNodeTypeHelpers(t *testing.T) {
	be.True(t, NewSymbol("x").IsAtom())
	be.True(t, NewInteger(1).IsAtom())
	be.True(t, !NewList().IsAtom())
	be.Equal(t, NodeBoolean.String(), "Bool")
	be.Equal(t, NodeList.String(), "List")
	be.Equal(t, NewSymbol("x").Tag(), "")
	be.Equal(t, NewList(NewInteger(1)).Tag(), "")
}
