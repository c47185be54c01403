package program

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the YAML description of user libraries:
//
//	libraries:
//	  - name: app
//	    classes:
//	      - name: Point
//	        type_parameters: [T]
//	        fields:
//	          - {name: x}
//	        functions:
//	          - {name: get:x, kind: GetterFunction}
//	    functions:
//	      - {name: main, params: 0, implicit_closure: true}
type Document struct {
	Libraries []LibraryDoc `yaml:"libraries"`
}

type LibraryDoc struct {
	Name      string        `yaml:"name"`
	Classes   []ClassDoc    `yaml:"classes"`
	Fields    []FieldDoc    `yaml:"fields"`
	Functions []FunctionDoc `yaml:"functions"`
}

type ClassDoc struct {
	Name           string        `yaml:"name"`
	Abstract       bool          `yaml:"abstract"`
	TypeParameters []string      `yaml:"type_parameters"`
	Fields         []FieldDoc    `yaml:"fields"`
	Functions      []FunctionDoc `yaml:"functions"`
}

type FieldDoc struct {
	Name   string `yaml:"name"`
	Static bool   `yaml:"static"`
}

type FunctionDoc struct {
	Name            string   `yaml:"name"`
	Kind            string   `yaml:"kind"`
	Params          int      `yaml:"params"`
	TypeParameters  []string `yaml:"type_parameters"`
	ImplicitClosure bool     `yaml:"implicit_closure"`
}

// Load reads a YAML program description into a fresh universe.
func Load(r io.Reader) (*Universe, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}
	u := NewUniverse()
	if err := u.Declare(&doc); err != nil {
		return nil, err
	}
	return u, nil
}

// Declare adds the libraries of doc to the universe.
func (u *Universe) Declare(doc *Document) error {
	for _, ld := range doc.Libraries {
		if ld.Name == "" {
			return fmt.Errorf("library without a name")
		}
		lib := u.AddLibrary(ld.Name)
		if err := declareMembers(lib.TopLevel, ld.Fields, ld.Functions); err != nil {
			return fmt.Errorf("library %s: %w", ld.Name, err)
		}
		for _, cd := range ld.Classes {
			if cd.Name == "" {
				return fmt.Errorf("library %s: class without a name", ld.Name)
			}
			if lib.LookupClass(cd.Name) != nil {
				return fmt.Errorf("library %s: duplicate class %s", ld.Name, cd.Name)
			}
			cls := u.AddClass(lib, cd.Name)
			cls.Abstract = cd.Abstract
			cls.TypeParameters = cd.TypeParameters
			if err := declareMembers(cls, cd.Fields, cd.Functions); err != nil {
				return fmt.Errorf("library %s: class %s: %w", ld.Name, cd.Name, err)
			}
		}
	}
	return nil
}

func declareMembers(cls *Class, fields []FieldDoc, functions []FunctionDoc) error {
	for _, fd := range fields {
		if cls.LookupField(fd.Name) != nil {
			return fmt.Errorf("duplicate field %s", fd.Name)
		}
		// Top-level fields are always static.
		cls.AddField(fd.Name, fd.Static || cls.Name == "")
	}
	for _, fd := range functions {
		if cls.LookupFunction(fd.Name) != nil {
			return fmt.Errorf("duplicate function %s", fd.Name)
		}
		kind := RegularFunction
		if fd.Kind != "" {
			k, ok := ParseFunctionKind(fd.Kind)
			if !ok {
				return fmt.Errorf("function %s: unknown kind %s", fd.Name, fd.Kind)
			}
			kind = k
		}
		fn := cls.AddFunction(fd.Name, kind, fd.Params)
		fn.TypeParameters = fd.TypeParameters
		if fd.ImplicitClosure {
			fn.EnableImplicitClosure()
		}
	}
	return nil
}
