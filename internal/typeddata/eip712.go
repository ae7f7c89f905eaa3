package typeddata

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DomainTypeName is the reserved name of the domain separator struct
const DomainTypeName = "EIP712Domain"

// TypeField is one member of a struct type
type TypeField struct {
	Name string
	Type string
}

// Types is the parsed "types" section: struct names in received order and
// their ordered members
type Types struct {
	names  []string
	fields map[string][]TypeField
}

var arraySuffix = regexp.MustCompile(`(\[\d*\])+$`)

// ParseTypes reads a types object of the form {"Name": [{"name", "type"}...]}
func ParseTypes(v Value) (Types, error) {
	if v.Kind() != KindObject {
		return Types{}, fmt.Errorf("types must be an object, got %s", v.Kind())
	}
	t := Types{fields: make(map[string][]TypeField, v.Len())}
	for _, entry := range v.fields {
		if entry.Value.Kind() != KindArray {
			return Types{}, fmt.Errorf("type %q must be an array of fields", entry.Name)
		}
		members := make([]TypeField, 0, entry.Value.Len())
		for i, item := range entry.Value.items {
			if item.Kind() != KindObject || item.Len() != 2 {
				return Types{}, fmt.Errorf("field %d of type %q must be {name, type}", i, entry.Name)
			}
			name, okName := item.Get("name")
			typ, okType := item.Get("type")
			nameStr, isStrName := name.Str()
			typStr, isStrType := typ.Str()
			if !okName || !okType || !isStrName || !isStrType || nameStr == "" || typStr == "" {
				return Types{}, fmt.Errorf("field %d of type %q must be {name, type}", i, entry.Name)
			}
			members = append(members, TypeField{Name: nameStr, Type: typStr})
		}
		t.names = append(t.names, entry.Name)
		t.fields[entry.Name] = members
	}
	return t, nil
}

// Names returns the struct names in received order
func (t Types) Names() []string {
	return append([]string{}, t.names...)
}

// Fields returns the members of struct name
func (t Types) Fields(name string) ([]TypeField, bool) {
	f, ok := t.fields[name]
	return append([]TypeField{}, f...), ok
}

// MemberNames returns every member name declared by any struct
func (t Types) MemberNames() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range t.names {
		for _, f := range t.fields[name] {
			if _, ok := seen[f.Name]; !ok {
				seen[f.Name] = struct{}{}
				out = append(out, f.Name)
			}
		}
	}
	return out
}

// baseType strips array suffixes: "Foo[2][]" -> "Foo"
func baseType(typ string) string {
	return arraySuffix.ReplaceAllString(typ, "")
}

// PrimaryType returns the only struct not referenced by any other struct,
// ignoring the domain struct
func (t Types) PrimaryType() (string, error) {
	referenced := make(map[string]struct{})
	for _, name := range t.names {
		for _, f := range t.fields[name] {
			if base := baseType(f.Type); base != name {
				referenced[base] = struct{}{}
			}
		}
	}
	var candidates []string
	for _, name := range t.names {
		if name == DomainTypeName {
			continue
		}
		if _, ok := referenced[name]; !ok {
			candidates = append(candidates, name)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", fmt.Errorf("no primary type found")
	default:
		sort.Strings(candidates)
		return "", fmt.Errorf("ambiguous primary type: %s", strings.Join(candidates, ", "))
	}
}

// CheckValue verifies that value carries exactly the members declared by
// struct typeName, recursively through nested structs and arrays of structs
func (t Types) CheckValue(typeName string, value Value) error {
	return t.checkStruct(typeName, value, typeName)
}

func (t Types) checkStruct(typeName string, value Value, path string) error {
	members, ok := t.fields[typeName]
	if !ok {
		return fmt.Errorf("%s: unknown type %q", path, typeName)
	}
	if value.Kind() != KindObject {
		return fmt.Errorf("%s: expected object, got %s", path, value.Kind())
	}
	declared := make(map[string]struct{}, len(members))
	for _, m := range members {
		declared[m.Name] = struct{}{}
		field, ok := value.Get(m.Name)
		if !ok {
			return fmt.Errorf("%s: missing field %q", path, m.Name)
		}
		if err := t.checkMember(m.Type, field, path+"."+m.Name); err != nil {
			return err
		}
	}
	for _, name := range value.Keys() {
		if _, ok := declared[name]; !ok {
			return fmt.Errorf("%s: undeclared field %q", path, name)
		}
	}
	return nil
}

func (t Types) checkMember(typ string, value Value, path string) error {
	if strings.HasSuffix(typ, "]") {
		if value.Kind() != KindArray {
			return fmt.Errorf("%s: expected array, got %s", path, value.Kind())
		}
		elem := typ[:strings.LastIndex(typ, "[")]
		for i, item := range value.items {
			if err := t.checkMember(elem, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if _, isStruct := t.fields[typ]; isStruct {
		return t.checkStruct(typ, value, path)
	}
	if value.Kind() == KindObject || value.Kind() == KindArray || value.Kind() == KindNull {
		return fmt.Errorf("%s: expected %s, got %s", path, typ, value.Kind())
	}
	return nil
}

// canonical order and types of the domain separator members
var domainMembers = []TypeField{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
	{Name: "salt", Type: "bytes32"},
}

// DomainFields derives the domain struct members from the keys present in
// domain, in canonical order. Unknown keys are an error.
func DomainFields(domain Value) ([]TypeField, error) {
	if domain.Kind() != KindObject {
		return nil, fmt.Errorf("domain must be an object, got %s", domain.Kind())
	}
	known := make(map[string]struct{}, len(domainMembers))
	for _, m := range domainMembers {
		known[m.Name] = struct{}{}
	}
	for _, key := range domain.Keys() {
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("unknown domain field %q", key)
		}
	}
	var out []TypeField
	for _, m := range domainMembers {
		if v, ok := domain.Get(m.Name); ok && !v.IsNull() {
			out = append(out, m)
		}
	}
	return out, nil
}

// Envelope assembles the eth_signTypedData_v4 document. The domain struct is
// derived from the domain when types does not declare it.
func Envelope(domain, types, value Value) (Value, error) {
	parsed, err := ParseTypes(types)
	if err != nil {
		return Value{}, err
	}
	primary, err := parsed.PrimaryType()
	if err != nil {
		return Value{}, err
	}

	allTypes := types
	if _, ok := types.Get(DomainTypeName); !ok {
		members, err := DomainFields(domain)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, len(members))
		for i, m := range members {
			items[i] = Object(F("name", String(m.Name)), F("type", String(m.Type)))
		}
		allTypes = Object(append([]Field{F(DomainTypeName, Array(items...))}, types.fields...)...)
	}

	return Object(
		F("types", allTypes),
		F("primaryType", String(primary)),
		F("domain", domain),
		F("message", value),
	), nil
}
