package fingerprint

import "sort"

// typeLattice gives the widening order null < bool < int < number < string
// used when two scalar schemas disagree on type.
var typeLattice = map[SchemaType]int{
	TypeNull:   0,
	TypeBool:   1,
	TypeInt:    2,
	TypeNumber: 3,
	TypeString: 4,
}

func widen(a, b SchemaType) SchemaType {
	if a == b {
		return a
	}
	ra, aok := typeLattice[a]
	rb, bok := typeLattice[b]
	if !aok || !bok {
		// One side is a container type (object/array) disagreeing with a
		// scalar; there's no lattice rung for that, so the schema degrades
		// to the most recent type rather than guessing a coercion.
		return b
	}
	if ra > rb {
		return a
	}
	return b
}

// InferFromValue produces a leaf InferredSchema for a single observed
// value, with no join against prior samples.
func InferFromValue(v any) *InferredSchema {
	switch val := v.(type) {
	case nil:
		return &InferredSchema{Type: TypeNull, Nullable: true}
	case bool:
		return &InferredSchema{Type: TypeBool}
	case float64:
		if val == float64(int64(val)) {
			return &InferredSchema{Type: TypeInt}
		}
		return &InferredSchema{Type: TypeNumber}
	case int, int64:
		return &InferredSchema{Type: TypeInt}
	case string:
		return &InferredSchema{Type: TypeString}
	case map[string]any:
		props := make(map[string]*InferredSchema, len(val))
		required := make([]string, 0, len(val))
		for k, pv := range val {
			props[k] = InferFromValue(pv)
			required = append(required, k)
		}
		sort.Strings(required)
		return &InferredSchema{Type: TypeObject, Properties: props, Required: required}
	case []any:
		s := &InferredSchema{Type: TypeArray}
		for _, item := range val {
			itemSchema := InferFromValue(item)
			if s.Items == nil {
				s.Items = itemSchema
			} else {
				s.Items = Join(s.Items, itemSchema)
			}
		}
		return s
	default:
		return &InferredSchema{Type: TypeString}
	}
}

// Join folds two schemas of (possibly differing) type into one: required
// is intersected (present in every sample), properties are unioned,
// items/properties recurse, scalars widen via the lattice, and enum
// collects the union of observed leaf values when the domain is small.
func Join(a, b *InferredSchema) *InferredSchema {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	if a.Type != TypeObject && a.Type != TypeArray && b.Type != TypeObject && b.Type != TypeArray {
		out := &InferredSchema{Type: widen(a.Type, b.Type)}
		out.Nullable = a.Nullable || b.Nullable
		out.Enum, out.enumPoisoned = joinEnum(a, b, out.Type)
		return out
	}

	if a.Type == TypeArray || b.Type == TypeArray {
		out := &InferredSchema{Type: TypeArray, Nullable: a.Nullable || b.Nullable}
		out.Items = Join(a.Items, b.Items)
		return out
	}

	// Both object (or object vs scalar degrading to object's shape).
	out := &InferredSchema{Type: TypeObject, Nullable: a.Nullable || b.Nullable}
	out.Properties = map[string]*InferredSchema{}
	for k, s := range a.Properties {
		out.Properties[k] = s
	}
	for k, s := range b.Properties {
		if existing, ok := out.Properties[k]; ok {
			out.Properties[k] = Join(existing, s)
		} else {
			out.Properties[k] = s
		}
	}

	// required = present in every sample: intersection of a.Required and
	// b.Required restricted to keys present in both property sets.
	bReq := map[string]bool{}
	for _, k := range b.Required {
		bReq[k] = true
	}
	var required []string
	for _, k := range a.Required {
		if bReq[k] {
			required = append(required, k)
		}
	}
	sort.Strings(required)
	out.Required = required

	return out
}

const maxEnumValues = 12

// joinEnum collects the union of observed leaf values when the resulting
// domain has at most maxEnumValues distinct elements; nil past that. Once
// either side is poisoned (its domain overflowed at some earlier point in
// the fold chain), the result stays nil and poisoned regardless of how few
// values this particular pair contributes, so a later sample can't make an
// already-unbounded domain look small again.
func joinEnum(a, b *InferredSchema, resultType SchemaType) ([]any, bool) {
	if a.enumPoisoned || b.enumPoisoned {
		return nil, true
	}
	if resultType != TypeString && resultType != TypeInt && resultType != TypeNumber {
		return nil, false
	}
	seen := map[any]bool{}
	var out []any
	for _, v := range append(append([]any{}, a.Enum...), b.Enum...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	if len(out) > maxEnumValues {
		return nil, true
	}
	return out, false
}

// FoldSchemas joins a sequence of per-sample schemas into one, collecting
// enum candidates along the way (each leaf sample contributes its own
// value as a singleton enum so Join's union/truncation logic applies
// uniformly regardless of how many samples are folded).
func FoldSchemas(samples []any) *InferredSchema {
	var acc *InferredSchema
	for _, s := range samples {
		leaf := InferFromValue(s)
		annotateEnumCandidate(leaf, s)
		acc = Join(acc, leaf)
	}
	return acc
}

// annotateEnumCandidate seeds Enum with the leaf's own value for scalar
// types so the union-based collection in joinEnum has something to fold.
func annotateEnumCandidate(s *InferredSchema, v any) {
	switch s.Type {
	case TypeString, TypeInt, TypeNumber:
		s.Enum = []any{v}
	}
}
