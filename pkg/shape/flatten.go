package shape

// Flatten normalizes s bottom-up. Nested unions are unpacked to any depth,
// duplicate alternatives are removed, the remaining alternatives are sorted
// by canonical key, and a union left with a single member collapses to it.
// Object key sets are unchanged.
func Flatten(s *Shape) *Shape {
	switch s.Kind() {
	case KindObject:
		fields := make([]Field, len(s.fields))
		for i, f := range s.fields {
			fields[i] = Field{Name: f.Name, Shape: Flatten(f.Shape)}
		}
		return &Shape{kind: KindObject, fields: fields}

	case KindList:
		return List(Flatten(s.elem))

	case KindUnion:
		alts := dedupe(flattenAlternatives(nil, s))
		switch len(alts) {
		case 0:
			return Empty()
		case 1:
			return alts[0]
		default:
			return sortedUnion(alts)
		}

	default:
		return orEmpty(s)
	}
}

// flattenAlternatives appends the flattened, union-free members of u to dst.
// Empty members carry no information and are dropped.
func flattenAlternatives(dst []*Shape, u *Shape) []*Shape {
	for _, a := range u.alts {
		f := Flatten(a)
		switch f.Kind() {
		case KindUnion:
			dst = append(dst, f.alts...)
		case KindEmpty:
		default:
			dst = append(dst, f)
		}
	}
	return dst
}
