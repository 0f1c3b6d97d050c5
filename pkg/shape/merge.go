package shape

import "sort"

// Merge combines two shapes observed at the same field position into one
// shape describing both. A nil side is treated as absent.
//
// The cases are applied in priority order:
//  1. Object with Object merges field by field over the union of keys.
//  2. Object with anything non-empty becomes a two-member union.
//  3. List with List merges the element shapes.
//  4. List with anything non-empty folds the other side into the element shape.
//  5. Empty on either side yields the other side.
//  6. Two scalars yield the scalar when equal, otherwise a union.
//  7. A union on either side yields a union of all distinct alternatives.
//
// The result may contain nested or duplicate union members in positions that
// were produced by case 2; Flatten normalizes them.
func Merge(a, b *Shape) *Shape {
	a, b = orEmpty(a), orEmpty(b)
	ak, bk := a.Kind(), b.Kind()

	switch {
	case ak == KindObject && bk == KindObject:
		return mergeObjects(a, b)

	case ak == KindObject:
		if bk == KindEmpty {
			return a
		}
		return Union(a, b)

	case bk == KindObject:
		if ak == KindEmpty {
			return b
		}
		return Union(a, b)

	case ak == KindList && bk == KindList:
		return List(Merge(a.elem, b.elem))

	case ak == KindList:
		if bk == KindEmpty {
			return a
		}
		return List(Merge(a.elem, b))

	case bk == KindList:
		if ak == KindEmpty {
			return b
		}
		return List(Merge(a, b.elem))

	case ak == KindEmpty:
		return b

	case bk == KindEmpty:
		return a

	case ak == KindScalar && bk == KindScalar:
		if a.name == b.name {
			return a
		}
		return sortedUnion([]*Shape{a, b})

	default:
		return mergeUnions(a, b)
	}
}

func mergeObjects(a, b *Shape) *Shape {
	fields := make([]Field, 0, len(a.fields)+len(b.fields))
	index := make(map[string]int, len(a.fields)+len(b.fields))
	for _, f := range a.fields {
		index[f.Name] = len(fields)
		fields = append(fields, f)
	}
	for _, f := range b.fields {
		if i, ok := index[f.Name]; ok {
			fields[i] = Field{Name: f.Name, Shape: Merge(fields[i].Shape, f.Shape)}
			continue
		}
		index[f.Name] = len(fields)
		fields = append(fields, f)
	}
	return &Shape{kind: KindObject, fields: fields}
}

// mergeUnions unpacks the union side(s) one level and deduplicates the
// combined alternatives.
func mergeUnions(a, b *Shape) *Shape {
	alts := make([]*Shape, 0, len(a.alts)+len(b.alts)+2)
	alts = appendAlternatives(alts, a)
	alts = appendAlternatives(alts, b)
	alts = dedupe(alts)
	if len(alts) == 1 {
		return alts[0]
	}
	return sortedUnion(alts)
}

func appendAlternatives(dst []*Shape, s *Shape) []*Shape {
	if s.Kind() == KindUnion {
		return append(dst, s.alts...)
	}
	return append(dst, s)
}

// dedupe removes structurally equal shapes, keeping the first occurrence.
func dedupe(alts []*Shape) []*Shape {
	seen := make(map[string]struct{}, len(alts))
	out := alts[:0:0]
	for _, a := range alts {
		k := a.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

func sortedUnion(alts []*Shape) *Shape {
	keys := make([]string, len(alts))
	for i, a := range alts {
		keys[i] = a.Key()
	}
	sort.Sort(byKey{alts: alts, keys: keys})
	return &Shape{kind: KindUnion, alts: alts}
}

type byKey struct {
	alts []*Shape
	keys []string
}

func (s byKey) Len() int           { return len(s.alts) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.alts[i], s.alts[j] = s.alts[j], s.alts[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}
