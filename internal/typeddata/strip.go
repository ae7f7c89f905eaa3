package typeddata

// Strip returns a copy of v with every object field named in keys removed at
// any depth. The order of the remaining fields is unchanged.
func (v Value) Strip(keys ...string) Value {
	if len(keys) == 0 {
		return v
	}
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	return v.strip(drop)
}

func (v Value) strip(drop map[string]struct{}) Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = item.strip(drop)
		}
		return Value{kind: KindArray, items: items}
	case KindObject:
		fields := make([]Field, 0, len(v.fields))
		for _, f := range v.fields {
			if _, ok := drop[f.Name]; ok {
				continue
			}
			fields = append(fields, Field{Name: f.Name, Value: f.Value.strip(drop)})
		}
		return Value{kind: KindObject, fields: fields}
	default:
		return v
	}
}

// HasKey reports whether an object field named key exists at any depth
func (v Value) HasKey(key string) bool {
	switch v.kind {
	case KindArray:
		for _, item := range v.items {
			if item.HasKey(key) {
				return true
			}
		}
	case KindObject:
		for _, f := range v.fields {
			if f.Name == key || f.Value.HasKey(key) {
				return true
			}
		}
	}
	return false
}
