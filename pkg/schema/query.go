package schema

import "net/url"

// ParseQuery builds the data map for a query schema from raw query values.
//
// Fields declared in the schema are coerced into their scalar type; slice fields
// collect every occurrence of the parameter. A value that fails to parse is kept
// as the raw string so that Validate reports the field. Parameters not declared
// in the schema are passed through as strings.
func ParseQuery(s Schema, values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, raw := range values {
		if len(raw) == 0 {
			continue
		}
		t, declared := s[key]
		if !declared {
			out[key] = raw[0]
			continue
		}
		out[key] = coerce(t, raw)
	}
	return out
}

func coerce(t Type, raw []string) any {
	if o, ok := t.(*OptionalType); ok {
		t = o.Inner()
	}
	if sl, ok := t.(*SliceType); ok {
		items := make([]any, 0, len(raw))
		for _, r := range raw {
			items = append(items, coerceOne(sl.Elem(), r))
		}
		return items
	}
	return coerceOne(t, raw[0])
}

func coerceOne(t Type, raw string) any {
	p, ok := t.(StringParser)
	if !ok {
		return raw
	}
	v, err := p.ParseString(raw)
	if err != nil {
		return raw
	}
	return v
}
