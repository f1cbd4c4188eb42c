package deref

const nullableKeyword = "nullable"

// NormalizeNullable rewrites a mapping carrying nullable: true into
// {"anyOf": [<mapping without nullable>, {"type": "null"}]}. Anything else is
// returned as is. m is never modified.
func NormalizeNullable(m map[string]any) any {
	if nullable, ok := m[nullableKeyword].(bool); !ok || !nullable {
		return m
	}

	base := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != nullableKeyword {
			base[k] = v
		}
	}
	return map[string]any{
		"anyOf": []any{
			base,
			map[string]any{"type": "null"},
		},
	}
}
