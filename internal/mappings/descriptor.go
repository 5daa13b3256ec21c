package mappings

import "strings"

// RemapDescriptor rewrites every class reference (Lname;) in a JVM descriptor
// through lookup. References lookup does not know are kept as-is.
func RemapDescriptor(desc string, lookup func(string) (string, bool)) string {
	if desc == "" || strings.IndexByte(desc, 'L') < 0 {
		return desc
	}

	var b strings.Builder
	b.Grow(len(desc))
	for i := 0; i < len(desc); i++ {
		ch := desc[i]
		if ch != 'L' {
			b.WriteByte(ch)
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			// unterminated reference, copy the rest untouched
			b.WriteString(desc[i:])
			break
		}
		name := desc[i+1 : i+end]
		if mapped, ok := lookup(name); ok {
			name = mapped
		}
		b.WriteByte('L')
		b.WriteString(name)
		b.WriteByte(';')
		i += end
	}
	return b.String()
}

// MapLookup adapts a map for RemapDescriptor.
func MapLookup(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

var primitiveDescriptors = map[string]string{
	"boolean": "Z",
	"char":    "C",
	"byte":    "B",
	"short":   "S",
	"int":     "I",
	"float":   "F",
	"long":    "J",
	"double":  "D",
	"void":    "V",
}

// TypeToDescriptor converts a Java source type ("int[]", "a.b.C") to its
// descriptor form ("[I", "La/b/C;").
func TypeToDescriptor(javaType string) string {
	javaType = strings.TrimSpace(javaType)
	dims := 0
	for strings.HasSuffix(javaType, "[]") {
		dims++
		javaType = javaType[:len(javaType)-2]
	}
	prefix := strings.Repeat("[", dims)
	if p, ok := primitiveDescriptors[javaType]; ok {
		return prefix + p
	}
	return prefix + "L" + strings.ReplaceAll(javaType, ".", "/") + ";"
}

// IsFieldDescriptor reports whether s is exactly one well-formed field type.
func IsFieldDescriptor(s string) bool {
	n := scanFieldType(s, 0)
	return n > 0 && n == len(s)
}

// IsMethodDescriptor reports whether s is a well-formed "(args)ret" descriptor.
func IsMethodDescriptor(s string) bool {
	if len(s) < 3 || s[0] != '(' {
		return false
	}
	i := 1
	for i < len(s) && s[i] != ')' {
		n := scanFieldType(s, i)
		if n < 0 {
			return false
		}
		i = n
	}
	if i >= len(s) {
		return false
	}
	i++
	if i == len(s)-1 && s[i] == 'V' {
		return true
	}
	return scanFieldType(s, i) == len(s)
}

// scanFieldType returns the index after the field type starting at i, or -1.
func scanFieldType(s string, i int) int {
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return -1
	}
	switch s[i] {
	case 'Z', 'C', 'B', 'S', 'I', 'F', 'J', 'D':
		return i + 1
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end <= 1 {
			return -1
		}
		return i + end + 1
	}
	return -1
}
