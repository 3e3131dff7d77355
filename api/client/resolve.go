package client

import "strings"

// resolveCandidates tries each candidate base name in order against the
// advertised method set and returns the first live method name that matches.
func resolveCandidates(available []string, candidates ...string) (string, bool) {
	for _, base := range candidates {
		if name, ok := resolveMethod(available, base); ok {
			return name, true
		}
	}
	return "", false
}

// resolveMethod searches the live method set for a logical operation name:
// exact match first, then the capitalized, lowercase, snake_case and
// camelCase variants, then the first substring match. Resolution happens
// once at connect time and is cached on the handle.
func resolveMethod(available []string, base string) (string, bool) {
	variants := []string{
		base,
		capitalize(base),
		strings.ToLower(base),
		camelToSnake(base),
		snakeToCamel(base),
	}
	for _, v := range variants {
		for _, m := range available {
			if m == v {
				return m, true
			}
		}
	}

	want := normalize(base)
	for _, m := range available {
		if strings.Contains(normalize(m), want) {
			return m, true
		}
	}
	return "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// camelToSnake turns addRecord into add_record.
func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// snakeToCamel turns add_record into addRecord.
func snakeToCamel(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			b.WriteRune(r - ('a' - 'A'))
			upper = false
			continue
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}

// normalize lowercases and strips separators for substring comparison.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}
