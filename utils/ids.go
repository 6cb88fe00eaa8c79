package utils

// ContainsID reports whether id is present in ids.
func ContainsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// RemoveID returns ids without any occurrence of id. The result never aliases ids.
func RemoveID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// AddID appends id unless already present. The result never aliases ids.
func AddID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	if ContainsID(ids, id) {
		return out
	}
	return append(out, id)
}

// NonNilIDs returns ids, or an empty slice when ids is nil, so JSON renders [] instead of null.
func NonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
