package entity

// Row is one key/value line of a table: a header, query parameter, form
// field, or variable.
type Row struct {
	Key         string `json:"key" validate:"max=1024"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Active      bool   `json:"active"`

	// Focus marks the cell that has keyboard focus. It is UI state and not
	// part of the content.
	Focus string `json:"focus"`
}

// canonRows returns a copy of rows without focus markers. nil and empty
// tables are the same content.
func canonRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		r.Focus = ""
		out[i] = r
	}
	return out
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
