package store

// Chunks calls fn with consecutive slices of rows holding at most size
// elements each. A size of zero or less passes all rows at once.
func Chunks[T any](rows []T, size int, fn func(chunk []T) error) error {
	if size <= 0 {
		size = len(rows)
	}
	for start := 0; start < len(rows); start += size {
		if err := fn(rows[start:min(start+size, len(rows))]); err != nil {
			return err
		}
	}
	return nil
}

// WithStoreID prefixes every row with the owning store's id, producing the
// column order of the snapshot tables.
func WithStoreID(storeID any, rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any{storeID}, r...)
	}
	return out
}
