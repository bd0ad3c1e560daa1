package port

// RecordValidator checks a synchronized record payload against server-side invariants.
type RecordValidator interface {
	Validate(tableName string, data map[string]any) error
}
