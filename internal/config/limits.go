package config

const (
	// MaxItemNameLength is the maximum length for stage and option names.
	// Fits in PostgreSQL VARCHAR(255).
	MaxItemNameLength = 255

	// MaxItemDescLength is the maximum length for item descriptions.
	MaxItemDescLength = 2000

	// MaxChildrenPerItem caps the children created with a single top-level insert.
	MaxChildrenPerItem = 100
)
