package database

import "opcdiary/internal/kvstore"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&kvstore.Entry{},
	}
}
