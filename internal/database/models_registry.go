package database

import "inkwell/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.ShareEvent{},
		&models.ChatMessage{},
		&models.ChatPresence{},
		&models.Subscriber{},
	}
}
