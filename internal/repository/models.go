package repository

// Models lists the gorm models owned by this package, in dependency order,
// for AutoMigrate.
func Models() []any {
	return []any{
		&tenantModel{},
		&userModel{},
		&spaceModel{},
		&scheduleModel{},
		&occurrenceModel{},
		&notificationModel{},
	}
}
