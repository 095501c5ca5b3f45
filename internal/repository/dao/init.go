package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&SaleSchedule{},
		&Ticket{},
		&FuelStock{},
		&FuelMovement{},
	)
}

// dropAllTables is used by the integration tests to start from a clean schema.
func dropAllTables(db *gorm.DB) error {
	var tableNames []string
	if err := db.Table("information_schema.tables").
		Where("table_schema = ?", "public").
		Pluck("table_name", &tableNames).Error; err != nil {
		return err
	}

	for _, tableName := range tableNames {
		if err := db.Exec("DROP TABLE IF EXISTS " + tableName + " CASCADE").Error; err != nil {
			return err
		}
	}

	return nil
}
