package database

import (
	"betonflow/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Counterparty{},
		&model.ConcreteGrade{},
		&model.Warehouse{},
		&model.Material{},
		&model.Driver{},
		&model.Vehicle{},
		&model.Price{},
		&model.AdditionalService{},
		&model.Order{},
		&model.ExpenseInvoice{},
		&model.Notification{},
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to auto-migrate models")
	}

	return db, nil
}
