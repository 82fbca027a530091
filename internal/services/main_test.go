package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/glovia/internal/database"
	"github.com/example/glovia/internal/models"
)

var testDelivery = DeliveryConfig{
	FreeThreshold: 2000,
	ZoneDistricts: []string{"Kathmandu", "Lalitpur", "Bhaktapur"},
	ZoneCharge:    100,
	OutsideCharge: 150,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection so every query sees the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	phone := fmt.Sprintf("98%08d", uuid.New().ID()%100000000)
	user := models.User{
		Email:     fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		Phone:     &phone,
		FirstName: "Test",
		LastName:  "User",
		Role:      models.RoleCustomer,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestAddress(t *testing.T, db *gorm.DB, userID uuid.UUID, district string) *models.Address {
	t.Helper()

	address := models.Address{
		UserID:    userID,
		FullName:  "Test User",
		Province:  "Bagmati",
		District:  district,
		Area:      "Test Area",
		IsDefault: true,
	}
	require.NoError(t, db.Create(&address).Error)
	return &address
}

func createTestProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *models.Product {
	t.Helper()

	product := models.Product{
		Name:          name,
		Slug:          fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

// fakeSender records deliveries and answers with a fixed result.
type fakeSender struct {
	ok   bool
	sent []string
}

func (f *fakeSender) Send(destination, message string) bool {
	f.sent = append(f.sent, fmt.Sprintf("%s: %s", destination, message))
	return f.ok
}

func latestChallenge(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.OtpChallenge {
	t.Helper()

	var challenge models.OtpChallenge
	require.NoError(t, db.Where("user_id = ?", userID).
		Order("created_at desc").First(&challenge).Error)
	return &challenge
}
