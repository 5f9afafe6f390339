package database

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
)

// SeedInitialData creates the bootstrap admin and, when requested, a demo
// catalog with customers and orders. It is idempotent.
func SeedInitialData(db *gorm.DB, cfg config.SeedConfig) error {
	logrus.Info("Seeding initial data...")

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := seedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	if cfg.Demo {
		if err := WithTransaction(db, seedDemo); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

func seedAdmin(db *gorm.DB, email, password string) error {
	var adminCount int64
	if err := db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if adminCount > 0 {
		return nil
	}

	now := time.Now()
	admin := &models.User{
		Name:            "Administrator",
		Email:           email,
		Role:            models.UserRoleAdmin,
		EmailVerifiedAt: &now,
	}
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("failed to set admin password: %w", err)
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logrus.WithField("email", admin.Email).Info("Default admin user created")
	return nil
}

var demoCategories = []string{"Kitchen", "Garden", "Books", "Toys", "Outdoors"}

var demoNouns = []string{"Kettle", "Lamp", "Notebook", "Chair", "Backpack", "Mug", "Planter", "Puzzle", "Blanket", "Clock"}

func seedDemo(tx *gorm.DB) error {
	var productCount int64
	if err := tx.Model(&models.Product{}).Count(&productCount).Error; err != nil {
		return err
	}
	if productCount > 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	categories := make([]models.Category, 0, len(demoCategories))
	for _, name := range demoCategories {
		categories = append(categories, models.Category{
			Name:        name,
			Slug:        strings.ToLower(name),
			Description: name + " essentials",
		})
	}
	if err := tx.Create(&categories).Error; err != nil {
		return err
	}

	products := make([]models.Product, 0, 20)
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("%s %d", demoNouns[i%len(demoNouns)], i+1)
		products = append(products, models.Product{
			Name:        name,
			Slug:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
			Description: "Demo product " + name,
			IsPublished: rng.Intn(4) != 0,
			Quantity:    uint(rng.Intn(30)),
			Price:       decimal.New(int64(100+rng.Intn(9900)), -2),
		})
	}
	if err := tx.Create(&products).Error; err != nil {
		return err
	}

	for i := range products {
		n := rng.Intn(4)
		if n == 0 {
			continue
		}
		picked := make([]models.Category, 0, n)
		for _, idx := range rng.Perm(len(categories))[:n] {
			picked = append(picked, categories[idx])
		}
		if err := tx.Model(&products[i]).Association("Categories").Append(picked); err != nil {
			return err
		}
	}

	customers := make([]models.User, 0, 20)
	for i := 0; i < 20; i++ {
		customer := models.User{
			Name:  fmt.Sprintf("Customer %d", i+1),
			Email: fmt.Sprintf("customer%d@example.com", i+1),
			Role:  models.UserRoleCustomer,
		}
		if err := customer.SetPassword(fmt.Sprintf("Customer-%d-pass", i+1)); err != nil {
			return err
		}
		customers = append(customers, customer)
	}
	if err := tx.Create(&customers).Error; err != nil {
		return err
	}

	for i := 0; i < 50; i++ {
		if err := seedDemoOrder(tx, rng, customers[rng.Intn(len(customers))].ID, products); err != nil {
			return err
		}
	}

	return nil
}

func seedDemoOrder(tx *gorm.DB, rng *rand.Rand, customerID uint, products []models.Product) error {
	order := models.Order{
		CustomerID: customerID,
		Address:    models.Address{StreetAddress: fmt.Sprintf("%d Demo Street", 1+rng.Intn(200)), City: "Springfield"},
	}

	total := decimal.Zero
	items := make([]models.OrderProduct, 0, 3)
	for _, idx := range rng.Perm(len(products))[:1+rng.Intn(3)] {
		p := products[idx]
		if p.Quantity == 0 {
			continue
		}
		quantity := uint(1 + rng.Intn(3))
		if p.Quantity <= 5 {
			quantity = uint(1 + rng.Intn(int(p.Quantity)))
		}
		item := models.OrderProduct{ProductID: p.ID, Quantity: quantity, UnitPrice: p.Price}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}

	order.TotalPrice = total
	if err := tx.Create(&order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	return tx.Create(&items).Error
}
