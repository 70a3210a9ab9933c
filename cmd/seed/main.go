package main

import (
	"time"

	"github.com/nairamart-next/internal/config"
	"github.com/nairamart-next/internal/constants"
	"github.com/nairamart-next/internal/logger"
	"github.com/nairamart-next/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// 开发环境演示数据：默认管理员、两个演示用户及其钱包账户。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	demoUsers := []struct {
		Email       string
		DisplayName string
		PhoneNumber string
	}{
		{Email: "ada@example.com", DisplayName: "Ada", PhoneNumber: "+2348012340001"},
		{Email: "emeka@example.com", DisplayName: "Emeka", PhoneNumber: "+2348012340002"},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash demo password: %v", err)
	}

	for _, demo := range demoUsers {
		var existing models.User
		if err := models.DB.Where("email = ?", demo.Email).First(&existing).Error; err == nil {
			stdLog.Printf("User already exists: %s", demo.Email)
			continue
		}

		now := time.Now()
		user := models.User{
			Email:        demo.Email,
			PasswordHash: string(hash),
			DisplayName:  demo.DisplayName,
			PhoneNumber:  demo.PhoneNumber,
			Status:       constants.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("Failed to create user %s: %v", demo.Email, err)
			continue
		}

		account := models.WalletAccount{
			UserID:    user.ID,
			Currency:  constants.SiteCurrencyDefault,
			Balance:   models.NewMoneyFromMinorUnits(0),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := models.DB.Create(&account).Error; err != nil {
			stdLog.Printf("Failed to create wallet account for %s: %v", demo.Email, err)
			continue
		}
		stdLog.Printf("Created user %s with empty %s wallet", demo.Email, account.Currency)
	}

	stdLog.Printf("Seed finished")
}
