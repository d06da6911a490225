package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/reimagine-business/donna/internal/core/events"
	"github.com/reimagine-business/donna/internal/entry"
	entrypostgres "github.com/reimagine-business/donna/internal/entry/postgres"
	"github.com/reimagine-business/donna/internal/settlement"
	"github.com/reimagine-business/donna/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// demoUserID is a fixed identity for local development; tokens for it can
// be minted with the configured JWT secret.
const demoUserID = "6f1f5f3e-0f60-4b34-9b63-0a6f3f1d2c11"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample entries for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			if err := gormDB.Exec("DELETE FROM entries WHERE user_id = ?", demoUserID).Error; err != nil {
				log.Fatalf("failed to clear demo entries: %v", err)
			}
			fmt.Println("Cleared existing demo entries")
		}

		logger.Init(os.Getenv("APP_ENV"))
		appLogger := logger.LoggerWrapper()

		eventBus := events.NewEventBus(appLogger)
		repo := entrypostgres.NewEntryRepository(gormDB)
		entryService := entry.NewService(repo, eventBus, appLogger)
		settlementService := settlement.NewService(repo, eventBus, appLogger)

		today := time.Now().Truncate(24 * time.Hour)
		lastWeek := today.AddDate(0, 0, -7)

		samples := []entry.CreateEntryDTO{
			{
				EntryType:     string(entry.TypeCashIn),
				Category:      string(entry.CategorySales),
				PaymentMethod: string(entry.MethodCash),
				Amount:        decimal.NewFromInt(350000),
				EntryDate:     today,
				Counterparty:  "Walk-in customer",
				Notes:         "Morning counter sales",
			},
			{
				EntryType:     string(entry.TypeCashOut),
				Category:      string(entry.CategoryCOGS),
				PaymentMethod: string(entry.MethodBank),
				Amount:        decimal.NewFromInt(120000),
				EntryDate:     lastWeek,
				Counterparty:  "Pasar supplier",
				Notes:         "Weekly stock purchase",
			},
			{
				EntryType:     string(entry.TypeCashOut),
				Category:      string(entry.CategoryOpex),
				PaymentMethod: string(entry.MethodCash),
				Amount:        decimal.NewFromInt(45000),
				EntryDate:     today,
				Counterparty:  "PLN",
				Notes:         "Electricity",
			},
			{
				EntryType:     string(entry.TypeCredit),
				Category:      string(entry.CategorySales),
				PaymentMethod: string(entry.MethodNone),
				Amount:        decimal.NewFromInt(1000000),
				EntryDate:     lastWeek,
				Counterparty:  "Warung Bu Sri",
				Notes:         "Wholesale order, net 30",
			},
			{
				EntryType:     string(entry.TypeAdvance),
				Category:      string(entry.CategorySales),
				PaymentMethod: string(entry.MethodBank),
				Amount:        decimal.NewFromInt(500000),
				EntryDate:     today,
				Counterparty:  "Catering client",
				Notes:         "Deposit for next month",
			},
		}

		var creditSaleID string
		for _, dto := range samples {
			created, err := entryService.CreateEntry(demoUserID, dto)
			if err != nil {
				log.Fatalf("failed to seed %s %s entry: %v", dto.EntryType, dto.Category, err)
			}
			if dto.EntryType == string(entry.TypeCredit) {
				creditSaleID = created.ID
			}
			fmt.Printf("Seeded %s %s entry %s\n", dto.EntryType, dto.Category, created.ID)
		}

		// Partially settle the credit sale so the dashboard has an
		// outstanding balance to show.
		record, err := settlementService.Settle(creditSaleID, demoUserID, settlement.SettleDTO{
			Amount:         decimal.NewFromInt(400000),
			SettlementDate: today,
			PaymentMethod:  string(entry.MethodBank),
		})
		if err != nil {
			log.Fatalf("failed to seed settlement: %v", err)
		}
		fmt.Printf("Settled %s of credit sale %s, %s remaining\n",
			record.AmountSettled.String(), creditSaleID, record.RemainingAfter.String())

		fmt.Println("Sample entries seeded successfully for user", demoUserID)
	},
}
