// Package main seeds the database with a demo movement ledger.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"stockval/internal/core/id"
	"stockval/internal/core/types"
	"stockval/internal/domain/auth"
	"stockval/internal/infrastructure/storage/postgres"
	"stockval/internal/infrastructure/storage/postgres/movement_repo"
	"stockval/pkg/logger"
)

var (
	demoProductFIFO = id.MustParse("0190f3c2-0000-7000-8000-00000000000a")
	demoProductLate = id.MustParse("0190f3c2-0000-7000-8000-00000000000b")
	demoClient      = id.MustParse("0190f3c2-0000-7000-8000-0000000000c1")
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	txm := postgres.NewTxManager(pool)
	repo := movement_repo.NewMovementRepo(txm)

	ledgers := map[id.ID][]movement_repo.NewMovement{
		demoProductFIFO: demoLedgerFIFO(),
		demoProductLate: demoLedgerLateEntry(),
	}

	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for productID, ledger := range ledgers {
			removed, err := repo.DeleteByProduct(ctx, productID)
			if err != nil {
				return err
			}
			inserted, err := repo.Append(ctx, ledger)
			if err != nil {
				return err
			}
			log.Infow("demo ledger seeded",
				"product_id", productID,
				"removed", removed,
				"inserted", inserted,
			)
		}
		return nil
	})
	if err != nil {
		log.Fatalw("failed to seed demo ledgers", "error", err)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwt := auth.NewJWTService(auth.DefaultJWTConfig(secret))
		token, expiresAt, err := jwt.GenerateAccessToken("seed", "dev@stockval.local", []string{"analyst"})
		if err != nil {
			log.Fatalw("failed to issue development token", "error", err)
		}
		fmt.Printf("Development token (expires %s):\n%s\n", expiresAt.Format("15:04:05"), token)
	}

	log.Info("seeding completed successfully")
}

func money(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

// demoLedgerFIFO draws one exit across two cost layers, with entry and exit
// spellings as they arrive from the upstream forms.
func demoLedgerFIFO() []movement_repo.NewMovement {
	client := demoClient
	return []movement_repo.NewMovement{
		{ProductID: demoProductFIFO, Date: "2024-01-01", Kind: "Entrada", Quantity: types.MustMoney("10"), UnitPrice: money("100")},
		{ProductID: demoProductFIFO, Date: "05/01/2024", Kind: "compra", Quantity: types.MustMoney("5"), UnitPrice: money("120")},
		{ProductID: demoProductFIFO, ClientID: &client, Date: "2024-01-10", Kind: "Saída", Quantity: types.MustMoney("12"), UnitPrice: money("150")},
		{ProductID: demoProductFIFO, Date: "2024-01-10", Kind: "ajuste", Quantity: types.MustMoney("1")},
	}
}

// demoLedgerLateEntry sells before any stock is recorded; the shortage is priced
// from the next entry.
func demoLedgerLateEntry() []movement_repo.NewMovement {
	client := demoClient
	return []movement_repo.NewMovement{
		{ProductID: demoProductLate, ClientID: &client, Date: "2024-01-01", Kind: "venda", Quantity: types.MustMoney("5"), Amount: money("1500")},
		{ProductID: demoProductLate, Date: "2024-02-01", Kind: "purchase", Quantity: types.MustMoney("5"), UnitPrice: money("200")},
	}
}
