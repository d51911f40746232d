package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/atelier-backend/config"
	"github.com/ikkim/atelier-backend/internal/app/repository"
	"github.com/ikkim/atelier-backend/internal/db"
	"github.com/ikkim/atelier-backend/pkg/util"
)

func main() {
	assumeYes := flag.Bool("yes", false, "skip the confirmation prompt")
	batchSize := flag.Int("batch", 500, "rows per insert batch")
	adminEmail := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "create or promote this admin account")
	adminName := flag.String("admin-name", getEnv("ADMIN_NAME", "Studio"), "display name for a new admin")
	adminPassword := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "password for a new admin")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/seed [flags] [catalog.xlsx]")
		flag.PrintDefaults()
	}
	flag.Parse()

	filePath := flag.Arg(0)
	if filePath == "" && *adminEmail == "" {
		flag.Usage()
		os.Exit(2)
	}

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if *adminEmail != "" {
		if err := seedAdmin(*adminEmail, *adminName, *adminPassword); err != nil {
			log.Fatal("Failed to seed admin:", err)
		}
	}

	if filePath == "" {
		return
	}

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	catalog, err := readCatalogFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	for _, skipped := range catalog.Skipped {
		fmt.Printf("Skipping row %d: %s\n", skipped.Line, skipped.Reason)
	}
	fmt.Printf("Total products to import: %d (skipped %d)\n", len(catalog.Products), len(catalog.Skipped))
	if len(catalog.Products) == 0 {
		return
	}

	// 사용자 확인
	if !*assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	// 배치로 저장
	productRepo := repository.NewProductRepository(db.GetDB())
	if err := productRepo.BulkCreate(context.Background(), catalog.Products, *batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(catalog.Products))
}

func seedAdmin(email, name, password string) error {
	var hash string
	if password != "" {
		var err error
		if hash, err = util.HashPassword(password); err != nil {
			return err
		}
	}

	user, err := db.EnsureAdmin(db.GetDB(), email, name, hash)
	if err != nil {
		return err
	}
	fmt.Printf("Admin ready: %s (id %d)\n", user.Email, user.ID)
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
