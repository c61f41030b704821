//go:build ignore

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyunwoolee/subsidy-backend/config"
	"github.com/hyunwoolee/subsidy-backend/database"
	"github.com/hyunwoolee/subsidy-backend/services"
)

func main() {
	fmt.Printf("🏥 Subsidy Sync Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	cfg := config.LoadConfig()

	healthScore := 0
	totalTests := 3

	// Test 1: gov24 catalog API
	fmt.Print("📡 gov24 Catalog API: ")
	client := services.NewGov24Client(cfg.SubsidyAPIKey)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if page, err := client.FetchServiceListPage(ctx, 1, 10); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Printf("✅ OK (%d services in catalog)\n", page.TotalCount)
		healthScore++
	}
	cancel()

	// Test 2: Database
	fmt.Print("🗄️  Database: ")
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Println("✅ OK")
		healthScore++
		database.Close()
	}

	// Test 3: Database data
	fmt.Print("📊 Database Data: ")
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		subsidyService := services.NewSubsidyService(database.DB)
		ctx := context.Background()
		if active, err := subsidyService.CountActive(ctx, services.TodayMidnight()); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d active subsidies)\n", active)
			healthScore++
		}
		database.Close()
	}

	// Overall health
	fmt.Println(strings.Repeat("-", 50))
	healthPercent := float64(healthScore) / float64(totalTests) * 100

	if healthScore == totalTests {
		fmt.Printf("🎉 SYSTEM HEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else if healthScore >= totalTests/2 {
		fmt.Printf("⚠️  SYSTEM DEGRADED: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else {
		fmt.Printf("❌ SYSTEM UNHEALTHY: %d/%d tests passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	}

	fmt.Printf("⏰ Check completed at: %s\n", time.Now().Format("15:04:05"))
}
