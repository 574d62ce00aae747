package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/record-catalog/internal/adapter/musicbrainz"
	"github.com/rl1809/record-catalog/internal/adapter/storage"
	"github.com/rl1809/record-catalog/internal/core/domain"
	"github.com/rl1809/record-catalog/internal/core/service"
)

var (
	driver        string
	dsn           string
	initialStock  int
	totalRequests int
)

var rootCmd = &cobra.Command{
	Use:          "stress_test",
	Short:        "Fire concurrent orders at one record and verify it is never oversold",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&driver, "driver", storage.DriverSQLite, "store driver (mysql or sqlite3)")
	rootCmd.Flags().StringVar(&dsn, "dsn", ":memory:", "store DSN")
	rootCmd.Flags().IntVar(&initialStock, "stock", 20, "initial stock of the record")
	rootCmd.Flags().IntVar(&totalRequests, "requests", 50, "concurrent single-unit orders")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := storage.OpenDB(ctx, storage.DBOptions{Driver: driver, DSN: dsn, MaxOpenConns: 50, MaxIdleConns: 25, ConnMaxLifetime: 5 * time.Minute})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.EnsureSchema(ctx, db, driver); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewSQLAdapter(db)
	cache := storage.NewMemoryCache(time.Minute)
	catalog := service.NewCatalogService(store, cache, musicbrainz.NewClient(musicbrainz.Config{}), service.DefaultCacheTTL, service.WithLogger(logger))
	orders := service.NewOrderService(catalog, store, cache, service.WithLogger(logger))

	created, err := catalog.CreateRecord(ctx, domain.CreateRecord{
		Artist:   "Stress",
		Album:    fmt.Sprintf("Run %d", time.Now().UnixNano()),
		Quantity: initialStock,
		Format:   domain.FormatVinyl,
		Category: domain.CategoryRock,
	})
	if err != nil {
		return fmt.Errorf("seed record: %w", err)
	}
	recordID := created.Data.ID

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := orders.PlaceOrder(ctx, domain.PlaceOrder{
				RequestID: fmt.Sprintf("%s-%d", recordID, n),
				RecordID:  recordID,
				Quantity:  1,
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()
	wantSuccess := min(initialStock, totalRequests)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	passed := true
	if success == int32(wantSuccess) && fail == int32(totalRequests-wantSuccess) {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d failed\n", success, fail)
	} else {
		passed = false
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			wantSuccess, totalRequests-wantSuccess, success, fail)
	}

	// Verify final stock in the store
	final, err := catalog.GetRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("read final stock: %w", err)
	}
	fmt.Printf("Final Stock: %d\n", final.Data.Quantity)

	if final.Data.Quantity == initialStock-wantSuccess {
		fmt.Printf("PASS: Stock is %d\n", final.Data.Quantity)
	} else {
		passed = false
		fmt.Printf("FAIL: Expected stock %d, got %d\n", initialStock-wantSuccess, final.Data.Quantity)
	}

	if !passed {
		return fmt.Errorf("oversell check failed")
	}
	return nil
}
