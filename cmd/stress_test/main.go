package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-allocation/internal/adapter/storage"
	"github.com/rl1809/cart-allocation/internal/core/domain"
	"github.com/rl1809/cart-allocation/internal/core/service"
	"github.com/rl1809/cart-allocation/internal/logging"
)

func main() {
	driver := flag.String("driver", "sqlite", "database driver: sqlite, mysql or postgres")
	dsn := flag.String("dsn", "", "database DSN, a temp SQLite file when empty")
	pickerCount := flag.Int("pickers", 10, "concurrent pickers")
	shipmentCount := flag.Int("shipments", 50, "shipments to claim")
	rows := flag.Int("rows", 2, "cart rows")
	columns := flag.Int("columns", 2, "cart columns")
	flag.Parse()

	ctx := context.Background()
	logger := logging.Setup("warn", "text")

	if *dsn == "" {
		dir, err := os.MkdirTemp("", "cartpick-stress")
		if err != nil {
			log.Fatalf("failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		*dsn = filepath.Join(dir, "stress.db")
	}

	db, dialect, err := storage.Open(ctx, storage.Options{Driver: *driver, DSN: *dsn, MaxOpenConns: 50, Migrate: true})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	store := storage.NewSQLAdapter(db, dialect)
	run := uuid.NewString()[:8]

	// Seed master data
	uom, err := store.CreateUOM(ctx, "Units", 0)
	if err != nil {
		log.Fatalf("failed to seed uom: %v", err)
	}
	product, err := store.CreateProduct(ctx, domain.Product{Name: "Stress item", Code: "STRESS-" + run, UOM: uom})
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}
	location, err := store.CreateLocation(ctx, domain.Location{Name: "STRESS-" + run}, 0)
	if err != nil {
		log.Fatalf("failed to seed location: %v", err)
	}

	pickerIDs := make([]int64, 0, *pickerCount)
	for i := 0; i < *pickerCount; i++ {
		cart, err := store.CreateCart(ctx, domain.Cart{Name: fmt.Sprintf("cart-%s-%d", run, i), Rows: *rows, Columns: *columns, Active: true})
		if err != nil {
			log.Fatalf("failed to seed cart: %v", err)
		}
		picker, err := store.CreatePicker(ctx, fmt.Sprintf("picker-%s-%d", run, i), &cart.ID)
		if err != nil {
			log.Fatalf("failed to seed picker: %v", err)
		}
		pickerIDs = append(pickerIDs, picker.ID)
	}

	warehouse := time.Now().UnixNano() % 1_000_000
	planned := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < *shipmentCount; i++ {
		_, err := store.CreateShipment(ctx, domain.Shipment{
			Code:        fmt.Sprintf("%s-%04d", run, i),
			PlannedDate: planned.Add(time.Duration(i) * time.Second),
			WarehouseID: warehouse,
			Moves: []domain.Move{{
				Product:      product,
				Quantity:     decimal.NewFromInt(1),
				FromLocation: location,
			}},
		}, nil)
		if err != nil {
			log.Fatalf("failed to seed shipment: %v", err)
		}
	}

	alloc := service.NewAllocator(store, store, store, service.NewAggregator(store, store),
		service.WithRetryDelay(5*time.Millisecond),
		service.WithMaxRetries(1000),
		service.WithWarehouse(warehouse),
		service.WithLogger(logger),
	)

	// Counters
	var claimedCount atomic.Int32
	var failCount atomic.Int32

	var (
		mu     sync.Mutex
		owners = make(map[int64][]int64)
	)

	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range pickerIDs {
		wg.Add(1)
		go func(pickerID int64) {
			defer wg.Done()

			entries, err := alloc.Claim(ctx, pickerID, service.ClaimRequest{})
			if err != nil {
				log.Printf("picker %d: claim failed: %v", pickerID, err)
				failCount.Add(1)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for _, e := range entries {
				for _, s := range e.Shipments {
					owners[s.ShipmentID] = append(owners[s.ShipmentID], pickerID)
					claimedCount.Add(1)
				}
			}
		}(id)
	}

	wg.Wait()
	elapsed := time.Since(start)

	capacity := *rows * *columns
	expected := min(*shipmentCount, capacity * *pickerCount)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", dialect.Name)
	fmt.Printf("Pickers:          %d (capacity %d)\n", *pickerCount, capacity)
	fmt.Printf("Shipments:        %d\n", *shipmentCount)
	fmt.Printf("Claimed:          %d\n", claimedCount.Load())
	fmt.Printf("Failed claims:    %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	shared := 0
	for shipmentID, pickers := range owners {
		if len(pickers) > 1 {
			shared++
			fmt.Printf("FAIL: shipment %d claimed by %v\n", shipmentID, pickers)
		}
	}
	if shared == 0 {
		fmt.Println("PASS: no shipment claimed twice")
	}

	if int(claimedCount.Load()) == expected {
		fmt.Printf("PASS: %d shipments claimed\n", expected)
	} else {
		fmt.Printf("FAIL: Expected %d claimed, got %d\n", expected, claimedCount.Load())
	}
}
