package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ilramdhan/farmcalc/config"
	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
	"github.com/ilramdhan/farmcalc/internal/infrastructure/persistence"
	"github.com/ilramdhan/farmcalc/internal/modules/calculator"
	"github.com/ilramdhan/farmcalc/pkg/calculation"
	"github.com/ilramdhan/farmcalc/pkg/database"
)

var (
	syntheticCount = flag.Int("synthetic", 0, "Number of generated calculations for load testing")
	invalidPct     = flag.Int("invalid", 5, "Percentage of generated calculations with a broken formula")
	batchSize      = flag.Int("batch", 5000, "Batch size for COPY operations")
	workerCount    = flag.Int("workers", 10, "Number of parallel workers")
)

func main() {
	flag.Parse()
	godotenv.Load()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║             FARM CALCULATOR - DATA SEEDER                     ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Println()

	log.Printf("Configuration:")
	log.Printf("  Catalogue:       %d calculations", len(sampleCalculations))
	log.Printf("  Synthetic:       %d", *syntheticCount)
	log.Printf("  Invalid:         %d%%", *invalidPct)
	log.Printf("  Batch Size:      %d", *batchSize)
	log.Printf("  Workers:         %d", *workerCount)
	fmt.Println()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	categoryRepo := persistence.NewCategoryRepository(pool)
	calcRepo := persistence.NewCalculationRepository(pool)
	service := calculator.NewService(calcRepo, categoryRepo, persistence.NewCalculationLogRepository(pool), calculator.Options{}, nil)

	overallStart := time.Now()
	var metrics PerformanceMetrics

	// Phase 1: Catalogue
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	phaseStart := time.Now()
	categoryIDs, err := seedCategories(ctx, categoryRepo)
	if err != nil {
		log.Fatalf("Failed to seed categories: %v", err)
	}
	inactive, err := seedCatalogue(ctx, calcRepo, service, categoryIDs)
	if err != nil {
		log.Fatalf("Failed to seed calculations: %v", err)
	}
	metrics.CatalogueTime = time.Since(phaseStart)
	metrics.Inactive = inactive

	// Phase 2: Synthetic load
	if *syntheticCount > 0 {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		phaseStart = time.Now()
		metrics.Synthetic = seedSynthetic(ctx, calcRepo, categoryIDs)
		metrics.SyntheticTime = time.Since(phaseStart)
	}

	metrics.TotalTime = time.Since(overallStart)
	metrics.Categories = int64(len(categoryIDs))
	metrics.Catalogue = int64(len(sampleCalculations))

	printPerformanceSummary(metrics)
}

// PerformanceMetrics holds timing and throughput data
type PerformanceMetrics struct {
	Categories    int64
	Catalogue     int64
	Inactive      int64
	Synthetic     int64
	CatalogueTime time.Duration
	SyntheticTime time.Duration
	TotalTime     time.Duration
}

func printPerformanceSummary(m PerformanceMetrics) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  PERFORMANCE SUMMARY                          ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  %-20s %38v ║\n", "Total Time:", m.TotalTime.Round(time.Millisecond))
	fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	fmt.Printf("║  %-20s %38v ║\n", "Catalogue:", m.CatalogueTime.Round(time.Millisecond))
	fmt.Printf("║  %-20s %38v ║\n", "Synthetic:", m.SyntheticTime.Round(time.Millisecond))
	fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	fmt.Printf("║  %-20s %38s ║\n", "Categories:", formatNumber(m.Categories))
	fmt.Printf("║  %-20s %38s ║\n", "Catalogue Entries:", formatNumber(m.Catalogue))
	fmt.Printf("║  %-20s %38s ║\n", "Inactive Entries:", formatNumber(m.Inactive))
	fmt.Printf("║  %-20s %38s ║\n", "Synthetic Entries:", formatNumber(m.Synthetic))
	fmt.Println("╠───────────────────────────────────────────────────────────────╣")

	if m.SyntheticTime.Seconds() > 0 {
		perSec := float64(m.Synthetic) / m.SyntheticTime.Seconds()
		fmt.Printf("║  %-20s %34.0f /s ║\n", "Insert Throughput:", perSec)
		fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	}

	fmt.Printf("║  %-20s %35s MB ║\n", "Memory Allocated:", formatNumber(int64(memStats.Alloc/1024/1024)))
	fmt.Printf("║  %-20s %35s MB ║\n", "Total Allocated:", formatNumber(int64(memStats.TotalAlloc/1024/1024)))
	fmt.Printf("║  %-20s %38d ║\n", "GC Cycles:", memStats.NumGC)
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
}

func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	var result []rune
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, r)
	}
	return string(result)
}

func seedCategories(ctx context.Context, repo repository.CategoryRepository) (map[string]uuid.UUID, error) {
	log.Println("Seeding categories...")

	ids := make(map[string]uuid.UUID, len(sampleCategories))
	categories := make([]*entity.Category, len(sampleCategories))
	now := time.Now()
	for i, c := range sampleCategories {
		id := uuid.New()
		ids[c.Name] = id
		categories[i] = &entity.Category{
			ID:          id,
			Name:        c.Name,
			Description: c.Description,
			Icon:        c.Icon,
			CreatedAt:   now,
		}
	}

	if _, err := repo.CreateBatch(ctx, categories); err != nil {
		return nil, err
	}
	log.Printf("Created %d categories", len(categories))
	return ids, nil
}

// seedCatalogue stores the sample calculations the way the API would:
// legacy free-text names are migrated to keys, then each definition is
// checked and stored active or inactive accordingly.
func seedCatalogue(ctx context.Context, repo repository.CalculationRepository, service *calculator.Service, categoryIDs map[string]uuid.UUID) (int64, error) {
	log.Println("Seeding sample calculations...")

	var inactive int64
	now := time.Now()
	calcs := make([]*entity.Calculation, 0, len(sampleCalculations))
	for _, s := range sampleCalculations {
		def, renamed := calculation.MigrateNames(s.Definition)
		for from, to := range renamed {
			log.Printf("  %s: parameter %q stored as %q", s.Name, from, to)
		}

		categoryID := categoryIDs[s.Category]
		calc := &entity.Calculation{
			ID:          uuid.New(),
			CategoryID:  &categoryID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
			Definition:  def,
			VersionHash: calculator.VersionHash(def),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		check := service.Check(calc)
		calc.IsActive = check.IsActive
		calc.ValidationError = check.ValidationError
		if !calc.IsActive {
			inactive++
			log.Printf("  %s is inactive: %s", s.Name, calc.ValidationError)
		}
		calcs = append(calcs, calc)
	}

	if _, err := repo.CreateBatch(ctx, calcs); err != nil {
		return 0, err
	}
	log.Printf("Created %d calculations", len(calcs))
	return inactive, nil
}

// seedSynthetic generates variations of the catalogue so revalidation can be
// exercised at volume. A share of them carry a formula that calls an unknown
// function and will be deactivated by the next revalidation run.
func seedSynthetic(ctx context.Context, repo repository.CalculationRepository, categoryIDs map[string]uuid.UUID) int64 {
	total := *syntheticCount
	log.Printf("Will create %d synthetic calculations", total)

	numWorkers := *workerCount
	work := make(chan int, numWorkers*2)

	var (
		completed int64
		wg        sync.WaitGroup
		done      = make(chan struct{})
	)

	// Progress reporter
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c := atomic.LoadInt64(&completed)
				log.Printf("Progress: %d/%d (%.1f%%)", c, total, float64(c)/float64(total)*100)
			}
		}
	}()

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			batch := make([]*entity.Calculation, 0, *batchSize)

			flush := func() {
				if len(batch) == 0 {
					return
				}
				n, err := repo.CreateBatch(ctx, batch)
				if err != nil {
					log.Printf("Worker %d: failed to insert %d calculations: %v", workerID, len(batch), err)
				} else {
					atomic.AddInt64(&completed, n)
				}
				batch = batch[:0]
			}

			for i := range work {
				batch = append(batch, syntheticCalculation(rng, i, categoryIDs))
				if len(batch) >= *batchSize {
					flush()
				}
			}
			flush()
		}(w)
	}

	for i := 0; i < total; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
	close(done)

	created := atomic.LoadInt64(&completed)
	log.Printf("Completed: %d synthetic calculations created", created)
	return created
}

func syntheticCalculation(rng *rand.Rand, i int, categoryIDs map[string]uuid.UUID) *entity.Calculation {
	sample := sampleCalculations[rng.Intn(len(sampleCalculations))]
	def, _ := calculation.MigrateNames(sample.Definition)

	// Results are copied so the shared sample is never mutated
	def.Results = append([]calculation.Result(nil), def.Results...)
	if rng.Intn(100) < *invalidPct {
		if len(def.Results) > 0 {
			def.Results[0].Expression = "legacy_fn(" + def.Results[0].Expression + ")"
		} else {
			def.Expression = "legacy_fn(" + def.Expression + ")"
		}
	}

	categoryID := categoryIDs[sample.Category]
	now := time.Now()
	return &entity.Calculation{
		ID:          uuid.New(),
		CategoryID:  &categoryID,
		Name:        fmt.Sprintf("%s #%06d", sample.Name, i),
		Description: sample.Description,
		Tags:        append([]string{"synthetic"}, sample.Tags...),
		Definition:  def,
		IsActive:    true,
		ViewCount:   int64(rng.Intn(1000)),
		VersionHash: calculator.VersionHash(def),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
