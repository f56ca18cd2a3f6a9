// Command optimizer runs a pool of route-optimization workers that pull
// OptimizationParameters off a request channel and run them against the
// optimization core, demonstrating the service wired end to end.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/fieldroute/backend/internal/config"
	"github.com/pageza/fieldroute/backend/internal/optimize"
	"github.com/pageza/fieldroute/backend/internal/routing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := log.New(os.Stdout, "optimizer: ", log.LstdFlags)

	adapter := routing.NewOSRMAdapter(cfg.RoutingBaseURL)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	matrixProvider := routing.NewDistanceMatrixProvider(
		adapter,
		cfg.AverageSpeedKmh,
		routing.WithRedisCache(redisClient, cfg.MatrixCacheTTL),
		routing.WithRetry(cfg.RoutingMaxRetries, cfg.RoutingRetryDelay),
		routing.WithLogger(logger),
	)

	geneticParams := optimize.GeneticParams{
		PopulationSize:   cfg.GeneticPopulationSize,
		EliteSize:        cfg.GeneticEliteSize,
		MutationRate:     cfg.GeneticMutationRate,
		CrossoverRate:    cfg.GeneticCrossoverRate,
		TournamentSize:   cfg.GeneticTournamentSize,
		MaxGenerations:   cfg.GeneticMaxGenerations,
		StallGenerations: cfg.GeneticStallGenerations,
		Seed:             cfg.GeneticSeed,
	}

	service := optimize.NewOptimizationService(
		matrixProvider,
		optimize.CostModel{CostPerKm: cfg.CostPerKm, CostPerHour: cfg.CostPerHour},
		geneticParams,
		cfg.TwoOptMaxPasses,
		logger,
	)

	requests := make(chan optimizeRequest, cfg.WorkerConcurrency*4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		wg.Add(1)
		go runWorker(ctx, &wg, i, service, requests, logger)
	}

	logger.Printf("started %d optimization workers", cfg.WorkerConcurrency)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Println("shutting down optimizer...")

	close(requests)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Println("workers did not drain in time, exiting anyway")
	}

	logger.Println("optimizer exited")
}

// optimizeRequest pairs a caller's parameters/algorithm with the channel
// used to deliver the result, the shape a real request queue would wrap.
type optimizeRequest struct {
	params    optimize.OptimizationParameters
	algorithm optimize.Algorithm
	result    chan<- optimizeResponse
}

type optimizeResponse struct {
	result optimize.OptimizationResult
	err    error
}

func runWorker(ctx context.Context, wg *sync.WaitGroup, id int, service *optimize.OptimizationService, requests <-chan optimizeRequest, logger *log.Logger) {
	defer wg.Done()
	for req := range requests {
		result, err := service.Optimize(ctx, req.params, req.algorithm)
		if req.result != nil {
			req.result <- optimizeResponse{result: result, err: err}
		}
		if err != nil {
			logger.Printf("worker %d: optimize failed: %v", id, err)
		}
	}
}
