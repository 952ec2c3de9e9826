package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Hkilla-ux/shopsmart/internal/cache"
	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

// Service is the read path used by handlers and the checkout pricing step.
// It layers a cache and a circuit breaker over the repository; the cache
// may be nil, in which case every read goes to the repository.
type Service struct {
	repo    ProductRepository
	cache   cache.ProductCache
	sfg     singleflight.Group // Prevents cache stampede
	breaker *gobreaker.CircuitBreaker[*domain.Product]
}

func NewService(repo ProductRepository, productCache cache.ProductCache) *Service {
	breaker := gobreaker.NewCircuitBreaker[*domain.Product](gobreaker.Settings{
		Name:     "catalog",
		Interval: 60 * time.Second,
		Timeout:  10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a missing product is an answer, not a catalog failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %q changed state: %v -> %v", name, from, to)
		},
	})

	return &Service{
		repo:    repo,
		cache:   productCache,
		breaker: breaker,
	}
}

func (s *Service) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.GetAllProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(id, func() (interface{}, error) {
		if s.cache != nil {
			product, err := s.cache.Get(ctx, id)
			if err == nil {
				return product, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				log.Printf("cache get error: %v", err) // log cache error but continue
			}
		}

		product, err := s.breaker.Execute(func() (*domain.Product, error) {
			return s.repo.GetProduct(ctx, id)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			go func() {
				if errSet := s.cache.Set(context.Background(), id, product); errSet != nil {
					log.Printf("cache set error: %v", errSet)
				}
			}()
		}

		return product, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}

func (s *Service) Close() error {
	return s.repo.Close()
}
