package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/atelier-backend/internal/cart"
	"github.com/ikkim/atelier-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// 스케줄 (분 시 일 월 요일)
const (
	EvictIdleSpec   = "0 * * * *"  // 매시 정각
	PurgeStaleSpec  = "30 4 * * *" // 매일 04:30
	purgeJobTimeout = 5 * time.Minute
)

// CartCache is the set of in-memory carts
type CartCache interface {
	// EvictIdle drops carts nobody touched for maxIdle
	EvictIdle(maxIdle time.Duration) int
	// Discard drops one identity's cart so it reloads on next access
	Discard(identity cart.Identity) bool
}

// StalePurger deletes persisted cart rows last updated before the cutoff
// and reports whose carts lost rows
type StalePurger interface {
	DeleteStale(ctx context.Context, before time.Time) ([]uint, error)
}

// CartScheduler 장바구니 정리 스케줄러
type CartScheduler struct {
	cron       *cron.Cron
	carts      CartCache
	rows       StalePurger
	idleTTL    time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewCartScheduler 장바구니 스케줄러 생성. staleAfter가 0이면 DB 정리를 하지 않는다.
func NewCartScheduler(carts CartCache, rows StalePurger, idleTTL, staleAfter time.Duration) *CartScheduler {
	return &CartScheduler{
		cron:       cron.New(),
		carts:      carts,
		rows:       rows,
		idleTTL:    idleTTL,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Start 스케줄러 시작
func (s *CartScheduler) Start() error {
	if _, err := s.cron.AddFunc(EvictIdleSpec, s.EvictIdle); err != nil {
		logger.Error("Failed to add cron job for cart eviction", err)
		return err
	}

	if s.staleAfter > 0 {
		if _, err := s.cron.AddFunc(PurgeStaleSpec, s.PurgeStale); err != nil {
			logger.Error("Failed to add cron job for stale cart purge", err)
			return err
		}
	}

	s.cron.Start()
	logger.Info("Cart scheduler started", map[string]interface{}{
		"idle_ttl":    s.idleTTL.String(),
		"stale_after": s.staleAfter.String(),
	})
	return nil
}

// EvictIdle 유휴 장바구니 메모리 해제
func (s *CartScheduler) EvictIdle() {
	evicted := s.carts.EvictIdle(s.idleTTL)
	logger.Info("Idle carts evicted", map[string]interface{}{
		"evicted": evicted,
	})
}

// PurgeStale 오래된 장바구니 행 삭제
func (s *CartScheduler) PurgeStale() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeJobTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.staleAfter)
	userIDs, err := s.rows.DeleteStale(ctx, cutoff)
	if err != nil {
		logger.Error("Failed to purge stale cart rows", err, map[string]interface{}{
			"before": cutoff,
		})
		return
	}

	// 메모리에 남은 장바구니는 다음 접근 시 다시 불러온다
	discarded := 0
	for _, userID := range userIDs {
		if s.carts.Discard(cart.Identity(userID)) {
			discarded++
		}
	}
	logger.Info("Stale cart rows purged", map[string]interface{}{
		"users":     len(userIDs),
		"discarded": discarded,
		"before":    cutoff,
	})
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 기다린다.
func (s *CartScheduler) Stop() {
	logger.Info("Stopping cart scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cart scheduler stopped", nil)
}
