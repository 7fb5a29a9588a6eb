package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"finease/internal/auth"
	"finease/internal/cache"
	"finease/internal/core"
	"finease/internal/log"
	"finease/internal/store"
)

const (
	overviewKind = "overview"
	reportKind   = "report"
)

// ReportService computes per-owner summaries, optionally through a cache.
// A cached value is only stored if the owner was not invalidated while it
// was being computed. mu orders stores against invalidations.
type ReportService struct {
	agg       store.Aggregator
	guard     *OwnershipGuard
	overviews cache.Cache[core.Overview]
	reports   cache.Cache[core.Report]

	mu          sync.Mutex
	generations map[string]uint64
}

// NewReportService wires the service. Nil caches disable caching.
func NewReportService(agg store.Aggregator, guard *OwnershipGuard, overviews cache.Cache[core.Overview], reports cache.Cache[core.Report]) *ReportService {
	return &ReportService{
		agg:         agg,
		guard:       guard,
		overviews:   overviews,
		reports:     reports,
		generations: make(map[string]uint64),
	}
}

// Overview returns income, expense and balance totals of the caller.
func (s *ReportService) Overview(ctx context.Context, caller auth.Identity) (core.Overview, error) {
	if caller.Email == "" {
		return core.Overview{}, core.ErrUnauthenticated
	}
	key := cacheKey(caller.Email, overviewKind)
	if s.overviews != nil {
		if ov, ok := s.overviews.Get(key); ok {
			s.logger(ctx).DebugContext(ctx, "Overview cache hit", log.FieldCacheHit, true)
			return ov, nil
		}
	}

	gen := s.generation(caller.Email)
	totals, err := s.agg.SumByType(ctx, caller.Email)
	if err != nil {
		return core.Overview{}, storeError("overview", err)
	}
	ov := core.NewOverview(totals)

	if s.overviews != nil {
		storeIfCurrent(s, s.overviews, caller.Email, key, gen, ov)
	}
	return ov, nil
}

// Reports returns the category breakdown and the 12-month series of email,
// which must be the caller. Both aggregations run concurrently.
func (s *ReportService) Reports(ctx context.Context, caller auth.Identity, email string) (core.Report, error) {
	if err := s.guard.RequireSelf(caller, email); err != nil {
		return core.Report{}, err
	}
	key := cacheKey(email, reportKind)
	if s.reports != nil {
		if r, ok := s.reports.Get(key); ok {
			s.logger(ctx).DebugContext(ctx, "Report cache hit", log.FieldCacheHit, true)
			return r, nil
		}
	}

	gen := s.generation(email)
	var (
		categories []core.CategoryAmount
		months     []core.MonthTypeTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.agg.SumByCategory(gctx, email)
		return err
	})
	g.Go(func() error {
		var err error
		months, err = s.agg.SumByMonth(gctx, email)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Report{}, storeError("reports", err)
	}

	if categories == nil {
		categories = []core.CategoryAmount{}
	}
	r := core.Report{
		CategoryData: categories,
		MonthlyData:  core.NewMonthlySeries(months),
	}
	if s.reports != nil {
		storeIfCurrent(s, s.reports, email, key, gen, r)
	}
	return r, nil
}

// InvalidateOwner drops every cached summary of email.
func (s *ReportService) InvalidateOwner(email string) {
	s.mu.Lock()
	s.generations[email]++
	removed := 0
	if s.overviews != nil {
		removed += s.overviews.DeletePrefix(cacheKey(email, ""))
	}
	if s.reports != nil {
		removed += s.reports.DeletePrefix(cacheKey(email, ""))
	}
	s.mu.Unlock()

	if removed > 0 {
		log.FromContext(context.Background()).WithComponent(log.ComponentCache).Debug("Owner reports invalidated",
			log.FieldOwner, email, "entries", removed)
	}
}

// CacheStats reports the state of the enabled caches by name.
func (s *ReportService) CacheStats() map[string]cache.Stats {
	stats := make(map[string]cache.Stats, 2)
	if s.overviews != nil {
		stats[overviewKind] = s.overviews.Stats()
	}
	if s.reports != nil {
		stats[reportKind] = s.reports.Stats()
	}
	return stats
}

func (s *ReportService) generation(email string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[email]
}

// storeIfCurrent caches v unless email was invalidated after gen was read.
// The check and the store happen under mu so an invalidation cannot slip
// between them.
func storeIfCurrent[V any](s *ReportService, c cache.Cache[V], email, key string, gen uint64, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[email] == gen {
		c.Set(key, v)
	}
}

func (s *ReportService) logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentReports)
}

// cacheKey builds "<email>\x00<kind>". The NUL separator keeps the prefix
// of one owner from matching another owner's keys.
func cacheKey(email, kind string) string {
	return email + "\x00" + kind
}
