package requestmetrics

import (
	"context"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/config"
	"github.com/smallbiznis/talentloop/pkg/docstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	documentName = "metrics.json"
	hourLayout   = "2006-01-02T15"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
}

// Service owns metrics.json. Writes are serialised through mu.
type Service struct {
	mu      sync.Mutex
	log     *zap.Logger
	backend docstore.Backend[Document]
	clock   clock.Clock
}

func New(p Params) *Service {
	backend := docstore.NewFileBackend(filepath.Join(p.Cfg.DocumentDir, documentName), EmptyDocument)
	return NewService(p.Log, backend, p.Clock)
}

func NewService(log *zap.Logger, backend docstore.Backend[Document], c clock.Clock) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = clock.New()
	}
	return &Service{
		log:     log.Named("requestmetrics"),
		backend: backend,
		clock:   c,
	}
}

func (s *Service) RecordRequest(ctx context.Context, method, route string, status int, durationMs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	doc.ensureMaps()

	now := s.clock.Now()
	method = strings.ToUpper(strings.TrimSpace(method))
	statusKey := strconv.Itoa(status)
	sample := Sample{
		Method:     method,
		Route:      route,
		Status:     status,
		DurationMs: durationMs,
		At:         now,
	}

	doc.Requests.Total++
	doc.Requests.ByMethod[method]++
	doc.Requests.ByRoute[route]++
	doc.Requests.ByStatus[statusKey]++
	doc.Requests.ByHour[now.UTC().Format(hourLayout)]++

	perf := &doc.Performance
	perf.TotalResponseTime += durationMs
	perf.AverageResponseTime = perf.TotalResponseTime / float64(doc.Requests.Total)
	perf.SlowestRequests = insertTop(perf.SlowestRequests, sample, func(a, b Sample) int {
		return compareFloat(b.DurationMs, a.DurationMs)
	})
	perf.FastestRequests = insertTop(perf.FastestRequests, sample, func(a, b Sample) int {
		return compareFloat(a.DurationMs, b.DurationMs)
	})

	if status >= 400 {
		doc.Errors.Total++
		doc.Errors.ByStatus[statusKey]++
		doc.Errors.ByRoute[route]++
		doc.Errors.Recent = append([]Sample{sample}, doc.Errors.Recent...)
		if len(doc.Errors.Recent) > topN {
			doc.Errors.Recent = doc.Errors.Recent[:topN]
		}
	}
	doc.LastUpdated = &now

	return s.backend.Save(ctx, doc)
}

func (s *Service) Snapshot(ctx context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.backend.Load(ctx)
	if err != nil {
		return Document{}, err
	}
	doc.ensureMaps()
	return doc, nil
}

func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := EmptyDocument()
	now := s.clock.Now()
	doc.LastUpdated = &now
	if err := s.backend.Save(ctx, doc); err != nil {
		return err
	}
	s.log.Info("request metrics reset")
	return nil
}

// insertTop appends sample, sorts by cmp and keeps the first topN entries.
func insertTop(list []Sample, sample Sample, cmp func(a, b Sample) int) []Sample {
	list = append(list, sample)
	slices.SortStableFunc(list, cmp)
	if len(list) > topN {
		list = list[:topN]
	}
	return list
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
