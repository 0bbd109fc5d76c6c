package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockLens/internal/collector"
	"StockLens/internal/indicator"
	"StockLens/internal/model"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
	"StockLens/internal/strategy"
	"StockLens/internal/watchlist"
)

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// ScanObserver receives scan outcomes (e.g. metrics).
type ScanObserver interface {
	ObserveSignals(events []model.SignalEvent)
	ScanCompleted(at time.Time)
}

// ScanResult summarizes one watchlist scan.
type ScanResult struct {
	Scanned  int
	Failed   int
	Notified int
}

// Scheduler runs the periodic watchlist scan and answers bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Registry  *indicator.Registry
	Detector  *strategy.Detector
	Watchlist *watchlist.Manager
	Notifier  Sender // nil disables pushes; scans still record signals
	Recorder  recorder.Recorder
	Period    model.Period
	Observer  ScanObserver
	Ctx       context.Context
	log       zerolog.Logger

	scanMu sync.Mutex // serializes scans
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, reg *indicator.Registry, det *strategy.Detector,
	wl *watchlist.Manager, sender Sender, rec recorder.Recorder, period model.Period, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Registry:  reg,
		Detector:  det,
		Watchlist: wl,
		Notifier:  sender,
		Recorder:  rec,
		Period:    period,
		Ctx:       ctx,
		log:       log,
	}
}

// Register schedules the watchlist scan.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, func() { s.Scan(s.Ctx) }); err != nil {
		return fmt.Errorf("register watchlist scan: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Scan refreshes every watched symbol, detects signals and pushes the ones
// not yet notified for the latest bar. Concurrent calls run one after another.
func (s *Scheduler) Scan(ctx context.Context) ScanResult {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	var res ScanResult
	symbols := s.Watchlist.Symbols()
	s.log.Info().Int("symbols", len(symbols)).Str("period", string(s.Period)).Msg("running watchlist scan")

	for _, code := range symbols {
		if ctx.Err() != nil {
			break
		}
		res.Scanned++
		n, err := s.scanOne(ctx, code)
		if err != nil {
			res.Failed++
			s.log.Error().Err(err).Str("code", code).Msg("watchlist scan failed")
			continue
		}
		res.Notified += n
	}

	if s.Observer != nil && res.Failed < res.Scanned {
		s.Observer.ScanCompleted(time.Now())
	}
	s.log.Info().Int("scanned", res.Scanned).Int("failed", res.Failed).Int("notified", res.Notified).
		Msg("watchlist scan done")
	return res
}

func (s *Scheduler) scanOne(ctx context.Context, code string) (int, error) {
	series, err := s.Collector.Refresh(ctx, code, s.Period)
	if err != nil {
		return 0, err
	}
	events, err := s.Detector.Detect(series)
	if err != nil {
		return 0, err
	}
	if s.Observer != nil {
		s.Observer.ObserveSignals(events)
	}

	last := series.Bars[series.Len()-1]
	barDate := series.Timestamps[series.Len()-1]
	fresh := s.Watchlist.Fresh(code, s.Period, barDate, events)
	if len(fresh) == 0 {
		return 0, nil
	}

	if s.Notifier != nil {
		msg := notifier.FormatSignalAlert(code, s.Period, barDate, last.Close, fresh)
		if err := s.Notifier.SendWithRetry(ctx, msg, 3); err != nil {
			return 0, fmt.Errorf("send alert: %w", err)
		}
	}
	if err := s.Watchlist.MarkNotified(code, s.Period, barDate, fresh); err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("save notified signals")
	}

	recs := make([]recorder.SignalRecord, len(fresh))
	for i, e := range fresh {
		recs[i] = recorder.SignalRecord{Code: code, Period: s.Period, BarDate: barDate, Event: e}
	}
	if err := s.Recorder.RecordSignals(ctx, recs); err != nil {
		s.log.Error().Err(err).Str("code", code).Msg("record signals")
	}
	return len(fresh), nil
}

// HandleCommand processes a bot command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	// Commands may arrive as "/signals@BotName".
	name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	args := fields[1:]

	switch name {
	case "/signals":
		if len(args) == 0 {
			return notifier.HelpText()
		}
		period := s.Period
		if len(args) > 1 {
			period = model.ParsePeriod(args[1])
		}
		return s.signalReply(ctx, args[0], period)
	case "/indicators":
		return notifier.FormatIndicatorList(s.Registry.ListConfigs())
	case "/watch":
		if len(args) == 0 {
			return notifier.HelpText()
		}
		if s.Watchlist.Add(args[0]) {
			return fmt.Sprintf("已加入自选: %s", strings.ToUpper(args[0]))
		}
		return fmt.Sprintf("%s 已在自选中", strings.ToUpper(args[0]))
	case "/unwatch":
		if len(args) == 0 {
			return notifier.HelpText()
		}
		if s.Watchlist.Remove(args[0]) {
			return fmt.Sprintf("已移出自选: %s", strings.ToUpper(args[0]))
		}
		return fmt.Sprintf("%s 不在自选中", strings.ToUpper(args[0]))
	case "/list":
		symbols := s.Watchlist.Symbols()
		if len(symbols) == 0 {
			return "自选列表为空"
		}
		return "自选列表:\n• " + strings.Join(symbols, "\n• ")
	case "/scan":
		res := s.Scan(ctx)
		return fmt.Sprintf("扫描完成: %d 只, 失败 %d, 新信号 %d", res.Scanned, res.Failed, res.Notified)
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) signalReply(ctx context.Context, code string, period model.Period) string {
	series, err := s.Collector.Series(ctx, code, period)
	if err != nil {
		s.log.Warn().Err(err).Str("code", code).Msg("signal query failed")
		return fmt.Sprintf("❌ 获取 %s 数据失败", code)
	}
	events, err := s.Detector.Detect(series)
	if err != nil {
		return fmt.Sprintf("❌ 计算 %s 信号失败", code)
	}
	return notifier.FormatSignalReply(code, period, events)
}
