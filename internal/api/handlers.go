package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"StockLens/internal/collector"
	"StockLens/internal/model"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
	"StockLens/internal/strategy"
)

const (
	banner            = "智能股票量化分析平台 API 已启动"
	defaultReportList = "MA,MACD,RSI"
	historyWindow     = 30 * 24 * time.Hour
)

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": banner})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) indicatorConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"indicators": s.registry.ListConfigs()})
}

// stockData returns candles plus the requested indicators.
func (s *Server) stockData(c *gin.Context) {
	code, ok := requireCode(c)
	if !ok {
		return
	}
	start, err := parseDate(c.Query("start"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid start: %w", err))
		return
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid end: %w", err))
		return
	}

	period := model.ParsePeriod(c.DefaultQuery("period", string(model.PeriodDaily)))
	series, ok := s.loadSeries(c, code, period)
	if !ok {
		return
	}
	series = series.Between(start, end)

	indicators := []model.IndicatorOutput{}
	if series.Len() > 0 {
		results, err := s.registry.Calculate(splitNames(c.Query("indicators")), series)
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		indicators = append(indicators, results...)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       code,
		"period":     period,
		"candles":    series.Candles(),
		"indicators": indicators,
	})
}

// signals runs the detector, optionally with other MA periods.
func (s *Server) signals(c *gin.Context) {
	code, ok := requireCode(c)
	if !ok {
		return
	}
	det, err := s.detectorFor(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	period := model.ParsePeriod(c.DefaultQuery("period", string(model.PeriodDaily)))
	series, ok := s.loadSeries(c, code, period)
	if !ok {
		return
	}
	events, err := det.Detect(series)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    code,
		"period":  period,
		"signals": model.SignalTexts(events),
	})
}

func (s *Server) reportMarkdown(c *gin.Context) {
	code, ok := requireCode(c)
	if !ok {
		return
	}
	period := model.ParsePeriod(c.DefaultQuery("period", string(model.PeriodDaily)))
	series, ok := s.loadSeries(c, code, period)
	if !ok {
		return
	}

	results, err := s.registry.Calculate(splitNames(c.DefaultQuery("indicators", defaultReportList)), series)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	events, err := s.detector.Detect(series)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	report := notifier.FormatMarkdownReport(notifier.Report{
		Code:        code,
		Period:      period,
		GeneratedAt: s.now(),
		Signals:     events,
		Indicators:  results,
	})
	c.String(http.StatusOK, report)
}

// signalHistory lists the signals recorded by watchlist scans.
func (s *Server) signalHistory(c *gin.Context) {
	code, ok := requireCode(c)
	if !ok {
		return
	}
	// Scans record codes the way the watchlist stores them.
	code = strings.ToUpper(code)
	since := s.now().Add(-historyWindow)
	if v := c.Query("since"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid since: %w", err))
			return
		}
		since = t
	}

	recs, err := s.recorder.SignalHistory(c.Request.Context(), code, since)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []recorder.SignalRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "signals": recs})
}

func (s *Server) loadSeries(c *gin.Context, code string, period model.Period) (model.PriceSeries, bool) {
	series, err := s.collector.Series(c.Request.Context(), code, period)
	if err == nil {
		return series, true
	}
	c.Error(err)
	status := http.StatusBadGateway
	if errors.Is(err, collector.ErrNoData) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
	return model.PriceSeries{}, false
}

func (s *Server) detectorFor(c *gin.Context) (*strategy.Detector, error) {
	opts := s.detector.Options()
	short, err := intQuery(c, "ma_short", opts.MAShort)
	if err != nil {
		return nil, err
	}
	long, err := intQuery(c, "ma_long", opts.MALong)
	if err != nil {
		return nil, err
	}
	if short == opts.MAShort && long == opts.MALong {
		return s.detector, nil
	}
	return s.detector.WithMA(short, long)
}

func requireCode(c *gin.Context) (string, bool) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		badRequest(c, errors.New("code is required"))
		return "", false
	}
	return code, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

// parseDate accepts YYYY-MM-DD. An empty string is the zero time.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(model.TimestampLayout, v, time.UTC)
}

func splitNames(csv string) []string {
	var names []string
	for _, n := range strings.Split(csv, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
