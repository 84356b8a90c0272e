package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crypto-backtest/internal/logger"
	"crypto-backtest/internal/metrics"
	"crypto-backtest/internal/model"
	"crypto-backtest/internal/notification"
	"crypto-backtest/internal/strategy"
)

const (
	DefaultDays    = 30
	DefaultMaxDays = 180
)

// Request is one backtest invocation as received from a client.
type Request struct {
	ID       string          `json:"id,omitempty"`
	Coin     string          `json:"coin"`
	Strategy string          `json:"strategy"`
	Params   strategy.Params `json:"params"`
	Days     int             `json:"days"`
}

// Report is a successful run: the simulation result plus the normalized
// request it was computed for.
type Report struct {
	Coin     string          `json:"coin"`
	Strategy string          `json:"strategy"`
	Params   strategy.Params `json:"params"`
	Days     int             `json:"days"`
	Result
}

// Runner validates requests, fetches history and runs the engine.
// A Runner is safe for concurrent use.
type Runner struct {
	provider model.HistoryProvider
	metrics  *metrics.Metrics
	log      *slog.Logger
	notifier notification.Notifier
	timeout  time.Duration
	maxDays  int
}

// Option configures a Runner.
type Option func(*Runner)

func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }
func WithLogger(l *slog.Logger) Option      { return func(r *Runner) { r.log = l } }

// WithNotifier reports every completed run to n. n should not block;
// wrap slow channels in a notification.Dispatcher.
func WithNotifier(n notification.Notifier) Option { return func(r *Runner) { r.notifier = n } }

// WithTimeout bounds the history fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(r *Runner) { r.timeout = d } }

// WithMaxDays sets the largest accepted lookback.
func WithMaxDays(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxDays = n
		}
	}
}

// NewRunner creates a Runner reading candles from provider.
func NewRunner(provider model.HistoryProvider, opts ...Option) *Runner {
	r := &Runner{
		provider: provider,
		log:      slog.Default(),
		maxDays:  DefaultMaxDays,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes one backtest. Strategy and lookback are validated before
// any data is fetched; the returned error is classified by Kind.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	rep, err := r.run(ctx, req)

	label := req.Strategy
	if k := Kind(err); k == KindUnknownStrategy {
		label = "unknown"
	}
	r.metrics.ObserveBacktest(label, Kind(err), time.Since(start))

	attrs := append(logger.Attrs(ctx),
		slog.String("coin", req.Coin),
		slog.String("strategy", req.Strategy),
		slog.Int("days", req.Days),
		slog.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		r.log.Warn("backtest failed", append(attrs, slog.String("kind", Kind(err)), slog.String("error", err.Error()))...)
		return nil, err
	}
	r.log.Info("backtest completed", append(attrs,
		slog.Int("candles", len(rep.ChartData)),
		slog.Int("total_trades", rep.Metrics.TotalTrades),
		slog.Float64("final_capital", rep.Metrics.FinalCapital),
	)...)
	if r.notifier != nil {
		if err := r.notifier.Send(ctx, reportAlert(rep)); err != nil {
			r.log.Debug("backtest notification dropped", append(logger.Attrs(ctx), slog.String("error", err.Error()))...)
		}
	}
	return rep, nil
}

func reportAlert(rep *Report) notification.Alert {
	m := rep.Metrics
	return notification.Alert{
		Level: notification.AlertInfo,
		Title: fmt.Sprintf("Backtest %s %s", rep.Coin, rep.Strategy),
		Message: fmt.Sprintf("%d trades, win rate %.1f%%, profit %.2f (%.2f%%)",
			m.TotalTrades, m.WinRate, m.TotalProfit, m.TotalProfitPct),
		Fields: map[string]any{
			"coin":          rep.Coin,
			"strategy":      rep.Strategy,
			"params":        rep.Params.String(),
			"days":          rep.Days,
			"final_capital": m.FinalCapital,
		},
	}
}

func (r *Runner) run(ctx context.Context, req Request) (*Report, error) {
	s, err := strategy.Parse(req.Strategy, req.Params)
	if err != nil {
		return nil, err
	}
	days, err := r.lookback(req.Days)
	if err != nil {
		return nil, err
	}
	if _, ok := model.SymbolFor(req.Coin); !ok {
		return nil, fmt.Errorf("%w: unknown coin %q", ErrDataUnavailable, req.Coin)
	}

	candles, err := r.fetch(ctx, req.Coin, days)
	if err != nil {
		return nil, err
	}
	switch {
	case len(candles) == 0:
		return nil, fmt.Errorf("%w: no candles for %s", ErrDataUnavailable, req.Coin)
	case len(candles) < s.MinCandles():
		return nil, fmt.Errorf("%w: %d candles for %s, %s needs at least %d",
			ErrDataUnavailable, len(candles), req.Coin, s.Name(), s.MinCandles())
	case !model.Ordered(candles):
		return nil, fmt.Errorf("%w: history for %s is not strictly ascending", ErrDataUnavailable, req.Coin)
	}

	simStart := time.Now()
	res := Simulate(candles, s)
	buys := 0
	for i := range res.Trades {
		if res.Trades[i].Action == model.ActionBuy {
			buys++
		}
	}
	r.metrics.ObserveSimulation(time.Since(simStart), buys, res.Metrics.TotalTrades)

	return &Report{
		Coin:     req.Coin,
		Strategy: s.Name(),
		Params:   s.Params(),
		Days:     days,
		Result:   res,
	}, nil
}

func (r *Runner) lookback(days int) (int, error) {
	if days == 0 {
		return DefaultDays, nil
	}
	if days < 1 || days > r.maxDays {
		return 0, fmt.Errorf("%w: days must be between 1 and %d, got %d", ErrInvalidConfig, r.maxDays, days)
	}
	return days, nil
}

func (r *Runner) fetch(ctx context.Context, coin string, days int) ([]model.Candle, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	candles, err := r.provider.FetchHistory(ctx, coin, days)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("fetch history for %s: %w (%v)", coin, cerr, err)
		}
		return nil, fmt.Errorf("fetch history for %s: %w", coin, err)
	}
	return candles, nil
}
