// cmd/backtest runs one strategy backtest from the command line, against
// Binance history or an offline SQLite archive, and prints a summary.
//
// Usage:
//
//	go run ./cmd/backtest --coin=bitcoin --strategy=sma_crossover --params=short_period=10,long_period=30 --days=30
//	go run ./cmd/backtest --coin=ethereum --strategy=rsi --db=data/candles.db --json
//	go run ./cmd/backtest --totp-secret=$API_TOTP_SECRET   # print the current API code
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pquerna/otp/totp"

	"crypto-backtest/internal/backtest"
	"crypto-backtest/internal/marketdata/binance"
	"crypto-backtest/internal/model"
	sqlitestore "crypto-backtest/internal/store/sqlite"
	"crypto-backtest/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	coin := flag.String("coin", "bitcoin", "Coin id (bitcoin, ethereum, ...) or exchange symbol (BTCUSDT)")
	strat := flag.String("strategy", strategy.NameSMACrossover, "Strategy: sma_crossover or rsi")
	paramStr := flag.String("params", "", "Strategy params: key=value,... (defaults apply for omitted keys)")
	days := flag.Int("days", backtest.DefaultDays, "Lookback in days")
	dbPath := flag.String("db", "", "Replay from this SQLite archive instead of Binance")
	interval := flag.String("interval", "1h", "Kline interval")
	baseURL := flag.String("base-url", binance.DefaultBaseURL, "Binance REST base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "History fetch timeout")
	asJSON := flag.Bool("json", false, "Print the full response envelope as JSON")
	showTrades := flag.Bool("trades", false, "Print the trade ledger")
	totpSecret := flag.String("totp-secret", "", "Print the current API one-time code for this secret and exit")
	flag.Parse()

	if *totpSecret != "" {
		code, err := totp.GenerateCode(*totpSecret, time.Now())
		if err != nil {
			log.Fatalf("[backtest] totp: %v", err)
		}
		fmt.Println(code)
		return
	}

	params, err := strategy.ParseParams(*paramStr)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	provider, closeFn, err := newProvider(*dbPath, *baseURL, *interval)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	defer closeFn()

	// Setup context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	runner := backtest.NewRunner(provider, backtest.WithTimeout(*timeout), backtest.WithMaxDays(3650))
	req := backtest.Request{Coin: *coin, Strategy: *strat, Params: params, Days: *days}
	rep, err := runner.Run(ctx, req)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(backtest.NewResponse("", rep, err))
		if err != nil {
			os.Exit(1)
		}
		return
	}
	if err != nil {
		log.Fatalf("[backtest] %s: %v", backtest.Kind(err), err)
	}

	if *showTrades {
		printTrades(rep.Trades)
	}
	printSummary(rep)
}

func newProvider(dbPath, baseURL, interval string) (model.HistoryProvider, func(), error) {
	if dbPath != "" {
		reader, err := sqlitestore.NewReader(dbPath, interval)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open failed: %w", err)
		}
		return reader, func() { reader.Close() }, nil
	}
	p, err := binance.NewProvider(binance.New(baseURL, nil), interval)
	if err != nil {
		return nil, nil, err
	}
	return p, func() {}, nil
}

func printTrades(trades []model.Trade) {
	for _, t := range trades {
		ts := time.UnixMilli(t.Timestamp).UTC().Format("2006-01-02 15:04")
		line := fmt.Sprintf("  %s %-4s %14.6f  qty=%-14.6f %s", ts, t.Action, t.Price, t.Quantity, t.Reason)
		if t.Profit != nil {
			line += fmt.Sprintf("  pnl=%.2f (%.2f%%)", *t.Profit, *t.ProfitPct)
		}
		fmt.Println(line)
	}
}

func printSummary(rep *backtest.Report) {
	m := rep.Metrics
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Coin:              %-16s ║\n", rep.Coin)
	fmt.Printf("║  Strategy:          %-16s ║\n", rep.Strategy)
	fmt.Printf("║  Params:            %-16s ║\n", rep.Params)
	fmt.Printf("║  Days / candles:    %-16s ║\n", fmt.Sprintf("%d / %d", rep.Days, len(rep.ChartData)))
	fmt.Printf("║  Trades (won):      %-16s ║\n", fmt.Sprintf("%d (%d)", m.TotalTrades, m.ProfitableTrades))
	fmt.Printf("║  Win rate:          %-16s ║\n", fmt.Sprintf("%.1f%%", m.WinRate))
	fmt.Printf("║  Total profit:      %-16s ║\n", fmt.Sprintf("%.2f (%.2f%%)", m.TotalProfit, m.TotalProfitPct))
	fmt.Printf("║  Max drawdown:      %-16s ║\n", fmt.Sprintf("%.2f%%", m.MaxDrawdownPct))
	fmt.Printf("║  Final capital:     %-16.2f ║\n", m.FinalCapital)
	fmt.Println("╚══════════════════════════════════════╝")
}
