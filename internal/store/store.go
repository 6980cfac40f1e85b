// Package store is the single durable source of truth shared by the Signal
// Engine and the Verifier: signals, daily budget state, heartbeats and price
// samples, all single-writer-per-column-set as documented for the core.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/btcsignalcore/engine/internal/budget"
	"github.com/btcsignalcore/engine/internal/features"
	"github.com/btcsignalcore/engine/internal/gates"
	"github.com/btcsignalcore/engine/internal/quality"
	"github.com/btcsignalcore/engine/internal/regime"
	"github.com/btcsignalcore/engine/internal/risk"
	"github.com/btcsignalcore/engine/internal/signal"
	"github.com/btcsignalcore/engine/internal/strategy"
	"github.com/btcsignalcore/engine/internal/tracker"
)

// Store wraps a pgx connection pool and implements the narrow interfaces
// internal/signal, internal/tracker, internal/budget and internal/quality
// each depend on independently.
type Store struct {
	pool    *pgxpool.Pool
	breaker *risk.CircuitBreakerManager
}

// WithBreaker attaches the database circuit breaker to the store's two
// per-tick hot paths (ListPending, InsertSignal), so a sustained Postgres
// outage trips once per tick instead of blocking on pool timeouts every
// call. Optional: a store with no breaker attached queries directly.
func (s *Store) WithBreaker(cb *risk.CircuitBreakerManager) *Store {
	s.breaker = cb
	return s
}

func (s *Store) viaBreaker(op func() error) error {
	if s.breaker == nil {
		return op()
	}
	_, err := s.breaker.Database().Execute(func() (interface{}, error) {
		return nil, op()
	})
	return err
}

// New opens a pgx connection pool against dsn and verifies connectivity.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().Msg("durable store connection pool ready")
	return &Store{pool: pool}, nil
}

// Close releases the pool's connections.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying pool for the migrator.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// ---- internal/signal.Store ----

func (s *Store) TodayBudget(ctx context.Context, now time.Time) (gates.BudgetState, error) {
	mgr := budget.Manager{Store: (*budgetStore)(s)}
	return mgr.TodayBudget(ctx, now)
}

func (s *Store) ResetDailyStateIfNeeded(ctx context.Context, now time.Time) error {
	mgr := budget.Manager{Store: (*budgetStore)(s)}
	return mgr.ResetDailyStateIfNeeded(ctx, now)
}

func (s *Store) MarkPositionOpen(ctx context.Context, now time.Time) error {
	mgr := budget.Manager{Store: (*budgetStore)(s)}
	return mgr.MarkPositionOpen(ctx, now)
}

func (s *Store) InsertSignal(ctx context.Context, sig signal.Signal, vec features.Vector) error {
	err := s.viaBreaker(func() error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO signals (
				signal_id, created_at, direction, strategy, entry, stop, target,
				margin, leverage, confidence, setup_quality, regime, reasoning,
				gate_score_1, gate_score_2, gate_score_3, gate_score_4, gate_5_passed,
				status, feature_vector
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
			ON CONFLICT (signal_id) DO NOTHING`,
			sig.ID, sig.CreatedAt, string(sig.Direction), string(sig.Strategy),
			sig.Entry, sig.Stop, sig.Target, sig.Margin, sig.Leverage,
			sig.Confidence, sig.SetupQuality, string(sig.Regime), sig.Reasoning,
			sig.GateScores[0], sig.GateScores[1], sig.GateScores[2], sig.GateScores[3],
			sig.Gate5Passed, string(sig.Status), vec[:],
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *Store) WriteHeartbeat(ctx context.Context, botName, status string, signalsToday int, reg regime.Regime, pnl float64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO heartbeat (bot_name, ts, status, signals_today, regime, pnl, error)
		VALUES ($1, now(), $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (bot_name, ts) DO NOTHING`,
		botName, status, signalsToday, string(reg), pnl, errMsg,
	)
	if err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// ---- internal/tracker.Store ----

func (s *Store) ListPending(ctx context.Context) ([]tracker.PendingSignal, error) {
	var out []tracker.PendingSignal
	err := s.viaBreaker(func() error {
		rows, err := s.pool.Query(ctx, `
			SELECT signal_id, direction, entry, stop, target, created_at
			FROM signals WHERE status = 'PENDING' ORDER BY created_at`)
		if err != nil {
			return fmt.Errorf("list pending signals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p tracker.PendingSignal
			var dir string
			if err := rows.Scan(&p.ID, &dir, &p.Entry, &p.Stop, &p.Target, &p.CreatedAt); err != nil {
				return fmt.Errorf("scan pending signal: %w", err)
			}
			p.Direction = strategy.Direction(dir)
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) AppendPriceSample(ctx context.Context, signalID string, price float64, ts time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_tracking (signal_id, ts, price) VALUES ($1, $2, $3)
		ON CONFLICT (signal_id, ts) DO NOTHING`,
		signalID, ts, price,
	)
	if err != nil {
		return fmt.Errorf("append price sample: %w", err)
	}
	return nil
}

func (s *Store) ResolveSignal(ctx context.Context, r tracker.Resolution) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE signals SET
			status = $2, result_price = $3, result_ts = $4, result_pnl = $5,
			result_reason = $6, mfe = $7, mae = $8, duration_min = $9
		WHERE signal_id = $1`,
		r.SignalID, string(r.Status), r.ResultPrice, r.ResultTs, r.ResultPnL,
		r.ResultReason, r.MFE, r.MAE, r.DurationMin,
	)
	if err != nil {
		return fmt.Errorf("resolve signal: %w", err)
	}
	return nil
}

// ---- internal/quality.Store ----

func (s *Store) LoadScoringInputs(ctx context.Context, signalID string) (quality.Inputs, error) {
	const notional = 3000.0

	var in quality.Inputs
	var status string
	var resultPnL float64
	err := s.pool.QueryRow(ctx, `
		SELECT confidence, setup_quality, mfe, mae, status, margin, result_pnl
		FROM signals WHERE signal_id = $1`, signalID,
	).Scan(&in.Confidence, &in.SetupQuality, &in.MFE, &in.MAE, &status, &in.MarginPlanned, &resultPnL)
	if err != nil {
		return quality.Inputs{}, fmt.Errorf("load scoring inputs: %w", err)
	}
	in.Status = status
	in.PnLPct = resultPnL / notional
	in.MarginActual = in.MarginPlanned // actual margin is not varied in this system; see DESIGN.md
	return in, nil
}

func (s *Store) SaveTradeIQ(ctx context.Context, signalID string, tradeIQ float64) error {
	_, err := s.pool.Exec(ctx, `UPDATE signals SET trade_iq = $2, analyzed = true WHERE signal_id = $1`, signalID, tradeIQ)
	if err != nil {
		return fmt.Errorf("save trade iq: %w", err)
	}
	return nil
}

// UnanalyzedSignals lists resolved signals awaiting a quality score.
func (s *Store) UnanalyzedSignals(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT signal_id FROM signals
		WHERE status IN ('WIN','LOSS','TIMEOUT') AND analyzed = false
		ORDER BY result_ts LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unanalyzed signals: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DailyStats summarizes one UTC day's resolved signals for reporting.
type DailyStats struct {
	Date         time.Time
	SignalCount  int
	WinCount     int
	LossCount    int
	TimeoutCount int
	TotalPnL     float64
	AvgTradeIQ   *float64
}

// RefreshDailyStats recomputes and upserts the daily_stats row for date from
// the signals table; called by the Verifier after each resolution.
func (s *Store) RefreshDailyStats(ctx context.Context, date time.Time) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO daily_stats (date, signal_count, win_count, loss_count, timeout_count, total_pnl, avg_trade_iq)
		SELECT $1,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'WIN'),
			COUNT(*) FILTER (WHERE status = 'LOSS'),
			COUNT(*) FILTER (WHERE status = 'TIMEOUT'),
			COALESCE(SUM(result_pnl), 0),
			AVG(trade_iq)
		FROM signals WHERE created_at >= $1 AND created_at < $1 + INTERVAL '1 day'
		ON CONFLICT (date) DO UPDATE SET
			signal_count = EXCLUDED.signal_count,
			win_count = EXCLUDED.win_count,
			loss_count = EXCLUDED.loss_count,
			timeout_count = EXCLUDED.timeout_count,
			total_pnl = EXCLUDED.total_pnl,
			avg_trade_iq = EXCLUDED.avg_trade_iq`, day)
	if err != nil {
		return fmt.Errorf("refresh daily stats: %w", err)
	}
	return nil
}

// DailyStatsRange returns the daily_stats rows between from and to
// (inclusive), ordered by date.
func (s *Store) DailyStatsRange(ctx context.Context, from, to time.Time) ([]DailyStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, signal_count, win_count, loss_count, timeout_count, total_pnl, avg_trade_iq
		FROM daily_stats WHERE date BETWEEN $1 AND $2 ORDER BY date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily stats range: %w", err)
	}
	defer rows.Close()

	var out []DailyStats
	for rows.Next() {
		var d DailyStats
		if err := rows.Scan(&d.Date, &d.SignalCount, &d.WinCount, &d.LossCount, &d.TimeoutCount, &d.TotalPnL, &d.AvgTradeIQ); err != nil {
			return nil, fmt.Errorf("scan daily stats row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// budgetStore adapts Store to budget.Store without exposing the pool's
// signal/tracker methods to the budget package.
type budgetStore Store

func (b *budgetStore) GetOrCreateDailyState(ctx context.Context, date time.Time) (budget.DailyState, error) {
	day := date.UTC()
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var st budget.DailyState
	var status string
	err := b.pool.QueryRow(ctx, `
		SELECT date, pnl, trade_count, wins, losses, consecutive_losses, has_position, status, last_trade_at
		FROM daily_state WHERE date = $1`, day,
	).Scan(&st.Date, &st.PnL, &st.TradeCount, &st.Wins, &st.Losses, &st.ConsecutiveLosses, &st.HasPosition, &status, &st.LastTradeAt)

	if err == pgx.ErrNoRows {
		st = budget.NewDailyState(day)
		_, insErr := b.pool.Exec(ctx, `
			INSERT INTO daily_state (date, pnl, trade_count, wins, losses, consecutive_losses, has_position, status)
			VALUES ($1, 0, 0, 0, 0, 0, false, 'ACTIVE')
			ON CONFLICT (date) DO NOTHING`, day)
		if insErr != nil {
			return budget.DailyState{}, fmt.Errorf("create daily state: %w", insErr)
		}
		return st, nil
	}
	if err != nil {
		return budget.DailyState{}, fmt.Errorf("load daily state: %w", err)
	}
	st.Status = budget.Status(status)
	return st, nil
}

func (b *budgetStore) SaveDailyState(ctx context.Context, st budget.DailyState) error {
	_, err := b.pool.Exec(ctx, `
		UPDATE daily_state SET
			pnl = $2, trade_count = $3, wins = $4, losses = $5,
			consecutive_losses = $6, has_position = $7, status = $8,
			target_hit_at = $9, stop_hit_at = $10, last_trade_at = $11
		WHERE date = $1`,
		st.Date, st.PnL, st.TradeCount, st.Wins, st.Losses,
		st.ConsecutiveLosses, st.HasPosition, string(st.Status),
		st.TargetHitAt, st.StopHitAt, st.LastTradeAt,
	)
	if err != nil {
		return fmt.Errorf("save daily state: %w", err)
	}
	return nil
}
