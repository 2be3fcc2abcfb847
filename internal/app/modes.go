package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/majorbet/internal/crypto"
	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/pipeline"
	"github.com/alanyoungcy/majorbet/internal/platform/backend"
	"github.com/alanyoungcy/majorbet/internal/platform/ethchain"
	"github.com/alanyoungcy/majorbet/internal/poller"
	"github.com/alanyoungcy/majorbet/internal/pricefeed"
	"github.com/alanyoungcy/majorbet/internal/server"
	"github.com/alanyoungcy/majorbet/internal/server/handler"
	"github.com/alanyoungcy/majorbet/internal/server/ws"
	"github.com/alanyoungcy/majorbet/internal/service"
	"github.com/alanyoungcy/majorbet/internal/units"
)

// statusWaitTimeout bounds how long bet mode waits for the first status read.
const statusWaitTimeout = 30 * time.Second

// ServerMode runs the aggregation service: the HTTP API, the websocket hub,
// the chain sync loop, the price refresher and the snapshot archiver.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	priceSvc := service.NewPriceService(a.buildPriceFeed(), deps.PriceCache, deps.RateLimiter, a.cfg.PriceFeed.MaxAge.Duration, a.logger)
	syncer := a.buildSyncer(deps)
	stats := service.NewStatsService(deps.BetStore, deps.ContestStore, deps.SignalBus, a.logger)

	orch := a.buildOrchestrator(deps, syncer, priceSvc)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RecordBetLimit:  a.cfg.Server.RecordBetLimit,
		RecordBetWindow: a.cfg.Server.RecordBetWindow.Duration,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(deps.Health, a.logger),
		Contest: handler.NewContestHandler(syncer, a.logger),
		Stats:   handler.NewStatsHandler(stats, priceSvc, a.logger),
		Price:   handler.NewPriceHandler(priceSvc),
		Audit:   handler.NewAuditHandler(deps.AuditStore, a.logger),
	}, deps.RateLimiter, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// SyncMode runs the background workers without the HTTP API, for deployments
// that scale the API separately. The redis lock keeps concurrent syncers
// from overlapping.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")

	priceSvc := service.NewPriceService(a.buildPriceFeed(), deps.PriceCache, deps.RateLimiter, a.cfg.PriceFeed.MaxAge.Duration, a.logger)
	return a.buildOrchestrator(deps, a.buildSyncer(deps), priceSvc).Run(ctx)
}

// WatchMode polls the ledger, the aggregation service and the price feed and
// logs the bettor's dashboard until ctx ends.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	store := a.newPollStore()
	defer store.Close()

	dash := a.buildDashboard(store, deps, a.cfg.Wallet.Address)
	if err := dash.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(a.cfg.Poll.Interval.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.logView(ctx, dash.View())
		}
	}
}

// BetMode submits the configured bet once the contest status is known, then
// logs the refreshed dashboard.
func (a *App) BetMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting bet mode")

	wallet, err := crypto.LoadWallet(crypto.KeySource{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("app: bet mode: %w", err)
	}
	writer, err := ethchain.NewWriter(deps.EthClient, wallet, a.cfg.Chain.ContractAddress,
		ethchain.WithGasLimit(a.cfg.Chain.GasLimit),
	)
	if err != nil {
		return fmt.Errorf("app: bet mode: %w", err)
	}

	store := a.newPollStore()
	defer store.Close()

	agg := backend.NewClient(a.cfg.Backend.BaseURL, a.cfg.Backend.Timeout.Duration)
	dash := a.buildDashboard(store, deps, writer.From())
	if err := dash.Start(ctx); err != nil {
		return err
	}
	if err := a.waitForStatus(ctx, dash); err != nil {
		return err
	}

	bets := service.NewBetService(writer, agg, dash, store, service.BetConfig{
		ExpectedChainID: big.NewInt(a.cfg.Chain.ChainID),
		RefreshDelay:    a.cfg.Poll.RefreshDelay.Duration,
	}, a.logger)

	if a.bet.TeamID != nil {
		if payout, err := dash.Quote(*a.bet.TeamID, a.bet.Amount); err == nil {
			a.logger.InfoContext(ctx, "bet mode: expected payout",
				slog.String("payout_eth", units.Format(payout, 4)),
			)
		}
	}

	res, err := bets.PlaceBet(ctx, a.bet)
	if err != nil {
		return fmt.Errorf("app: bet mode: %w", err)
	}
	a.logger.InfoContext(ctx, "bet mode: bet confirmed",
		slog.String("tx_hash", res.TxHash),
		slog.Int64("team_id", res.TeamID),
		slog.String("amount_eth", units.Format(units.WeiToDecimal(res.AmountWei), 4)),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.cfg.Poll.RefreshDelay.Duration + a.cfg.Poll.Interval.Duration):
	}
	a.logView(ctx, dash.View())
	return nil
}

func (a *App) buildPriceFeed() *pricefeed.Feed {
	client := &http.Client{Timeout: a.cfg.PriceFeed.StageTimeout.Duration}
	providers := []pricefeed.Provider{
		pricefeed.NewBinance(a.cfg.PriceFeed.BinanceURL, client),
		pricefeed.NewCoinGecko(a.cfg.PriceFeed.CoinGeckoURL, client),
	}
	return pricefeed.NewFeed(a.logger, providers,
		pricefeed.WithStageTimeout(a.cfg.PriceFeed.StageTimeout.Duration),
		pricefeed.WithFallback(a.cfg.PriceFeed.FallbackSymbol, a.cfg.PriceFeed.FallbackPrice),
	)
}

func (a *App) buildSyncer(deps *Dependencies) *service.ContestSyncer {
	return service.NewContestSyncer(
		deps.Ledger,
		deps.ContestStore,
		deps.SnapshotCache,
		deps.LockManager,
		deps.SignalBus,
		deps.AuditStore,
		deps.Notifier,
		a.cfg.Sync.LockTTL.Duration,
		a.logger,
	)
}

func (a *App) buildOrchestrator(deps *Dependencies, syncer *service.ContestSyncer, prices *service.PriceService) *pipeline.Orchestrator {
	var archiver *pipeline.Archiver
	archiveCron := ""
	if deps.Archiver != nil {
		archiver = pipeline.NewArchiver(deps.Archiver, a.logger)
		archiveCron = a.cfg.Sync.ArchiveCron
	}
	return pipeline.NewOrchestrator(
		pipeline.NewSyncLoop(syncer, a.logger),
		pipeline.NewPriceLoop(prices, a.logger),
		archiver,
		a.cfg.Sync.Interval.Duration,
		a.cfg.PriceFeed.Interval.Duration,
		archiveCron,
		a.logger,
	)
}

func (a *App) newPollStore() *poller.Store {
	return poller.New(a.logger,
		poller.WithFetchTimeout(a.cfg.Poll.FetchTimeout.Duration),
		poller.WithOnUpdate(func(key string, snap poller.Snapshot) {
			if snap.Err != nil {
				a.logger.Debug("poll: fetch failed",
					slog.String("key", key),
					slog.String("error", snap.Err.Error()),
				)
				return
			}
			a.logger.Debug("poll: updated",
				slog.String("key", key),
				slog.Uint64("generation", snap.Generation),
			)
		}),
	)
}

func (a *App) buildDashboard(store *poller.Store, deps *Dependencies, user string) *service.Dashboard {
	// A nil *ethchain.Client must not reach the interface as a typed nil.
	var ledger domain.LedgerReader
	if deps.Ledger != nil {
		ledger = deps.Ledger
	}
	return service.NewDashboard(
		store,
		ledger,
		backend.NewClient(a.cfg.Backend.BaseURL, a.cfg.Backend.Timeout.Duration),
		a.buildPriceFeed(),
		service.DashboardConfig{
			User:          user,
			PollInterval:  a.cfg.Poll.Interval.Duration,
			PriceInterval: a.cfg.PriceFeed.Interval.Duration,
			HouseCut:      a.cfg.Odds.HouseCut,
		},
		a.logger,
	)
}

func (a *App) waitForStatus(ctx context.Context, dash *service.Dashboard) error {
	ctx, cancel := context.WithTimeout(ctx, statusWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for dash.CurrentStatus() == nil {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errors.New("app: contest status unavailable")
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (a *App) logView(ctx context.Context, v service.DashboardView) {
	if v.Loading {
		a.logger.InfoContext(ctx, "dashboard: loading", slog.Int("errors", len(v.Errors)))
		return
	}
	attrs := []any{
		slog.String("status", v.Status.Text),
		slog.Bool("provisional", v.Status.Provisional),
		slog.Bool("betting_open", v.BettingOpen),
		slog.String("pool_eth", units.Format(units.WeiToDecimal(v.Status.TotalPoolWei), 4)),
		slog.Int("teams", len(v.Teams)),
		slog.String("exposure_eth", units.Format(v.TotalExposure, 4)),
	}
	if v.Price != nil {
		attrs = append(attrs, slog.String("pool_usd", units.Format(v.PoolUSD, 2)))
	}
	if v.Stats != nil {
		attrs = append(attrs, slog.Int64("bets", v.Stats.TotalBets))
	}
	if len(v.Errors) > 0 {
		attrs = append(attrs, slog.Any("errors", v.Errors))
	}
	a.logger.InfoContext(ctx, "dashboard: view", attrs...)
}
