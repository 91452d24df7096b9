package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cross-swap/config"
	"cross-swap/pkg/chain"
	"cross-swap/pkg/client"
	"cross-swap/pkg/executor"
	"cross-swap/pkg/history"
	"cross-swap/pkg/rateguard"
	"cross-swap/pkg/recorder"
	"cross-swap/pkg/retry"
	"cross-swap/pkg/state"
	"cross-swap/pkg/tokenmap"
	"cross-swap/pkg/wallet"
)

const defaultBoltFile = ".cross-swap-state.db"

// app holds everything a command needs to quote and execute swaps
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	mapper   *tokenmap.Mapper
	wallet   *wallet.Manager
	provider *client.Provider
	store    state.Store // guarded
	raw      state.Store
	locker   state.Locker
	history  history.Store
	recorder *recorder.Recorder
	metrics  *http.Server

	closers []func()
}

// newApp wires configuration into the executor's collaborators
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.RequireAPI(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    slog.Default(),
		mapper: buildMapper(cfg.Chains),
	}

	if err := a.openState(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.wallet = wallet.NewManager(cfg.Wallet, a.mapper)
	a.closers = append(a.closers, a.wallet.Close)

	api := client.NewOneClickClient(cfg.JWTToken, cfg.BaseURL)
	a.provider = client.NewProvider(api, a.wallet, a.mapper, cfg.PollInterval, a.log)
	a.recorder = recorder.New(a.history, a.log)

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return a, nil
}

// buildMapper starts from the built-in chain table; configured chains replace
// entries with the same key or add new ones
func buildMapper(extra []config.ChainConfig) *tokenmap.Mapper {
	chains := tokenmap.DefaultChains()
	index := make(map[string]int, len(chains))
	for i, c := range chains {
		index[c.Key] = i
	}

	for _, cc := range extra {
		key := strings.ToLower(cc.Key)
		if key == "" {
			continue
		}
		c := tokenmap.Chain{
			Key:           key,
			ProviderID:    cc.ProviderID,
			Blockchain:    cc.Blockchain,
			Name:          cc.Name,
			Kind:          tokenmap.Kind(strings.ToLower(cc.Kind)),
			NativeAddress: cc.NativeAddress,
		}
		if c.Kind == "" {
			c.Kind = tokenmap.KindEVM
		}
		if c.Blockchain == "" {
			c.Blockchain = key
		}
		if c.Name == "" {
			c.Name = strings.ToUpper(key)
		}
		if i, ok := index[key]; ok {
			chains[i] = c
			continue
		}
		index[key] = len(chains)
		chains = append(chains, c)
	}
	return tokenmap.NewMapper(chains)
}

func (a *app) openState() error {
	sc := a.cfg.State
	switch sc.Backend {
	case "file":
		store, err := state.NewFileStore(sc.Path, a.mapper.Resolve)
		if err != nil {
			return err
		}
		a.store = store
		a.locker = state.NewMemoryLocker()
	case "bolt":
		path := sc.Path
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			path = filepath.Join(home, defaultBoltFile)
		}
		store, err := state.NewBoltStore(path, a.mapper.Resolve)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.store = store
		a.locker = state.NewMemoryLocker()
	case "redis":
		rdb, err := state.NewRedisClient(state.RedisConfig{
			URL:      sc.RedisURL,
			Password: sc.RedisPassword,
			TTL:      sc.TTL,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.store = state.NewRedisStore(rdb, sc.TTL, a.mapper.Resolve)
		a.locker = state.NewRedisLocker(rdb)
	default:
		return fmt.Errorf("unknown state backend %q", sc.Backend)
	}

	a.raw = a.store
	a.store = state.NewGuarded(a.raw, a.locker)
	return nil
}

func (a *app) openHistory(ctx context.Context) error {
	switch a.cfg.History.Backend {
	case "postgres":
		pg, err := history.OpenPostgres(ctx, a.cfg.History.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = pg.Close() })
		a.history = pg
	case "memory":
		a.history = history.NewMemoryStore()
	default:
		store, err := history.NewFileStore(a.cfg.History.Path)
		if err != nil {
			return err
		}
		a.history = store
	}
	return nil
}

// newExecutor creates an executor for a new or resumed session
func (a *app) newExecutor(listener executor.Listener, walletAddress string) (*executor.Executor, error) {
	return executor.New(executor.Options{
		Provider:      a.provider,
		Wallet:        a.wallet,
		Mapper:        a.mapper,
		Guard:         rateguard.New(a.provider, a.cfg.RateThresholdPercent, a.log),
		Policy:        retry.NewPolicy(a.cfg.Retry.BaseDelay, a.cfg.Retry.MaxDelay),
		Store:         a.store,
		Recorder:      a.recorder,
		Listener:      listener,
		Logger:        a.log,
		MaxAttempts:   a.cfg.Retry.MaxAttempts,
		WalletAddress: walletAddress,
	})
}

// reconciler builds on-chain inspectors for every chain with an RPC endpoint
func (a *app) reconciler() *state.Reconciler {
	insp := chain.NewMulti()
	for key, network := range a.cfg.Wallet.EVM.Networks {
		if network.RPCUrl == "" {
			continue
		}
		evm, err := chain.DialEVM(network.RPCUrl)
		if err != nil {
			a.log.Warn("Skipping chain inspector", "chain", key, "error", err)
			continue
		}
		insp.Register(key, evm)
	}
	if a.cfg.Wallet.Solana.RPCUrl != "" {
		insp.Register("sol", chain.NewSolanaInspector(a.cfg.Wallet.Solana.RPCUrl))
	}
	return state.NewReconciler(a.raw, a.locker, insp, a.log)
}

// walletAddress is the history key: the configured address, or the signer on chain
func (a *app) walletAddress(ctx context.Context, chainKey string) string {
	if a.cfg.WalletAddress != "" {
		return a.cfg.WalletAddress
	}
	addr, err := a.wallet.Address(ctx, chainKey)
	if err != nil {
		return ""
	}
	return addr
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Metrics server stopped", "error", err)
		}
	}()
	a.log.Info("Serving metrics", "addr", addr)
}

// Close releases connections in reverse order of opening
func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
