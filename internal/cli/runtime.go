package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/common/expfmt"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"hatchery/internal/auth"
	"hatchery/internal/blob"
	"hatchery/internal/command"
	"hatchery/internal/config"
	"hatchery/internal/core"
	"hatchery/internal/entropy"
	escrowmem "hatchery/internal/infra/escrow/memory"
	escrowredis "hatchery/internal/infra/escrow/redis"
	"hatchery/internal/logging"
	"hatchery/pkg/domain"
)

// runtime is the wired process for one command invocation.
type runtime struct {
	cfg        config.Config
	store      core.PersistentStore
	svc        *core.Service
	dispatcher *command.Dispatcher
	ledger     domain.EscrowLedger
	metrics    *core.PrometheusMetricsRecorder
	closers    []func() error
}

func newRuntime(ctx context.Context, opts *RootOptions, stderr io.Writer) (*runtime, error) {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return nil, err
	}
	genesis, err := config.LoadGenesis(cfg.GenesisPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, metrics: core.NewPrometheusMetricsRecorder("")}
	store, err := core.OpenPersistentStore(cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	rt.store = store
	if closer, ok := store.(io.Closer); ok {
		rt.closers = append(rt.closers, closer.Close)
	}

	var client *redis.Client
	redisClient := func() *redis.Client {
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			rt.closers = append(rt.closers, client.Close)
		}
		return client
	}

	switch cfg.Escrow.Driver {
	case "memory", "":
		rt.ledger = escrowmem.NewLedger(genesis.Balances)
	case "redis":
		ledger := escrowredis.NewLedger(redisClient(), cfg.Escrow.KeyPrefix)
		if err := ledger.Genesis(ctx, genesis.Balances); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("seed escrow: %w", err)
		}
		rt.ledger = ledger
	case "none":
	default:
		_ = rt.Close()
		return nil, fmt.Errorf("unknown escrow driver %s", cfg.Escrow.Driver)
	}

	var authenticator domain.Authenticator
	switch cfg.Auth.Mode {
	case "static", "":
		authenticator = auth.Static{}
	case "signature":
		var nonces auth.NonceStore
		if cfg.Auth.NonceDriver == "redis" {
			nonces = auth.NewRedisNonceStore(redisClient(), cfg.Auth.NonceKeyPrefix)
		}
		authenticator = auth.NewSignature(nonces)
	default:
		_ = rt.Close()
		return nil, fmt.Errorf("unknown auth mode %s", cfg.Auth.Mode)
	}

	// Each invocation starts where the counter left off so that repeated
	// runs under one seed do not reuse entropy positions.
	block := entropy.NewBlock(cfg.Seed(genesis))
	block.SetPosition(uint64(store.CreatureCount()))

	svcOpts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithMetricsRecorder(rt.metrics),
		core.WithEntropySource(block),
	}
	if rt.ledger != nil {
		svcOpts = append(svcOpts, core.WithEscrowLedger(rt.ledger))
	}
	rt.svc = core.NewService(store, svcOpts...)
	rt.dispatcher = command.NewDispatcher(rt.svc, authenticator)
	return rt, nil
}

func (rt *runtime) archiver(ctx context.Context) (*core.Archiver, error) {
	source, ok := rt.store.(core.SnapshotSource)
	if !ok {
		return nil, fmt.Errorf("storage driver %s does not support snapshots", rt.cfg.Storage.Driver)
	}
	blobs, err := blob.Open(ctx, rt.cfg.Blob.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return core.NewArchiver(blobs, source), nil
}

func (rt *runtime) dumpMetrics(w io.Writer) error {
	families, err := rt.metrics.Registry().Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the store and redis connections.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}

// run wires a runtime for cmd, calls fn and tears the runtime down.
func run(cmd *cobra.Command, opts *RootOptions, fn func(context.Context, *runtime) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newRuntime(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rt.Close())
	}()
	if err := fn(ctx, rt); err != nil {
		return err
	}
	if opts.DumpMetrics {
		return rt.dumpMetrics(cmd.OutOrStdout())
	}
	return nil
}
