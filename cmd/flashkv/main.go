// Command flashkv is the process entry point: it wires configuration,
// the engine and its background workers, and the optional HTTP front
// end together, the Go-idiomatic counterpart of the original's
// tokio::main plus CLI argument handling.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flashkv/flashkv/api"
	"github.com/flashkv/flashkv/internal/compaction"
	"github.com/flashkv/flashkv/internal/config"
	"github.com/flashkv/flashkv/internal/engine"
	"github.com/flashkv/flashkv/internal/flush"
)

func main() {
	cmd := &cli.Command{
		Name:  "flashkv",
		Usage: "embedded key/value store with a background flush and compaction loop",

		Commands: []*cli.Command{
			serveCommand(),
			getCommand(),
			setCommand(),
			deleteCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "flashkv: %v\n", err)
		os.Exit(1)
	}
}

func dataDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Aliases: []string{"d"},
		Usage:   "directory holding segment files and the manifest",
		Value:   ".",
	}
}

func openEngine(cmd *cli.Command, log *zap.SugaredLogger) (*engine.Engine, error) {
	return engine.Open(config.New(
		config.WithDataDir(cmd.String("data-dir")),
		config.WithFlushThresholdMiB(cmd.Float64("flush-threshold-mib")),
		config.WithFlushPollInterval(time.Duration(cmd.Int("flush-poll-interval-ms"))*time.Millisecond),
		config.WithCompactionPollInterval(time.Duration(cmd.Int("compaction-poll-interval-ms"))*time.Millisecond),
		config.WithCompactionSizeLimitMiB(cmd.Float64("compaction-size-limit-mib")),
		config.WithListenAddress(cmd.String("listen-address")),
		config.WithLogger(log),
	))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the store with its background workers and HTTP front end",
		Flags: []cli.Flag{
			dataDirFlag(),
			&cli.Float64Flag{Name: "flush-threshold-mib", Value: 1.0},
			&cli.IntFlag{Name: "flush-poll-interval-ms", Value: 5000},
			&cli.IntFlag{Name: "compaction-poll-interval-ms", Value: 1000},
			&cli.Float64Flag{Name: "compaction-size-limit-mib", Value: 5.0},
			&cli.StringFlag{Name: "listen-address", Value: "127.0.0.1:8000"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			zapLogger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()
			log := zapLogger.Sugar()

			eng, err := openEngine(cmd, log)
			if err != nil {
				return fmt.Errorf("open engine: %w", err)
			}
			defer eng.Close()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			go flush.New(eng).Run(ctx)
			go compaction.New(eng).Run(ctx)

			srv := &http.Server{
				Addr:    eng.Options().ListenAddress,
				Handler: api.NewRouter(eng, log),
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.Infow("listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "fetch a key's value",
		ArgsUsage: "<key>",
		Flags:     []cli.Flag{dataDirFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("usage: flashkv get <key>")
			}
			eng, err := openEngine(cmd, zap.NewNop().Sugar())
			if err != nil {
				return err
			}
			defer eng.Close()

			value, err := eng.Get([]byte(cmd.Args().Get(0)))
			if err != nil {
				return err
			}
			fmt.Println(string(value))
			return nil
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "set a key's value",
		ArgsUsage: "<key> <value>",
		Flags:     []cli.Flag{dataDirFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("usage: flashkv set <key> <value>")
			}
			eng, err := openEngine(cmd, zap.NewNop().Sugar())
			if err != nil {
				return err
			}
			defer eng.Close()

			return eng.Set([]byte(cmd.Args().Get(0)), []byte(cmd.Args().Get(1)))
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete a key from the memtable; values already flushed to segments stay visible",
		ArgsUsage: "<key>",
		Flags:     []cli.Flag{dataDirFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("usage: flashkv delete <key>")
			}
			eng, err := openEngine(cmd, zap.NewNop().Sugar())
			if err != nil {
				return err
			}
			defer eng.Close()

			return eng.Delete([]byte(cmd.Args().Get(0)))
		},
	}
}
