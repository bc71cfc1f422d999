package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	sqliteadapter "github.com/sillsdev/liftmerge/internal/adapters/db/sqlite"
	httpadapter "github.com/sillsdev/liftmerge/internal/adapters/http"
	"github.com/sillsdev/liftmerge/internal/adapters/liftjson"
	rpcadapter "github.com/sillsdev/liftmerge/internal/adapters/rpcjson"
	"github.com/sillsdev/liftmerge/internal/application"
	"github.com/sillsdev/liftmerge/internal/domain"
	"github.com/sillsdev/liftmerge/internal/platform/logger"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "liftmerge",
		Usage: "Merge LIFT lexicon imports into a stored lexicon",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Usage: "uds, http or local", Sources: cli.EnvVars("LIFTMERGE_TRANSPORT")},
			&cli.StringFlag{Name: "server", Usage: "HTTP server URL", Sources: cli.EnvVars("LIFTMERGE_SERVER")},
			&cli.StringFlag{Name: "socket", Usage: "JSON-RPC unix socket path", Sources: cli.EnvVars("LIFTMERGE_SOCKET")},
			&cli.StringFlag{Name: "token", Usage: "API key for imports", Sources: cli.EnvVars("LIFTMERGE_API_KEY")},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path for the local transport", Sources: cli.EnvVars("LIFTMERGE_DB")},
		},
		Commands: []*cli.Command{
			serverCommand(),
			configCommand(),
			importCommand(),
			entriesCommand(),
			relationsCommand(),
			typesCommand(),
			fieldsCommand(),
			listsCommand(),
			runsCommand(),
			logCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// clientConfig is the saved config with any global flags layered on top.
func clientConfig(c *cli.Command) (cliConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, err
	}
	if c.IsSet("transport") {
		cfg.Transport = c.String("transport")
	}
	if c.IsSet("server") {
		cfg.Server = c.String("server")
	}
	if c.IsSet("socket") {
		cfg.Socket = c.String("socket")
	}
	if c.IsSet("token") {
		cfg.Token = c.String("token")
	}
	if c.IsSet("db-path") {
		cfg.DBPath = c.String("db-path")
	}
	switch cfg.Transport {
	case "uds", "http", "local":
		return cfg, nil
	}
	return cliConfig{}, fmt.Errorf("unknown transport %q (want uds, http or local)", cfg.Transport)
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the HTTP API and the JSON-RPC socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address", Sources: cli.EnvVars("LIFTMERGE_ADDR")},
			&cli.StringFlag{Name: "rpc-socket", Value: defaultSocket, Usage: "JSON-RPC unix socket path", Sources: cli.EnvVars("LIFTMERGE_SOCKET")},
			&cli.StringFlag{Name: "db-path", Value: defaultDBPath, Usage: "SQLite database path", Sources: cli.EnvVars("LIFTMERGE_DB")},
			&cli.StringFlag{Name: "api-key", Usage: "require this key for imports", Sources: cli.EnvVars("LIFTMERGE_API_KEY")},
			&cli.StringFlag{Name: "log-mode", Value: "dev", Usage: "dev or prod", Sources: cli.EnvVars("LIFTMERGE_LOG_MODE")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, serverOptions{
				Addr:    c.String("addr"),
				Socket:  c.String("rpc-socket"),
				DBPath:  c.String("db-path"),
				APIKey:  c.String("api-key"),
				LogMode: c.String("log-mode"),
			})
		},
	}
}

type serverOptions struct {
	Addr    string
	Socket  string
	DBPath  string
	APIKey  string
	LogMode string
}

func runServer(ctx context.Context, opts serverOptions) error {
	log, err := logger.New(opts.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := sqliteadapter.Open(opts.DBPath)
	if err != nil {
		return err
	}
	applied, err := sqliteadapter.RunMigrations(ctx, db)
	if err != nil {
		return err
	}
	log.Info("database ready", "path", opts.DBPath, "migrations_applied", applied)

	service := application.NewImportService(sqliteadapter.NewLexiconRepository(db), log)
	if err := service.SetAPIKey(opts.APIKey); err != nil {
		return err
	}
	if !service.AuthRequired() {
		log.Warn("no api key configured, imports are open to any caller")
	}

	srv := &http.Server{Addr: opts.Addr, Handler: httpadapter.NewRouter(service, log), ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(opts.Socket, service, log)
	if err != nil {
		return err
	}
	log.Info("json-rpc listening", "socket", "unix://"+opts.Socket)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		_ = rpcSrv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or save client settings",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective client settings",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := clientConfig(c)
					if err != nil {
						return err
					}
					token := "-"
					if cfg.Token != "" {
						token = "(set)"
					}
					printKV([][2]string{{"transport", cfg.Transport}, {"server", cfg.Server}, {"socket", cfg.Socket}, {"db_path", cfg.DBPath}, {"token", token}})
					return nil
				},
			},
			{
				Name:  "save",
				Usage: "Save the global flags as defaults in ~/.liftmerge/config.json",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := clientConfig(c)
					if err != nil {
						return err
					}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					path, _ := configPath()
					fmt.Printf("saved %s\n", path)
					return nil
				},
			},
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge a JSON Lines file of entry records",
		ArgsUsage: "<entries.jsonl|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "header", Usage: "YAML or JSON file with ranges and custom field declarations"},
			&cli.StringFlag{Name: "profile", Usage: "YAML file with style and trust_timestamps"},
			&cli.StringFlag{Name: "style", Usage: "keep-new, keep-old, keep-both or keep-only-new"},
			&cli.BoolFlag{Name: "trust-timestamps", Usage: "skip records not modified since the stored entry"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			in := importInput{EntriesPath: c.Args().First()}
			if path := c.String("profile"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				profile, err := liftjson.LoadProfile(f)
				_ = f.Close()
				if err != nil {
					return err
				}
				in.Style, in.TrustTimestamps = profile.Style, profile.TrustTimestamps
			}
			if c.IsSet("style") {
				if in.Style, err = domain.ParseMergeStyle(c.String("style")); err != nil {
					return err
				}
			}
			if c.IsSet("trust-timestamps") {
				in.TrustTimestamps = c.Bool("trust-timestamps")
			}
			if path := c.String("header"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				in.Header, err = liftjson.LoadHeader(f)
				_ = f.Close()
				if err != nil {
					return err
				}
			}

			var out application.ImportOutcome
			if err := doImport(ctx, cfg, in, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printImportOutcome(out)
			return nil
		},
	}
}

func entriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "entries",
		Usage: "Entry queries",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List entries by headword",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q"},
					&cli.IntFlag{Name: "limit"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := clientConfig(c)
					if err != nil {
						return err
					}
					var out []domain.EntrySummary
					if err := doEntriesList(ctx, cfg, c.String("q"), int(c.Int("limit")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEntrySummaries(out)
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "Show one entry",
				ArgsUsage: "<guid>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := clientConfig(c)
					if err != nil {
						return err
					}
					if c.Args().Len() != 1 {
						return errors.New("usage: liftmerge entries get <guid>")
					}
					var out domain.Entry
					if err := doEntryGet(ctx, cfg, c.Args().First(), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEntry(out)
					return nil
				},
			},
		},
	}
}

func relationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "relations",
		Usage: "List link objects",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "reference type name"},
			&cli.IntFlag{Name: "limit"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			var out []domain.LinkSummary
			if err := doRelationsList(ctx, cfg, c.String("type"), int(c.Int("limit")), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printLinks(out)
			return nil
		},
	}
}

func typesCommand() *cli.Command {
	return &cli.Command{
		Name:  "types",
		Usage: "List reference types",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "q"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			var out []domain.ReferenceTypeSummary
			if err := doTypesList(ctx, cfg, c.String("q"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printReferenceTypes(out)
			return nil
		},
	}
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fields",
		Usage: "List custom field definitions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Usage: "entry, sense, example, allomorph or pronunciation"},
			&cli.StringFlag{Name: "q"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			var out []domain.FieldDef
			if err := doFieldsList(ctx, cfg, c.String("owner"), c.String("q"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printFieldDefs(out)
			return nil
		},
	}
}

func listsCommand() *cli.Command {
	return &cli.Command{
		Name:  "lists",
		Usage: "List possibility lists, or the items of one",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "list", Usage: "list name, e.g. grammatical-info"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			if name := c.String("list"); name != "" {
				var out []domain.Possibility
				if err := doListItems(ctx, cfg, name, &out); err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(out)
				}
				printPossibilities(out)
				return nil
			}
			var out []domain.ListSummary
			if err := doListsList(ctx, cfg, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printLists(out)
			return nil
		},
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List import runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			var out []domain.ImportRun
			if err := doRunsList(ctx, cfg, int(c.Int("limit")), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printRuns(out)
			return nil
		},
	}
}

func logCommand() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Show the merge log of an import run",
		ArgsUsage: "<run-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Usage: "created, merged, conflict, deleted, unresolved, skipped, warning or notice"},
			&cli.IntFlag{Name: "limit"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := clientConfig(c)
			if err != nil {
				return err
			}
			runID, err := application.ParseRunID(c.Args().First())
			if err != nil {
				return err
			}
			var out []domain.MergeLogRecord
			if err := doRunLog(ctx, cfg, runID, c.String("kind"), int(c.Int("limit")), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printMergeLog(out)
			return nil
		},
	}
}
