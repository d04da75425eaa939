// Package registrycli is the operator command line for the member registry.
package registrycli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"fraternitybase/registry/internal/cipher"
	"fraternitybase/registry/internal/common"
	"fraternitybase/registry/internal/config"
	"fraternitybase/registry/internal/db"
	"fraternitybase/registry/internal/db/repositories"
	"fraternitybase/registry/internal/jobs"
	"fraternitybase/registry/internal/logging"
	"fraternitybase/registry/internal/metrics"
	"fraternitybase/registry/internal/models/dtos"
	"fraternitybase/registry/internal/roster"
	"fraternitybase/registry/internal/services"
)

// App Name and usage.  Edit them here to prevent breaking tests
const Name = "registry"
const Usage = "Encrypted member registry CLI"

const importLockTTL = 30 * time.Minute

const encryptionKeyVar = "ROSTER_ENCRYPTION_KEY"

func GetApp() *cli.App {
	return setUpApp()
}

// environment is everything a storage command needs. Built per command so
// keygen works without configuration.
type environment struct {
	cfg    *config.Config
	store  *db.Store
	cipher *cipher.Cipher
	cache  common.CacheInterface
	lock   common.RunLock
}

func setUp(envFiles ...string) (*environment, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.AppEnv); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	fieldCipher, err := cipher.NewFromEncoded(cfg.EncryptionKey, cfg.HashKey)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, store: store, cipher: fieldCipher}
	if cfg.RedisEnabled {
		client := common.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword)
		if redisCache, err := common.NewRedisCacheService(client); err == nil {
			env.cache = redisCache
			env.lock = common.NewRedisRunLock(client)
		} else {
			logging.Warn("Redis unavailable, using in-process run lock", "error", err)
			_ = client.Close()
		}
	}
	if env.cache == nil {
		env.cache = common.NewCacheService(1800, 600)
		env.lock = common.NewLocalRunLock()
	}
	return env, nil
}

func (e *environment) close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
	if err := e.store.Close(); err != nil {
		logging.Warn("Failed to close store", "error", err)
	}
	_ = logging.Close()
}

func withEnvironment(fn func(ctx context.Context, env *environment) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		env, err := setUp()
		if err != nil {
			return err
		}
		defer env.close()

		return fn(context.Background(), env)
	}
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	var outPath, envFile string
	app.Commands = []cli.Command{
		{
			Name:      "import",
			Usage:     "Import a roster CSV into a chapter",
			ArgsUsage: "<file> <chapter>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("usage: registry import <file> <chapter>")
				}
				path, chapter := c.Args().Get(0), c.Args().Get(1)

				return withEnvironment(func(ctx context.Context, env *environment) error {
					src, err := roster.Open(path)
					if err != nil {
						return err
					}

					importer := jobs.InitializeImportJob(env.store.ORM, env.cipher, env.cache, metrics.NewMetricsRegistry(), env.cfg)
					release, err := env.lock.Acquire(ctx, common.ImportLockKey(importer.Organization(), chapter), importLockTTL)
					if err != nil {
						return err
					}
					defer release()

					result, err := importer.ImportFromSource(ctx, src, chapter)
					if result != nil {
						printImportSummary(app.Writer, result)
					}
					return err
				})(c)
			},
		},
		{
			Name:  "export",
			Usage: "Write the travel map document",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "out",
					Usage:       "Output file, or - for stdout (default EXPORT_OUTPUT)",
					Destination: &outPath,
				},
			},
			Action: withEnvironment(func(ctx context.Context, env *environment) error {
				exporter := services.NewExportService(
					repositories.NewExportRepository(env.store.Reader),
					env.cipher, nil, metrics.NewMetricsRegistry(),
				)
				view, stats, err := exporter.ExportDerivedView(ctx)
				if err != nil {
					return err
				}

				target := outPath
				if target == "" {
					target = env.cfg.ExportOutput
				}
				if err := writeExport(app.Writer, target, view); err != nil {
					return err
				}

				if target != "-" {
					fmt.Fprintf(app.Writer, "Exported %d of %d members (%d skipped, %d decrypt failures) to %s\n",
						stats.Exported, stats.Total, stats.Skipped, stats.DecryptFailures, target)
				}
				return nil
			}),
		},
		{
			Name:      "load-universities",
			Usage:     "Upsert university reference data from a JSON file",
			ArgsUsage: "<file>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("usage: registry load-universities <file>")
				}
				path := c.Args().Get(0)

				return withEnvironment(func(ctx context.Context, env *environment) error {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close()

					n, err := common.NewUniversityLoaderService(env.store.ORM).LoadFromJSON(ctx, f)
					if err != nil {
						return err
					}
					fmt.Fprintf(app.Writer, "Loaded %d universities\n", n)
					return nil
				})(c)
			},
		},
		{
			Name:      "link-chapter",
			Usage:     "Link a chapter to a university",
			ArgsUsage: "<chapter> <university>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("usage: registry link-chapter <chapter> <university>")
				}
				chapter, university := c.Args().Get(0), c.Args().Get(1)

				return withEnvironment(func(ctx context.Context, env *environment) error {
					loader := common.NewUniversityLoaderService(env.store.ORM)
					if err := loader.LinkChapter(ctx, env.cfg.Organization, chapter, university); err != nil {
						return err
					}
					fmt.Fprintf(app.Writer, "Linked %s to %s\n", chapter, university)
					return nil
				})(c)
			},
		},
		{
			Name:      "stats",
			Usage:     "Show membership statistics for a chapter",
			ArgsUsage: "<chapter>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return errors.New("usage: registry stats <chapter>")
				}
				chapter := c.Args().Get(0)

				return withEnvironment(func(ctx context.Context, env *environment) error {
					svc := services.NewChapterStatsService(
						repositories.NewChapterRepository(env.store.ORM),
						repositories.NewMemberRepository(env.store.ORM),
						repositories.NewImportBatchRepo(env.store.ORM),
						env.cache, env.cfg.Organization,
					)
					stats, err := svc.ChapterStats(ctx, chapter)
					if err != nil {
						return err
					}
					printChapterStats(app.Writer, stats)
					return nil
				})(c)
			},
		},
		{
			Name:  "keygen",
			Usage: "Print a new random encryption key, or store it in an env file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "env-file",
					Usage:       "Write the key as " + encryptionKeyVar + " into this file, replacing any existing value",
					Destination: &envFile,
				},
			},
			Action: func(c *cli.Context) error {
				key, err := cipher.GenerateKey()
				if err != nil {
					return err
				}
				if envFile == "" {
					fmt.Fprintln(app.Writer, key)
					return nil
				}

				replaced, err := writeKeyToEnvFile(envFile, key)
				if err != nil {
					return err
				}
				if replaced {
					fmt.Fprintf(app.Writer, "Replaced %s in %s. Data encrypted with the old key can no longer be read.\n", encryptionKeyVar, envFile)
				} else {
					fmt.Fprintf(app.Writer, "Wrote %s to %s\n", encryptionKeyVar, envFile)
				}
				return nil
			},
		},
		{
			Name:  "migrate",
			Usage: "Create or update the registry tables",
			Action: withEnvironment(func(ctx context.Context, env *environment) error {
				if err := db.Migrate(env.store.ORM.WithContext(ctx)); err != nil {
					return err
				}
				fmt.Fprintln(app.Writer, "Migration complete")
				return nil
			}),
		},
	}
	return app
}

func writeExport(stdout io.Writer, target string, view *dtos.DerivedView) error {
	if target == "-" {
		return services.WriteJSON(stdout, view)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if err := services.WriteJSON(f, view); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeKeyToEnvFile sets the encryption key in a dotenv file, creating the
// file when missing. Other entries are kept; comments are not.
func writeKeyToEnvFile(path, key string) (replaced bool, err error) {
	entries, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		entries = map[string]string{}
	} else if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	_, replaced = entries[encryptionKeyVar]
	entries[encryptionKeyVar] = key
	if err := godotenv.Write(entries, path); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return replaced, nil
}

func printImportSummary(w io.Writer, result *jobs.BatchResult) {
	fmt.Fprintf(w, "Batch %s for chapter %s: %d rows, %d imported, %d updated, %d skipped, %d errors (%s)\n",
		result.BatchID, result.ChapterName, result.Total, result.Imported, result.Updated,
		result.Skipped, result.Errors, result.Status)
	fmt.Fprintf(w, "Chapter %s now has %d members\n", result.ChapterName, result.ChapterMembers)
	if len(result.UnknownColumns) > 0 {
		fmt.Fprintf(w, "Ignored columns: %s\n", strings.Join(result.UnknownColumns, ", "))
	}
	for _, rowErr := range result.RowErrors {
		fmt.Fprintf(w, "  row %d: %s\n", rowErr.Row, rowErr.Error)
	}
}

func printChapterStats(w io.Writer, stats *dtos.ChapterStats) {
	fmt.Fprintf(w, "Chapter %s (%s, %s)\n", stats.Chapter, stats.Organization, stats.Status)
	fmt.Fprintf(w, "  members: %d of %d in the organization\n", stats.Members, stats.OrganizationMembers)
	if stats.UniversityID == nil {
		fmt.Fprintln(w, "  university: not linked")
	}
	if last := stats.LastImport; last != nil {
		fmt.Fprintf(w, "  last import: %s %s (%s, %d rows)\n",
			last.StartedAt.Format(time.RFC3339), last.FileName, last.Status, last.TotalRows)
	} else {
		fmt.Fprintln(w, "  last import: never")
	}
}
