package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"

	"github.com/parley-social/parley/gate"
	"github.com/parley-social/parley/server"
	"github.com/parley-social/parley/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting process", "err", err.Error())
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "parley",
		Usage:   "parley API daemon",
		Version: versioninfo.Short(),
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"PARLEY_LOG_LEVEL", "LOG_LEVEL"},
		},
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:   "serve",
			Usage:  "run the API daemon",
			Action: runServe,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "bind",
					Usage:   "IP or address, and port, to listen on for HTTP APIs",
					Value:   ":2510",
					EnvVars: []string{"PARLEY_BIND"},
				},
				&cli.StringFlag{
					Name:    "db-url",
					Usage:   "database connection string",
					Value:   "sqlite://data/parley/parley.sqlite",
					EnvVars: []string{"DATABASE_URL"},
				},
				&cli.IntFlag{
					Name:    "max-db-conn",
					Usage:   "limit on size of database connection pool",
					Value:   40,
					EnvVars: []string{"MAX_DB_CONNECTIONS"},
				},
				&cli.StringFlag{
					Name:    "redis-url",
					Usage:   "redis connection for the shared kv cache; empty uses an in-process store (dev only)",
					EnvVars: []string{"PARLEY_REDIS_URL", "REDIS_URL"},
				},
				&cli.StringFlag{
					Name:    "admin-password",
					Usage:   "secret password/token for accessing admin endpoints (random is used if not set)",
					EnvVars: []string{"PARLEY_ADMIN_PASSWORD"},
				},
				&cli.StringFlag{
					Name:    "allowlist-secret-ref",
					Usage:   "secret store reference for the automation allowlist; empty disables the allowlist",
					EnvVars: []string{"PARLEY_ALLOWLIST_SECRET_REF"},
				},
				&cli.DurationFlag{
					Name:    "allowlist-ttl",
					Usage:   "freshness window for the automation allowlist",
					Value:   gate.DefaultAllowlistTTL,
					EnvVars: []string{"PARLEY_ALLOWLIST_TTL"},
				},
				&cli.StringFlag{
					Name:    "secret-store-url",
					Usage:   "base URL of the secret store",
					EnvVars: []string{"PARLEY_SECRET_STORE_URL"},
				},
				&cli.StringFlag{
					Name:    "secret-store-token",
					Usage:   "bearer token for the secret store",
					EnvVars: []string{"PARLEY_SECRET_STORE_TOKEN"},
				},
			},
		},
	}
	return app.Run(args)
}

func runServe(cctx *cli.Context) error {
	logger, err := cliutil.SetupSlog(cctx.String("log-level"))
	if err != nil {
		return err
	}

	db, err := cliutil.SetupDatabase(cctx.String("db-url"), cctx.Int("max-db-conn"))
	if err != nil {
		return err
	}

	var kv gate.KVStore
	if redisURL := cctx.String("redis-url"); redisURL != "" {
		kv, err = gate.NewRedisKVStore(redisURL)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no redis configured; ip blocks will not propagate across processes")
		kv = gate.NewMemKVStore(100_000, 7*24*time.Hour)
	}

	var secrets gate.SecretSource
	if ref := cctx.String("allowlist-secret-ref"); ref != "" {
		storeURL := cctx.String("secret-store-url")
		if storeURL == "" {
			return fmt.Errorf("allowlist-secret-ref requires secret-store-url")
		}
		secrets = gate.NewHTTPSecretSource(storeURL, cctx.String("secret-store-token"), logger)
	}

	adminPassword := cctx.String("admin-password")
	if adminPassword == "" {
		var rblob [10]byte
		if _, err := rand.Read(rblob[:]); err != nil {
			return err
		}
		adminPassword = base64.URLEncoding.EncodeToString(rblob[:])
		logger.Info("generated random admin password", "username", "admin", "password", adminPassword)
	}

	srv, err := server.NewServer(db, kv, secrets, server.Config{
		Logger:             logger,
		Bind:               cctx.String("bind"),
		AdminPassword:      adminPassword,
		AllowlistSecretRef: cctx.String("allowlist-secret-ref"),
		AllowlistTTL:       cctx.Duration("allowlist-ttl"),
	})
	if err != nil {
		return err
	}

	return srv.RunAPI()
}
