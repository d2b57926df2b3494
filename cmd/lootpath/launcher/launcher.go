package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/secret-loot-path/fhe"
	"github.com/rony4d/secret-loot-path/flags"
	"github.com/rony4d/secret-loot-path/integration"
	"github.com/rony4d/secret-loot-path/lootpath/genesis"
	"github.com/rony4d/secret-loot-path/wallet"
)

var errEphemeralKeys = errors.New("command needs a persistent key session; drop --keys.ephemeral")

func newApp() *cli.App {
	app := flags.NewApp()
	app.Commands = []cli.Command{
		{
			Name:  "keys",
			Usage: "Manage the envelope key session",
			Subcommands: []cli.Command{
				{Name: "init", Usage: "Create and export a new key session", Action: keysInit},
				{Name: "show", Usage: "Print the key reference of the stored session", Action: keysShow},
			},
		},
		{
			Name:  "envelope",
			Usage: "Seal and open scalar envelopes",
			Subcommands: []cli.Command{
				{Name: "encrypt", Usage: "Seal <value> and print the envelope as JSON", ArgsUsage: "<value>", Action: envelopeEncrypt},
				{Name: "decrypt", Usage: "Open an envelope given as JSON", ArgsUsage: "<json>", Action: envelopeDecrypt},
			},
		},
		{
			Name:  "season",
			Usage: "Inspect the season catalogue",
			Subcommands: []cli.Command{
				{Name: "show", Usage: "List the tier offers and thresholds", Action: seasonShow},
			},
		},
		{
			Name:   "demo",
			Usage:  "Open a season, grant experience, unlock, claim and purchase against the simulated chain",
			Action: demo,
		},
	}
	return app
}

// Launch runs the CLI with the given arguments.
func Launch(args []string) error {
	return newApp().Run(args)
}

// prepare builds the config and logger every command starts from.
func prepare(ctx *cli.Context) (Config, *logrus.Logger, error) {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return Config{}, nil, err
	}
	log, err := setupLogging(cfg.Logging, cfg.Sentry)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, log, nil
}

func keysInit(ctx *cli.Context) error {
	cfg, log, err := prepare(ctx)
	if err != nil {
		return err
	}
	dir := cfg.KeysDir()
	if dir == "" {
		return errEphemeralKeys
	}
	if ks, err := fhe.LoadKeySession(dir); err == nil {
		ks.Destroy()
		return fmt.Errorf("key session already exists in %s", dir)
	}
	return fhe.WithKeySession(func(ks *fhe.KeySession) error {
		if err := ks.Export(dir); err != nil {
			return err
		}
		log.WithField("dir", dir).Info("Key session exported")
		fmt.Fprintln(ctx.App.Writer, ks.Ref().String())
		return nil
	})
}

func keysShow(ctx *cli.Context) error {
	return withStoredKeys(ctx, func(_ *fhe.Service, ks *fhe.KeySession) error {
		fmt.Fprintln(ctx.App.Writer, ks.Ref().String())
		return nil
	})
}

func withStoredKeys(ctx *cli.Context, fn func(svc *fhe.Service, ks *fhe.KeySession) error) error {
	cfg, log, err := prepare(ctx)
	if err != nil {
		return err
	}
	dir := cfg.KeysDir()
	if dir == "" {
		return errEphemeralKeys
	}
	ks, err := fhe.LoadKeySession(dir)
	if err != nil {
		return err
	}
	defer ks.Destroy()
	return fn(fhe.NewService(fhe.WithLogger(log)), ks)
}

func envelopeEncrypt(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one value, got %d arguments", ctx.NArg())
	}
	value, err := strconv.ParseInt(ctx.Args().First(), 10, 64)
	if err != nil {
		return err
	}
	return withStoredKeys(ctx, func(svc *fhe.Service, ks *fhe.KeySession) error {
		env, err := svc.Encrypt(ks, value)
		if err != nil {
			return err
		}
		out, err := json.Marshal(env)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, string(out))
		return nil
	})
}

func envelopeDecrypt(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one envelope, got %d arguments", ctx.NArg())
	}
	var env fhe.Envelope
	if err := json.Unmarshal([]byte(ctx.Args().First()), &env); err != nil {
		return fmt.Errorf("parse envelope: %w", err)
	}
	return withStoredKeys(ctx, func(svc *fhe.Service, ks *fhe.KeySession) error {
		v, err := svc.Decrypt(ks, env)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, v)
		return nil
	})
}

func seasonShow(ctx *cli.Context) error {
	cfg, _, err := prepare(ctx)
	if err != nil {
		return err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	printSeason(ctx.App.Writer, genesis.DefaultSeason(), rules.Progression.Thresholds)
	return nil
}

func printSeason(w io.Writer, season genesis.Season, thresholds []int64) {
	fmt.Fprintf(w, "%s\n%s\n\n", season.Name, season.Description)
	for _, o := range season.Offers {
		xp := "-"
		if int(o.Tier) < len(thresholds) {
			xp = strconv.FormatInt(thresholds[o.Tier], 10)
		}
		fmt.Fprintf(w, "Tier %d  %-20s %-9s %-10s xp>=%-5s %s\n",
			o.Tier, o.Title, o.Price(), o.Rarity, xp, strings.Join(o.VisibleRewards(), ", "))
	}
}

func demo(ctx *cli.Context) error {
	cfg, log, err := prepare(ctx)
	if err != nil {
		return err
	}
	rcfg, err := cfg.Runtime()
	if err != nil {
		return err
	}
	rcfg.Log = log
	rt, err := integration.New(rcfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	var player *wallet.Keyed
	if cfg.Wallet != "" {
		player, err = wallet.LoadKeyed(cfg.Wallet)
	} else {
		player, err = wallet.NewKeyed()
	}
	if err != nil {
		return err
	}
	player.Connect()
	return runDemo(context.Background(), rt, ctx.App.Writer, player)
}
