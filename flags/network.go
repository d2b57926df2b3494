package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags select the rules and the chain backend.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network rules (main|test|fake)",
			Value: "test",
		},
		cli.StringFlag{
			Name:  "chain.backend",
			Usage: "Simulated chain state backend (memory|sqlite)",
			Value: "sqlite",
		},
		cli.StringFlag{
			Name:  "chain.db",
			Usage: "SQLite chain database, relative to the data directory",
			Value: "chain.db",
		},
		cli.StringFlag{
			Name:  "tiers",
			Usage: "Comma-separated tier thresholds overriding the network rules",
		},
		cli.IntFlag{
			Name:  "claims.maxbatch",
			Usage: "Maximum rewards claimed in one session",
		},
	}
}
