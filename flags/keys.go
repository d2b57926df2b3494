package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// KeyFlags locate key material.
func KeyFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "keys.dir",
			Usage: "Key session directory (defaults to <datadir>/keys)",
		},
		cli.BoolFlag{
			Name:  "keys.ephemeral",
			Usage: "Use a fresh key session and never write it to disk",
		},
		cli.StringFlag{
			Name:  "wallet.key",
			Usage: "Hex secp256k1 key file of the player wallet",
		},
	}
}
