package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/h3tier/h3cache/controller"
	"github.com/h3tier/h3cache/store"
	_ "github.com/h3tier/h3cache/store/kvdriver"
	_ "github.com/h3tier/h3cache/store/memdriver"
)

// sweepCommand groups the two one-shot cold-only passes the lifecycle
// design leaves for external scheduling (cron, systemd timer, ...)
// rather than running them inside the long-lived controller process.
func sweepCommand() cli.Command {
	return cli.Command{
		Name:  "sweep",
		Usage: "run a single cold-storage lifecycle pass and exit",
		Subcommands: []cli.Command{
			{
				Name:      "expired-objects",
				Usage:     "delete cold objects past their ExpiresAt deadline",
				ArgsUsage: "--cold_storage <uri>",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "cold_storage", Usage: "cold tier URI"},
				},
				Action: runObjectExpirationSweep,
			},
			{
				Name:      "read-only",
				Usage:     "freeze cold objects past their ReadOnlyAfter deadline",
				ArgsUsage: "--cold_storage <uri>",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "cold_storage", Usage: "cold tier URI"},
				},
				Action: runReadOnlyAfterSweep,
			},
		},
	}
}

func openColdFlag(c *cli.Context) (store.Driver, error) {
	uri := c.String("cold_storage")
	if uri == "" {
		return nil, cli.NewExitError("missing required flag --cold_storage", 1)
	}
	cold, err := store.Open(uri)
	if err != nil {
		return nil, cli.NewExitError(fmt.Sprintf("opening cold tier: %v", err), 1)
	}
	return cold, nil
}

func runObjectExpirationSweep(c *cli.Context) error {
	cold, err := openColdFlag(c)
	if err != nil {
		return err
	}
	if err := controller.NewObjectExpiration(cold).Run(); err != nil {
		return cli.NewExitError(fmt.Sprintf("object-expiration sweep failed: %v", err), 1)
	}
	return nil
}

func runReadOnlyAfterSweep(c *cli.Context) error {
	cold, err := openColdFlag(c)
	if err != nil {
		return err
	}
	if err := controller.NewReadOnlyAfter(cold).Run(); err != nil {
		return cli.NewExitError(fmt.Sprintf("read-only sweep failed: %v", err), 1)
	}
	return nil
}
