// Command admintoken mints an admin JWT for the calbot HTTP API using the
// same configuration the server loads.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"calbot/internal/config"
	"calbot/pkg/utils"
)

func main() {
	app := &cli.App{
		Name:  "admintoken",
		Usage: "mint an admin token for /api routes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the calbot config file",
				EnvVars: []string{"CALBOT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "subject",
				Usage: "token subject",
				Value: "operator",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "token lifetime",
				Value: 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			token, err := utils.CreateToken([]byte(cfg.Server.JWTSecret), c.String("subject"), utils.RoleAdmin, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
