// Command callmylawyer runs the legal services shop bot together with the
// payment gateway result endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/m3rciful/callmylawyer/core/buildinfo"
	corecmd "github.com/m3rciful/callmylawyer/core/cmd"
	"github.com/m3rciful/callmylawyer/internal/app"
)

func main() {
	flags := pflag.NewFlagSet("callmylawyer", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML config (overrides CONFIG_PATH)")
	version := flags.BoolP("version", "v", false, "print version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if *version {
		fmt.Println("callmylawyer", buildinfo.String())
		return
	}

	err := corecmd.Run(corecmd.Options{
		ConfigPath:        *configPath,
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := app.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			a, err := app.Bootstrap(ctx, cfg.(*app.Config), app.Options{})
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
