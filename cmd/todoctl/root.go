package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BuzzLyutic/todo-board/internal/client"
)

// cli carries the settings shared by every subcommand.
type cli struct {
	v *viper.Viper
}

func (c *cli) client() *client.Client {
	return client.New(c.v.GetString("server"), c.v.GetDuration("timeout"))
}

func (c *cli) output() string {
	return c.v.GetString("output")
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "todoctl",
		Short: "todoctl - command line client for todo-board",
		Long: `todoctl talks to a todo-board server.

Settings are read from ~/.todoctl.yaml, then TODOCTL_* environment
variables, then flags:

  server:  http://localhost:8080
  timeout: 10s
  output:  table`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default ~/.todoctl.yaml)")
	root.PersistentFlags().StringP("server", "s", "http://localhost:8080", "server base URL")
	root.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")

	root.AddCommand(
		addCmd(c),
		listCmd(c),
		todayCmd(c),
		weekCmd(c),
		boardCmd(c),
		doneCmd(c),
		postponeCmd(c),
		scheduleCmd(c),
		moveCmd(c),
		reorderCmd(c),
		rmCmd(c),
		statsCmd(c),
		tagsCmd(c),
		watchCmd(c),
	)
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	for _, key := range []string{"server", "timeout", "output"} {
		if err := c.v.BindPFlag(key, flags.Lookup(key)); err != nil {
			return err
		}
	}

	c.v.SetEnvPrefix("TODOCTL")
	c.v.AutomaticEnv()

	if path, _ := flags.GetString("config"); path != "" {
		c.v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil // без домашнего каталога живем на флагах и env
		}
		c.v.AddConfigPath(home)
		c.v.SetConfigName(".todoctl")
		c.v.SetConfigType("yaml")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	switch c.output() {
	case "table", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unknown output format %q", c.output())
	}
}
