package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
)

func runVersionRelease(c *cli.Context) error {
	env := getEnv(c)
	schema, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("SCHEMA: %w", err)
	}
	release, err := env.resolver.Release(c.Context, schema)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.w, release)
	return nil
}

func runVersionSchema(c *cli.Context) error {
	env := getEnv(c)
	if c.Args().Len() < 1 {
		return fmt.Errorf("expected %s", c.Command.ArgsUsage)
	}
	schema, err := env.resolver.SchemaVersion(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(env.w, schema)
	return nil
}

func runJar(c *cli.Context) error {
	env := getEnv(c)
	if c.Args().Len() < 1 {
		return fmt.Errorf("expected %s", c.Command.ArgsUsage)
	}
	release := c.Args().First()
	if path, ok := env.jars.Existing(release); ok {
		fmt.Fprintln(env.w, path)
		return nil
	}
	if !c.Bool("download") {
		return fmt.Errorf("no jar for %s is installed, rerun with --download", release)
	}
	path, err := env.jars.Download(c.Context, release)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.w, path)
	return nil
}
