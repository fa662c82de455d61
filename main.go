package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/mirseo/updrm/engine"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "updrm"
	app.Usage = "Embed recoverable payloads in PNG and PDF files"
	app.Version = engine.Version
	app.Flags = getFlags()
	app.Writer = out
	app.ErrWriter = errOut
	app.Commands = []cli.Command{
		{
			Name:  "write",
			Usage: "embed a payload into a file, replacing it in place",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file, f",
					Usage: "host `FILE` to embed into",
				},
				cli.StringFlag{
					Name:  "data, d",
					Usage: "text payload",
				},
				cli.StringFlag{
					Name:  "data-file",
					Usage: "read a binary payload from `FILE`",
				},
			},
			Action: func(c *cli.Context) error {
				e, err := newEngine(c)
				if err != nil {
					return err
				}
				path, err := requireFile(c)
				if err != nil {
					return err
				}
				payload, err := readPayload(c.String("data"), c.String("data-file"))
				if err != nil {
					return err
				}
				return e.Write(path, payload)
			},
		},
		{
			Name:  "read",
			Usage: "print the payload embedded in a file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file, f",
					Usage: "host `FILE` to read from",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "write the payload to `FILE` instead of stdout",
				},
			},
			Action: func(c *cli.Context) error {
				e, err := newEngine(c)
				if err != nil {
					return err
				}
				path, err := requireFile(c)
				if err != nil {
					return err
				}
				payload, err := e.Read(path)
				if err != nil {
					return err
				}
				if dst := c.String("out"); dst != "" {
					return ioutil.WriteFile(dst, payload, 0644)
				}
				_, err = c.App.Writer.Write(payload)
				return err
			},
		},
		{
			Name:  "info",
			Usage: "report a file's capacity and whether it carries a payload",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "file, f",
					Usage: "host `FILE` to inspect",
				},
			},
			Action: func(c *cli.Context) error {
				e, err := newEngine(c)
				if err != nil {
					return err
				}
				path, err := requireFile(c)
				if err != nil {
					return err
				}
				info, err := e.InspectFile(path)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(c.App.Writer, info)
				return err
			},
		},
	}
	return app
}

func getFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from `FILE`",
		},
		cli.StringFlag{
			Name:  "level, l",
			Usage: "logging level [debug|info|warn|error]",
			Value: "info",
		},
	}
}

// newEngine builds an Engine from the configuration file, letting an
// explicit --level override the file.
func newEngine(c *cli.Context) (*engine.Engine, error) {
	config, err := engine.NewConfig(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if c.GlobalIsSet("level") {
		level, err := engine.GetLogLevel(c.GlobalString("level"))
		if err != nil {
			return nil, err
		}
		config.LogLevel = level
	}
	e, err := engine.New(config)
	if err != nil {
		return nil, err
	}
	e.Logger().SetWriter(c.App.ErrWriter)
	e.Logger().Prefix("[" + c.Command.Name + "] ")
	return e, nil
}

func requireFile(c *cli.Context) (string, error) {
	path := c.String("file")
	if path == "" {
		return "", errors.New("missing required --file")
	}
	return path, nil
}

// readPayload selects the text or binary payload source. Exactly one must
// be given.
func readPayload(text, file string) (engine.Payload, error) {
	switch {
	case text != "" && file != "":
		return engine.Payload{}, errors.New("--data and --data-file are mutually exclusive")
	case text != "":
		return engine.Text(text), nil
	case file != "":
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return engine.Payload{}, errors.Wrap(err, "failed to read payload file")
		}
		return engine.Bytes(data), nil
	}
	return engine.Payload{}, errors.New("one of --data or --data-file is required")
}
