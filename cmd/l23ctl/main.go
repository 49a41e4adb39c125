package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/danmuck/layer23/internal/vty"
	"github.com/urfave/cli/v2"
)

// defaultPort matches the runtime's default vty port.
const defaultPort = 4247

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "l23ctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "l23ctl",
		Usage: "query or stop a running layer23 process over its vty port",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "127.0.0.1", Usage: "vty host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: defaultPort, Usage: "vty port"},
		},
		Commands: []*cli.Command{
			{Name: "status", Usage: "print runtime status", Action: action("status")},
			{Name: "entities", Usage: "list mobile stations", Action: action("entities")},
			{Name: "quit", Usage: "stop the runtime without consulting the application", Action: action("quit")},
		},
	}
}

func action(name string) cli.ActionFunc {
	return func(c *cli.Context) error {
		addr := net.JoinHostPort(c.String("host"), strconv.Itoa(c.Int("port")))
		client := vty.NewClient(addr)
		defer client.Close()

		var out json.RawMessage
		if err := client.Call(name, &out); err != nil {
			return fmt.Errorf("%s %s: %w", name, addr, err)
		}
		if len(out) == 0 {
			fmt.Fprintln(c.App.Writer, "ok")
			return nil
		}
		pretty, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, string(pretty))
		return nil
	}
}
