package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
)

const (
	flagHelp     = "help"
	flagSocket   = "socket"
	flagSAP      = "sap"
	flagARFCN    = "arfcn"
	flagGSMTapIP = "gsmtap-ip"
	flagVTYPort  = "vty-port"
	flagDebug    = "debug"
	flagConfig   = "config"
	flagApp      = "app"
	flagLogFile  = "log-file"
)

// valueShorts are the single-letter flags that take an argument.
const valueShorts = "sSaivdcAl"

func init() {
	// -h/--help belongs to the resolver; the library must not answer it
	// before Action runs.
	cli.HelpFlag = nil
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: flagHelp, Aliases: []string{"h"}, Usage: "this text"},
		&cli.StringFlag{Name: flagSocket, Aliases: []string{"s"}, Value: DefaultLinkSocketPath, Usage: "path to the unix domain socket (l2)"},
		&cli.StringFlag{Name: flagSAP, Aliases: []string{"S"}, Value: DefaultSAPSocketPath, Usage: "path to the unix domain socket (BTSAP)"},
		&cli.Int64Flag{Name: flagARFCN, Aliases: []string{"a"}, Value: DefaultARFCN, Usage: "the ARFCN to be used for layer2"},
		&cli.StringFlag{Name: flagGSMTapIP, Aliases: []string{"i"}, Usage: "the destination IPv4 address used for GSMTAP"},
		&cli.Int64Flag{Name: flagVTYPort, Aliases: []string{"v"}, Value: DefaultVTYPort, Usage: "the management port number (0 disables)"},
		&cli.StringFlag{Name: flagDebug, Aliases: []string{"d"}, Usage: "debug category mask, e.g. DL1C:DLAPDM,1"},
		&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "TOML or YAML config file applied before flags"},
		&cli.StringFlag{Name: flagApp, Aliases: []string{"A"}, Value: DefaultApp, Usage: "layer3 application to host"},
		&cli.StringFlag{Name: flagLogFile, Aliases: []string{"l"}, Usage: "also log to this rotating file"},
	}
}

// Resolve parses argv (argv[0] is the program name) into a RuntimeConfig.
// Help and invalid values are reported as errors, never by exiting; usage
// text is written to out.
func Resolve(args []string, out io.Writer) (RuntimeConfig, error) {
	var resolved RuntimeConfig
	app := &cli.App{
		Name:           programName(args),
		Usage:          "layer2/3 host runtime for a GSM mobile station",
		HideHelp:       true,
		HideVersion:    true,
		Writer:         out,
		ErrWriter:      out,
		Flags:          flags(),
		ExitErrHandler: func(*cli.Context, error) {},
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		},
		Action: func(c *cli.Context) error {
			if c.Bool(flagHelp) {
				if err := cli.ShowAppHelp(c); err != nil {
					return err
				}
				return ErrHelpRequested
			}
			if c.NArg() > 0 {
				return fmt.Errorf("%w: unexpected argument %q", ErrInvalidArgument, c.Args().First())
			}
			cfg, err := fromContext(c)
			if err != nil {
				return err
			}
			resolved = cfg
			return nil
		},
	}
	if len(args) == 0 {
		args = []string{"layer23"}
	}
	if err := app.Run(splitJoined(args)); err != nil {
		return RuntimeConfig{}, err
	}
	return resolved, nil
}

// fromContext layers defaults, the optional config file, and explicit flags.
func fromContext(c *cli.Context) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	if c.IsSet(flagConfig) {
		path := strings.TrimSpace(c.String(flagConfig))
		var err error
		if cfg, err = LoadFile(path, cfg); err != nil {
			return RuntimeConfig{}, err
		}
		cfg.ConfigFile = path
	}

	if c.IsSet(flagSocket) {
		cfg.LinkSocketPath = c.String(flagSocket)
	}
	if c.IsSet(flagSAP) {
		cfg.SAPSocketPath = c.String(flagSAP)
	}
	if c.IsSet(flagARFCN) {
		arfcn, err := validateARFCN(c.Int64(flagARFCN))
		if err != nil {
			return RuntimeConfig{}, err
		}
		cfg.ARFCN = arfcn
	}
	if c.IsSet(flagGSMTapIP) {
		addr, err := ParseCaptureAddr(c.String(flagGSMTapIP))
		if err != nil {
			return RuntimeConfig{}, err
		}
		cfg.CaptureAddr = addr
	}
	if c.IsSet(flagVTYPort) {
		port, err := validatePort(c.Int64(flagVTYPort))
		if err != nil {
			return RuntimeConfig{}, err
		}
		cfg.VTYPort = port
	}
	if c.IsSet(flagDebug) {
		cfg.DebugMask = c.String(flagDebug)
	}
	if c.IsSet(flagApp) {
		cfg.App = strings.TrimSpace(c.String(flagApp))
	}
	if c.IsSet(flagLogFile) {
		cfg.LogFile = strings.TrimSpace(c.String(flagLogFile))
	}
	return cfg, nil
}

// splitJoined rewrites "-a100" as "-a" "100". The flag parser only accepts
// the separated form and would report the joined one as an unknown flag.
func splitJoined(args []string) []string {
	out := make([]string, 0, len(args)+4)
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' || strings.IndexByte(valueShorts, arg[1]) < 0 {
			out = append(out, arg)
			continue
		}
		switch {
		case len(arg) == 2:
			out = append(out, arg)
			if i+1 < len(args) {
				i++
				out = append(out, args[i])
			}
		case arg[2] == '=':
			out = append(out, arg)
		default:
			out = append(out, arg[:2], arg[2:])
		}
	}
	return out
}

func programName(args []string) string {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "layer23"
	}
	name := args[0]
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
