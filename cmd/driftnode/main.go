// Command driftnode wires the Node engine to a TOML config file and CLI
// flags, modeled on the teacher's cmd/kcn/main.go (urfave/cli.v1 +
// naoina/toml + prometheus).
package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/naoina/toml"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "gopkg.in/urfave/cli.v1"

	glog "github.com/driftchain/driftchain/log"
	"github.com/driftchain/driftchain/node"

	"net/http"
)

var logger = glog.NewModuleLogger(glog.Main)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML config file",
	}
	portFlag = cli.IntFlag{
		Name:  "port",
		Usage: "TCP listen port",
		Value: 5050,
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "directory holding accounts.dat, ledger.dat, pool.dat",
		Value: "./data",
	}
	peersFlag = cli.StringSliceFlag{
		Name:  "peer",
		Usage: "peer address host:port (repeatable)",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "address to serve /metrics on, empty to disable",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "driftnode"
	app.Usage = "a peer-to-peer ledger node"
	app.Flags = []cli.Flag{configFlag, portFlag, dataDirFlag, peersFlag, metricsAddrFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logger.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := node.DefaultConfig()

	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := loadConfigFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if ctx.IsSet(portFlag.Name) {
		cfg.ListenPort = ctx.Int(portFlag.Name)
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if peers := ctx.StringSlice(peersFlag.Name); len(peers) > 0 {
		cfg.Peers = peers
	}
	if cfg.InboxSize == 0 {
		cfg.InboxSize = 256
	}

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		go serveMetrics(addr)
	}

	n := node.New(cfg)
	if err := n.Listen(); err != nil {
		return err
	}
	logger.Info("node listening", "host", cfg.ListenHost, "port", cfg.ListenPort, "peers", cfg.Peers)
	go n.StartupSync()

	select {} // the listener and consumer goroutines run as daemons
}

func loadConfigFile(path string) (node.Config, error) {
	cfg := node.DefaultConfig()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func serveMetrics(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}
