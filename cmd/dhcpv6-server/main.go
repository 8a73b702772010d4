// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Command dhcpv6-server is the core's CLI entrypoint (§6), grounded on
// the teacher's cmds/coredhcp/main.go wiring shape but built on pflag
// instead of the stdlib flag package, and re-pointed at the
// supervisor's pre-listening sequence (§4.8) instead of coredhcp's
// plugin-chain startup.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sixnet/dhcpv6d/internal/config"
	"github.com/sixnet/dhcpv6d/internal/configwatch"
	"github.com/sixnet/dhcpv6d/internal/dispatch"
	"github.com/sixnet/dhcpv6d/internal/duid"
	"github.com/sixnet/dhcpv6d/internal/handler"
	_ "github.com/sixnet/dhcpv6d/internal/handler/logonly"
	"github.com/sixnet/dhcpv6d/internal/iface"
	"github.com/sixnet/dhcpv6d/internal/listener"
	"github.com/sixnet/dhcpv6d/internal/logging"
	"github.com/sixnet/dhcpv6d/internal/metrics"
	"github.com/sixnet/dhcpv6d/internal/socketset"
	"github.com/sixnet/dhcpv6d/internal/supervisor"
	"github.com/sixnet/dhcpv6d/internal/workerpool"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("dhcpv6-server", pflag.ContinueOnError)
	showConfig := flags.BoolP("show-config", "C", false, "print the resolved configuration and exit")
	verbosity := flags.CountP("verbose", "v", "increase log verbosity (-v, -vv, -vvv)")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dhcpv6-server CONFIG_FILE [-C|--show-config] [-v|-vv|-vvv]")
		return 1
	}
	configPath := flags.Arg(0)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: loading configuration: %v\n", err)
		return 1
	}

	log := logging.Setup(logging.VerbosityFromFlagCount(*verbosity), nil)
	log.Info("starting dhcpv6d", "config", configPath)

	if watcher, err := configwatch.Watch(log, configPath); err != nil {
		log.Warn("not watching configuration file for changes", "err", err)
	} else {
		defer watcher.Close()
	}

	interfaces, err := iface.New(log).Resolve(cfg)
	if err != nil {
		log.Error("resolving interfaces", "err", err)
		return 1
	}

	serverDUID, err := duid.Select(log, cfg.DUID, nil)
	if err != nil {
		log.Error("selecting server duid", "err", err)
		return 1
	}
	log.Info("selected duid", "duid", serverDUID.String())

	if *showConfig {
		printConfig(cfg, interfaces, serverDUID)
		return 0
	}

	sockets, err := socketset.Build(log, interfaces)
	if err != nil {
		log.Error("building sockets", "err", err)
		return 1
	}
	defer sockets.Close()

	if err := supervisor.DropPrivileges(log, cfg.User, cfg.Group); err != nil {
		log.Error("dropping privileges", "err", err)
		return 1
	}

	h, err := handler.Resolve(log, cfg.Handler.Descriptor(), mergeHandlerArgs(cfg.Handler))
	if err != nil {
		log.Error("resolving handler", "descriptor", cfg.Handler.Descriptor(), "err", err)
		return 1
	}

	m := metrics.New()
	pool := workerpool.New(log, cfg.Workers)
	pool.SetMetrics(m)

	listenerSockets := make([]listener.Socket, len(sockets.Sockets))
	for i, s := range sockets.Sockets {
		listenerSockets[i] = s
	}
	d := dispatch.New(log)
	l := listener.New(log, listenerSockets, pool, h, d)
	l.SetMetrics(m)

	sup := supervisor.New(log, l, pool, h, cfg.ExceptionWindowS, cfg.MaxExceptions)
	if err := sup.Run(); err != nil {
		log.Error("shutting down", "err", err)
		return 1
	}
	return 0
}

// mergeHandlerArgs folds the config-carried unknown keys into the map
// the resolved handler factory receives, per §4.1's "unknown keys
// preserved for the handler" rule.
func mergeHandlerArgs(h config.HandlerConfig) map[string]string {
	args := make(map[string]string, len(h.Unknown))
	for k, v := range h.Unknown {
		args[k] = v
	}
	return args
}

func printConfig(cfg *config.ServerConfig, interfaces map[string]config.InterfaceConfig, d fmt.Stringer) {
	fmt.Printf("[server]\n")
	fmt.Printf("duid = %s\n", d.String())
	fmt.Printf("user = %s\n", cfg.User)
	fmt.Printf("group = %s\n", cfg.Group)
	fmt.Printf("exception-window = %g\n", cfg.ExceptionWindowS)
	fmt.Printf("max-exceptions = %d\n", cfg.MaxExceptions)
	fmt.Printf("workers = %d\n", cfg.Workers)
	fmt.Printf("\n[logging]\n")
	fmt.Printf("facility = %s\n", cfg.Logging.Facility)
	fmt.Printf("\n[handler]\n")
	fmt.Printf("module = %s\n", cfg.Handler.Module)
	if cfg.Handler.Class != "" {
		fmt.Printf("class = %s\n", cfg.Handler.Class)
	}
	for name, ifc := range interfaces {
		fmt.Printf("\n[interface %s]\n", name)
		fmt.Printf("multicast = %v\n", ifc.Multicast)
		fmt.Printf("listen-to-self = %v\n", ifc.ListenToSelf)
		fmt.Printf("link-local = %v\n", ifc.LinkLocal)
		fmt.Printf("global = %v\n", ifc.Global)
	}
}
