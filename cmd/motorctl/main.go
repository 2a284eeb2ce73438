// Command motorctl drives H-bridge motors through the text console.
//
//	motorctl -port /dev/ttyACM0 motor left go 30%   # one command on a board
//	motorctl -port /dev/ttyACM0                     # interactive shell on a board
//	motorctl -sim bench.yaml -trace                 # in-process simulator
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"hbridge-go/services/config"
)

// execer answers one console line.
type execer interface {
	Exec(ctx context.Context, line string) string
}

func main() {
	port := flag.String("port", "", "serial port of a board running the console")
	baud := flag.Int("baud", 115200, "serial baud rate")
	sim := flag.String("sim", "", "run the simulator from this YAML profile")
	trace := flag.Bool("trace", false, "debug logging: simulated output writes and firmware log lines")
	timeout := flag.Duration("timeout", time.Second, "per-command reply timeout")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *trace {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var target execer
	var banner string
	switch {
	case *sim != "" && *port != "":
		log.Fatal("use either -port or -sim")
	case *sim != "":
		prof, err := config.Load(*sim)
		if err != nil {
			log.WithError(err).Fatal("loading profile")
		}
		s, err := startSim(ctx, prof, *timeout)
		if err != nil {
			log.WithError(err).Fatal("starting simulator")
		}
		defer s.Close()
		target, banner = s, "motorctl simulator ("+*sim+")"
	case *port != "":
		l, err := openSerial(*port, *baud, *timeout)
		if err != nil {
			log.WithError(err).WithField("port", *port).Fatal("opening serial port")
		}
		defer l.Close()
		l.onLog = func(line string) { log.WithField("port", *port).Debug(line) }
		target, banner = l, "motorctl on "+*port
	default:
		flag.Usage()
		os.Exit(2)
	}

	if args := flag.Args(); len(args) > 0 {
		out := target.Exec(ctx, strings.Join(args, " "))
		os.Stdout.WriteString(out + "\n")
		if strings.HasPrefix(out, "error") {
			os.Exit(1)
		}
		return
	}
	runShell(ctx, target, banner)
}
