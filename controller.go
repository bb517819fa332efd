package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/avoidbot/pkg/avoidance"
	"github.com/tigerbot-team/avoidbot/pkg/config"
	"github.com/tigerbot-team/avoidbot/pkg/motion"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

var CLI struct {
	Config              string `help:"Config file." default:"/etc/avoidbot.yaml" type:"path"`
	DummyMotors         bool   `help:"Log motor commands instead of driving the motors."`
	IgnoreMissingMotors bool   `help:"Fall back to dummy motors if the motor back end can't be opened." env:"IGNORE_MISSING_MOTORS"`
}

func main() {
	kong.Parse(&CLI, kong.Description("Obstacle avoiding robot controller."))

	fmt.Print("---- Avoidbot ----\n\n")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Printf("Bad config: %v\n", err)
		os.Exit(2)
	}
	if CLI.DummyMotors {
		cfg.Motors.Backend = config.BackendDummy
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	motors, closeMotors, err := cfg.OpenMotors(logger)
	if err != nil {
		fmt.Printf("Failed to open %s motors: %v.\n", cfg.Motors.Backend, err)
		if !CLI.IgnoreMissingMotors {
			os.Exit(1)
		}
		fmt.Printf("Using dummy motors\n")
		motors, closeMotors = motion.Dummy(logger), func() error { return nil }
	}
	defer closeMotors()
	guard := motion.NewGuard(motors)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancel()
		// The loop stops the motors on its way out.  If it's wedged in a
		// device read, stop them from here instead.
		time.Sleep(2 * time.Second)
		log.Println("Loop didn't exit, halting motors")
		if err := guard.Halt(); err != nil {
			log.Println("Failed to halt motors:", err)
		}
		os.Exit(1)
	}()

	ranger, bearing, closeSensors := cfg.OpenSensors()
	defer closeSensors()

	metrics := telemetry.New()
	loop := avoidance.New(cfg.Avoidance, ranger, bearing, guard, logger, metrics)

	fmt.Printf("----- %s -----\n", loop.Name())
	err = loop.Run(ctx)
	if err != nil {
		fmt.Printf("%s failed: %v\n", loop.Name(), err)
	}

	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			fmt.Printf("Failed to write metrics: %v\n", werr)
		}
	}
	if err != nil {
		closeSensors()
		closeMotors()
		os.Exit(1)
	}
}
