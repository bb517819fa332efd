package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/avoidbot/pkg/config"
	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

type speeds struct {
	Left  motion.Speed `arg:"" help:"Left side speed."`
	Right motion.Speed `arg:"" help:"Right side speed."`
}

var CLI struct {
	Config  string        `help:"Config file." default:"/etc/avoidbot.yaml" type:"path"`
	Backend string        `help:"Override the motor back end (yahboom, motordev, dummy)."`
	For     time.Duration `help:"Stop again after this long; zero leaves the motors running."`

	Run       speeds   `cmd:"" help:"Drive forwards."`
	SpinLeft  speeds   `cmd:"" help:"Spin anticlockwise."`
	SpinRight speeds   `cmd:"" help:"Spin clockwise."`
	Stop      struct{} `cmd:"" help:"Stop the motors."`
}

func main() {
	k := kong.Parse(&CLI, kong.Description("Send one command to the motors."))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Println("Bad config:", err)
		os.Exit(2)
	}
	if CLI.Backend != "" {
		cfg.Motors.Backend = CLI.Backend
	}

	motors, closeMotors, err := cfg.OpenMotors(log.New(os.Stdout, "", 0))
	if err != nil {
		fmt.Println("Failed to open motors:", err)
		os.Exit(1)
	}
	defer closeMotors()

	var cmd motion.Command
	switch k.Command() {
	case "run <left> <right>":
		cmd = motion.RunCmd(CLI.Run.Left, CLI.Run.Right)
	case "spin-left <left> <right>":
		cmd = motion.SpinLeftCmd(CLI.SpinLeft.Left, CLI.SpinLeft.Right)
	case "spin-right <left> <right>":
		cmd = motion.SpinRightCmd(CLI.SpinRight.Left, CLI.SpinRight.Right)
	case "stop":
		cmd = motion.StopCmd()
	default:
		panic(k.Command())
	}

	fmt.Println("Sending", cmd)
	if err := cmd.Apply(motors); err != nil {
		fmt.Println("Motor command failed:", err)
		closeMotors()
		os.Exit(1)
	}
	if CLI.For > 0 && cmd.Kind != motion.KindStop {
		time.Sleep(CLI.For)
		fmt.Println("Sending", motion.StopCmd())
		if err := motors.Stop(); err != nil {
			fmt.Println("Stop failed:", err)
		}
	}
}
