package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/avoidbot/pkg/config"
	"github.com/tigerbot-team/avoidbot/pkg/sensor"
)

var CLI struct {
	Config   string        `help:"Config file." default:"/etc/avoidbot.yaml" type:"path"`
	Interval time.Duration `help:"Time between readings." default:"100ms"`
	Count    int           `help:"Stop after this many readings; zero reads forever."`
}

func main() {
	kong.Parse(&CLI, kong.Description("Print decoded ultrasonic and IR readings."))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Println("Bad config:", err)
		os.Exit(2)
	}
	ranger, bearing, closeSensors := cfg.OpenSensors()
	defer closeSensors()

	for i := 0; CLI.Count == 0 || i < CLI.Count; i++ {
		d := ranger.Read()
		b := bearing.Read()
		fmt.Printf("%s %s\n", describe(d, true), describe(b, false))
		time.Sleep(CLI.Interval)
	}
}

func describe(r sensor.Reading, distance bool) string {
	if !r.Valid() {
		return fmt.Sprintf("<%v: %v>", sensor.KindOf(r.Err), r.Err)
	}
	if distance {
		return fmt.Sprintf("%dcm", r.Distance)
	}
	return r.Direction.String()
}
