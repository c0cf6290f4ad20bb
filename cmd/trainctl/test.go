package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainctl/internal/config"
	"trainctl/internal/controllers"
	"trainctl/internal/selftest"
	"trainctl/internal/system"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "One-shot hardware diagnostics",
}

var testLedCmd = &cobra.Command{
	Use:       "led {all|off|seq|random}",
	Short:     "Exercise the indicator LEDs",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"all", "off", "seq", "random"},
	RunE:      runTestLed,
}

var testPointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Throw every point to reverse and back to normal",
	Args:  cobra.NoArgs,
	RunE:  runTestPoints,
}

var testSensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Watch the occupancy sensors until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runTestSensors,
}

var testTracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Pulse the track power relay",
	Args:  cobra.NoArgs,
	RunE:  runTestTracks,
}

func init() {
	testCmd.AddCommand(testLedCmd, testPointsCmd, testSensorsCmd, testTracksCmd)
	rootCmd.AddCommand(testCmd)
}

// newTestRig claims the board for a one-shot diagnostic run. The caller
// must call Shutdown so every pin gets released again.
func newTestRig() (*system.LifecycleManager, *config.Config, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	lifecycle, err := system.NewLifecycleManager(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return lifecycle, cfg, nil
}

func runTestLed(cmd *cobra.Command, args []string) error {
	lifecycle, _, err := newTestRig()
	if err != nil {
		return err
	}
	defer lifecycle.Shutdown(context.Background())

	switch args[0] {
	case "all":
		if err := lifecycle.Leds().SetAll(true); err != nil {
			return err
		}
		fmt.Println("all leds on")
	case "off":
		if err := lifecycle.Leds().SetAll(false); err != nil {
			return err
		}
		fmt.Println("all leds off")
	case "seq":
		return runSelfTest(lifecycle.SelfTest(), lifecycle.SelfTest().StartSweep)
	case "random":
		return runSelfTest(lifecycle.SelfTest(), lifecycle.SelfTest().StartRandom)
	}
	return nil
}

// runSelfTest starts a run and waits for it to finish, forwarding Ctrl-C
// as a cancellation.
func runSelfTest(o *selftest.Orchestrator, start func(context.Context) (uuid.UUID, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.Cancel()
			fmt.Println("cancelled")
			return nil
		case <-ticker.C:
			status := o.Status()
			switch status.State {
			case selftest.StateDone:
				fmt.Printf("done: %d/%d\n", status.Progress, status.Total)
				return nil
			case selftest.StateIdle:
				if status.ErrorMessage != "" {
					return errors.New(status.ErrorMessage)
				}
				return nil
			}
		}
	}
}

func runTestPoints(cmd *cobra.Command, args []string) error {
	lifecycle, cfg, err := newTestRig()
	if err != nil {
		return err
	}
	defer lifecycle.Shutdown(context.Background())

	points := lifecycle.Points()
	for _, id := range points.IDs() {
		for _, pos := range []controllers.Position{controllers.PositionReverse, controllers.PositionNormal} {
			if err := points.SetPosition(id, pos); err != nil {
				return err
			}
			fmt.Printf("point %s set to %s\n", id, pos)
			time.Sleep(cfg.SelfTest.Dwell)
		}
	}
	return nil
}

func runTestSensors(cmd *cobra.Command, args []string) error {
	lifecycle, _, err := newTestRig()
	if err != nil {
		return err
	}
	defer lifecycle.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("watching sensors, Ctrl-C to stop")
	_, err = lifecycle.SelfTest().StartMonitor(ctx, func(change selftest.SensorChange) {
		state := "clear"
		if change.Triggered {
			state = "triggered"
		}
		fmt.Printf("%s %s\n", change.Sensor, state)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	lifecycle.SelfTest().Cancel()
	return nil
}

func runTestTracks(cmd *cobra.Command, args []string) error {
	lifecycle, cfg, err := newTestRig()
	if err != nil {
		return err
	}
	defer lifecycle.Shutdown(context.Background())

	power := lifecycle.Power()
	if err := power.Enable(); err != nil {
		return err
	}
	fmt.Println("track power on")
	time.Sleep(cfg.SelfTest.Dwell)

	if err := power.Disable(); err != nil {
		return err
	}
	fmt.Println("track power off")
	return nil
}
