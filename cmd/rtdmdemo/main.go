package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rtdm/internal/job"
	"rtdm/internal/nucleus"
	"rtdm/internal/rtdm"
)

func main() {
	configPath := flag.String("config", "config.yml", "nucleus YAML config (defaults if missing)")
	csvPath := flag.String("csv", "", "write the trace as CSV to this file")
	quiet := flag.Bool("quiet", false, "do not print the trace")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Read the configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}
	logger.Info("loaded config", "config", fmt.Sprintf("%+v", cfg))

	if err := run(cfg, logger, *csvPath, *quiet); err != nil {
		logger.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

// loadConfig reads path, falling back to the defaults when there is no such
// file. A file that exists but does not parse is an error.
func loadConfig(path string) (nucleus.Config, error) {
	cfg, err := nucleus.LoadStrict(path)
	if errors.Is(err, os.ErrNotExist) {
		return nucleus.Load(path), nil
	}
	return cfg, err
}

func run(cfg nucleus.Config, logger *slog.Logger, csvPath string, quiet bool) error {
	nk := nucleus.New(cfg)
	nk.SetLogger(logger)

	tracer := nucleus.NewTracer(os.Stdout)
	if quiet {
		tracer = nucleus.NewTracer(nil)
	}
	if csvPath != "" {
		if err := tracer.EnableCSVLogging(csvPath); err != nil {
			return err
		}
	}
	traceDone := make(chan error, 1)
	go func() { traceDone <- tracer.Run(context.Background(), nk.StatusChannel()) }()

	// a device raising an interrupt every 2ms, signalling data to the driver
	ev := rtdm.NewEvent(nk, false)
	irq := nk.NewIRQLine("rx", func(context.Context) { ev.Signal() })
	irq.Start(2 * time.Millisecond)

	stats := make(chan job.Stats, 1)
	sampler, err := rtdm.NewTask(nk, "sampler", job.Sampler(ev, 20, 3, 8*time.Millisecond, stats), nil, 80, 10*time.Millisecond)
	if err != nil {
		return err
	}

	// contended counter behind a mutex
	var counter int
	m := rtdm.NewMutex(nk)
	counted := make(chan error, 2)
	for i, prio := range []int{10, 50} {
		if _, err := rtdm.NewTask(nk, fmt.Sprintf("counter%d", i), job.Counter(m, &counter, 100, counted), nil, prio, 0); err != nil {
			return err
		}
	}

	// producer/consumer over a semaphore
	sem := rtdm.NewSem(nk, 0)
	got := make(chan int, 1)
	if _, err := rtdm.NewTask(nk, "consumer", job.Consumer(sem, 10, 50*time.Millisecond, got), nil, 40, 0); err != nil {
		return err
	}
	if _, err := rtdm.NewTask(nk, "producer", job.Producer(sem, 10, time.Millisecond), nil, 30, 0); err != nil {
		return err
	}

	st := <-stats
	for i := 0; i < 2; i++ {
		if err := <-counted; err != nil {
			return fmt.Errorf("counter: %w", err)
		}
	}
	n := <-got

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sampler.JoinNRT(ctx, 0); err != nil {
		return fmt.Errorf("join sampler: %w", err)
	}
	irq.Stop()
	ev.Destroy()
	sem.Destroy()
	m.Destroy()
	if err := nk.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-traceDone; err != nil {
		return err
	}

	logger.Info("sampler", "samples", st.Samples, "overruns", st.Overruns, "timeouts", st.Timeouts, "err", st.Err)
	logger.Info("mutex", "counter", counter)
	logger.Info("semaphore", "consumed", n)
	logger.Info("irq", "line", irq.Name(), "raised", irq.Count(), "trace_dropped", nk.Dropped())
	return nil
}
