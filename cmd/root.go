package cmd

import (
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/linklayer"
	"github.com/qnet-sim/qnet-sim/sim/trace"
)

var (
	// CLI flags for the simulation run
	seed         int64  // Master seed deriving all RNG subsystem streams
	horizon      int64  // Total simulation time (in ticks, 0 = run to empty queue)
	logLevel     string // Log verbosity level
	scenarioFile string // Optional YAML scenario file
	traceEnabled bool   // Record and summarize the dispatch trace

	// CLI flags for the two-node scenario
	pairs        int     // Requested entangled pairs
	positions    int     // Storage positions per processor (plus emission position)
	cadence      int64   // Physical-layer trigger period (ticks)
	travel       int64   // Agreed travel-time constant (ticks)
	window       int64   // Detector coincidence window (ticks)
	channelDelay int64   // One-way channel propagation delay (ticks)
	successProb  float64 // Heralding success probability per coincidence
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qnet-sim",
	Short: "Discrete-event simulator for quantum network protocol stacks",
}

// runCmd executes the two-node link-layer scenario using parameters from
// CLI flags, optionally overridden by a YAML scenario file.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the link-layer entanglement generation scenario",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		params := linklayer.DefaultScenarioParams()
		params.Pairs = pairs
		params.Positions = positions
		params.Cadence = cadence
		params.Travel = travel
		params.Window = window
		params.ChannelDelay = channelDelay
		params.SuccessProbability = successProb

		runSeed := seed
		if scenarioFile != "" {
			cfg, err := sim.LoadScenarioConfig(scenarioFile)
			if err != nil {
				logrus.Fatalf("Scenario config: %v", err)
			}
			params.Apply(cfg)
			if cfg.Seed != nil {
				runSeed = *cfg.Seed
			}
		}

		runID := uuid.New()
		logrus.Infof("run %s: seed=%d pairs=%d cadence=%d", runID, runSeed, params.Pairs, params.Cadence)

		ctx := sim.NewContext(runSeed)
		scenario := linklayer.BuildTwoNodeScenario(ctx, params)

		var dt *trace.DispatchTrace
		if traceEnabled {
			dt = trace.NewDispatchTrace()
			ctx.Kernel.OnDispatch = func(ev *sim.Event) {
				rec := trace.DispatchRecord{
					Clock:  ev.Time,
					Type:   string(ev.Type),
					Source: int64(ev.Source),
				}
				if sig, ok := sim.SignalOf(ev); ok {
					rec.Label = sig.Label
				}
				dt.Record(rec)
			}
		}

		responses := 0
		scenario.Alice.OnResponse = func(r linklayer.Response) {
			responses++
			logrus.Infof("<< Response %d/%d: purpose=%d create=%d slot=%d at %d ticks",
				responses, params.Pairs, r.PurposeID, r.CreateID, r.LogicalQubitID, ctx.Kernel.Now())
		}

		if err := scenario.Start(); err != nil {
			logrus.Fatalf("Starting protocols: %v", err)
		}
		scenario.Alice.Submit(1, params.Pairs)

		ctx.Kernel.Run(sim.RunBound{Until: horizon})

		ctx.Kernel.Metrics.Print()
		if dt != nil {
			summary := trace.Summarize(dt)
			logrus.Infof("trace: %d dispatches between ticks %d and %d",
				summary.TotalDispatches, summary.FirstClock, summary.LastClock)
			for etype, count := range summary.TypeDistribution {
				logrus.Infof("trace:   %-24s %d", etype, count)
			}
		}
		if responses < params.Pairs {
			logrus.Warnf("run ended with %d/%d responses; raise --horizon or --success-prob", responses, params.Pairs)
		}
	},
}

func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for all RNG subsystems")
	runCmd.Flags().Int64Var(&horizon, "horizon", 10_000_000, "Simulation horizon in ticks (0 = run until idle)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "YAML scenario file overriding flag defaults")
	runCmd.Flags().BoolVar(&traceEnabled, "trace", false, "Record and summarize the dispatch trace")

	runCmd.Flags().IntVar(&pairs, "pairs", 3, "Requested entangled pairs")
	runCmd.Flags().IntVar(&positions, "positions", 3, "Storage positions per processor")
	runCmd.Flags().Int64Var(&cadence, "cadence", 100, "Physical-layer trigger period in ticks")
	runCmd.Flags().Int64Var(&travel, "travel", 10000, "Request synchronization travel constant in ticks")
	runCmd.Flags().Int64Var(&window, "window", 20, "Detector coincidence window in ticks")
	runCmd.Flags().Int64Var(&channelDelay, "channel-delay", 5000, "One-way channel delay in ticks")
	runCmd.Flags().Float64Var(&successProb, "success-prob", 0.5, "Heralding success probability")

	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
