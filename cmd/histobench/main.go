// Command histobench tunes, times and validates histogram execution
// plans for a sweep of histogram sizes on one device.
//
// Every configuration is validated against the sequential golden
// histogram; the first failure of any kind aborts the process with a
// diagnostic and a non-zero status.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hdc-lab/histotune"
	"github.com/hdc-lab/histotune/internal/telemetry"
)

func main() {
	var (
		deviceID    = flag.Int("device", 0, "Device index to bind to")
		n           = flag.Int("n", 1_000_000, "Input length")
		bins        = flag.String("bins", "127", "Comma-separated histogram sizes to sweep")
		gpuRuns     = flag.Int("runs", 50, "Timed device passes per configuration")
		cpuRuns     = flag.Int("cpu-runs", histotune.DefaultCPURuns, "Repetitions for the sequential baseline")
		policyName  = flag.String("policy", "count", "Histogram policy: count, sum or max")
		kindName    = flag.String("kind", "add", "Atomic kind for count/sum: add, cas or xcg")
		pathName    = flag.String("path", "shared", "Execution path: shared or global")
		rf          = flag.Int("rf", 1, "Access redundancy factor for the global-memory planner")
		blockSize   = flag.Int("block", 256, "Block size for the global-memory path")
		seed        = flag.Int64("seed", 1, "Input generator seed")
		logSession  = flag.String("log", "", "Session name for JSON run logging (empty disables)")
		metricsAddr = flag.String("metrics-addr", "", "Address for live Prometheus metrics (empty disables)")
	)
	flag.Parse()

	ctx, err := histotune.NewContext(*deviceID)
	if err != nil {
		fatal(err)
	}
	defer ctx.Destroy()

	dev := ctx.Device()
	fmt.Printf("Device name: %s\n", dev.Name)
	fmt.Printf("Number of hardware threads: %d\n", dev.HardwareThreads())
	fmt.Printf("Block size: %d\n", dev.MaxThreadsPerBlock)
	fmt.Printf("Shared memory size: %d\n", dev.SharedMemPerBlock)
	fmt.Println("====")

	if *logSession != "" {
		if err := histotune.InitRunLogger(*logSession); err != nil {
			fatal(err)
		}
	}
	if err := telemetry.Enable(telemetry.Config{
		Enabled:     *metricsAddr != "",
		MetricsAddr: *metricsAddr,
	}); err != nil {
		fatal(err)
	}

	kind, err := histotune.ParseAtomicKind(*kindName)
	if err != nil {
		fatal(err)
	}

	hValues, err := parseBins(*bins)
	if err != nil {
		fatal(err)
	}

	input := histotune.RandomInt32s(*n, *seed)
	dInput, err := ctx.Malloc(*n * 4)
	if err != nil {
		fatal(err)
	}
	defer ctx.Free(dInput)
	if err := ctx.Memcpy(dInput, input, *n*4, histotune.MemcpyHostToDevice); err != nil {
		fatal(err)
	}

	for _, h := range hValues {
		cfg := histotune.RunConfig{H: h, N: *n, GPURuns: *gpuRuns}
		switch *policyName {
		case "count":
			benchOne(ctx, histotune.CountPolicy{K: kind}, cfg, *pathName, *rf, *blockSize, *cpuRuns, dInput, input)
		case "sum":
			benchOne(ctx, histotune.SumPolicy{K: kind}, cfg, *pathName, *rf, *blockSize, *cpuRuns, dInput, input)
		case "max":
			benchOne(ctx, histotune.MaxPolicy{}, cfg, *pathName, *rf, *blockSize, *cpuRuns, dInput, input)
		default:
			fatal(fmt.Errorf("unknown policy %q", *policyName))
		}
	}
}

// benchOne runs one configuration end to end and reports it. Any failure
// is terminal for the process: a benchmark either fully succeeds or
// aborts.
func benchOne[A histotune.Accum](ctx *histotune.Context, p histotune.Policy[int32, A], cfg histotune.RunConfig, path string, rf, blockSize, cpuRuns int, dInput histotune.DevicePtr, input []int32) {
	ref, baseline := histotune.TimeGolden(p, cfg.H, input, cpuRuns)

	rec := histotune.RunRecord{
		Name: fmt.Sprintf("%s/H%d", path, cfg.H),
		Path: path,
		H:    cfg.H,
		N:    cfg.N,
		Kind: p.Kind().String(),
	}

	var mean time.Duration
	var err error
	switch path {
	case "shared":
		var plan histotune.Plan
		plan, err = histotune.PlanFor[A](ctx, cfg.H, cfg.N, p.Kind())
		if err == nil {
			rec.M = plan.M
			rec.NumChunks = plan.NumChunks
			rec.NumBlocks = plan.NumBlocks
			rec.ShmemSize = plan.ShmemSize
			mean, err = histotune.RunShared(ctx, p, cfg, dInput, ref)
		}
	case "global":
		var plan histotune.GlobalPlan
		plan, err = histotune.PlanGlobal(ctx, p.Kind(), rf, cfg.H, cfg.N)
		if err == nil {
			rec.M = plan.M
			rec.NumChunks = plan.NumChunks
			mean, err = histotune.RunGlobal(ctx, p, cfg, plan, blockSize, dInput, ref)
		}
	default:
		err = fmt.Errorf("unknown path %q", path)
	}

	if err != nil {
		rec.Status = "fail"
		rec.Error = err.Error()
		histotune.LogRunRecord(rec)
		telemetry.ObserveRun(0, false)
		fatal(err)
	}

	meanUS := histotune.Microseconds(mean)
	rec.Status = "pass"
	rec.MeanLatencyUS = meanUS
	rec.BaselineUS = histotune.Microseconds(baseline)
	histotune.LogRunRecord(rec)
	telemetry.ObserveRun(meanUS, true)

	fmt.Printf("H=%-7d kind=%-3s plan{M=%d chunks=%d blocks=%d shmem=%dB}  gpu=%9.2fus  cpu=%9.2fus  speedup=%5.2fx\n",
		cfg.H, p.Kind(), rec.M, rec.NumChunks, rec.NumBlocks, rec.ShmemSize,
		meanUS, rec.BaselineUS, rec.BaselineUS/meanUS)
}

// parseBins parses the comma-separated -bins flag
func parseBins(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || h < 1 {
			return nil, fmt.Errorf("invalid histogram size %q", p)
		}
		out = append(out, h)
	}
	return out, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "histobench: %v\n", err)
	os.Exit(1)
}
