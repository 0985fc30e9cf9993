package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/hupe1980/mariabench"
	"github.com/hupe1980/mariabench/dataset"
	"github.com/hupe1980/mariabench/publish"
	"github.com/hupe1980/mariabench/publish/minio"
	"github.com/hupe1980/mariabench/publish/s3"
	"github.com/hupe1980/mariabench/results"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark described by a YAML config",
		Long: `Run loads a dataset, fits it into a managed MariaDB server, sweeps the
configured ef_search values with one timed query pass each and appends a
result row per pass. Artifacts are archived to the configured store
afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(configPath)
			if err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "run.yaml", "path to the run configuration")
	return cmd
}

func runBenchmark(ctx context.Context, cfg *RunConfig) error {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := mariabench.NewTextLogger(slog.LevelInfo).WithRunID(runID)

	ds, err := loadDataset(cfg.Dataset, cfg.K, logger)
	if err != nil {
		return err
	}
	logger.Info("dataset ready",
		"name", cfg.Dataset.name(),
		"train", len(ds.Train),
		"test", len(ds.Test),
		"dim", ds.Dim,
	)

	metrics := &mariabench.BasicMetricsCollector{}
	adapter, err := mariabench.New(ctx, cfg.Metric,
		mariabench.Params{M: cfg.M, Engine: cfg.Engine},
		mariabench.WithLogger(logger),
		mariabench.WithMetricsCollector(metrics),
	)
	if err != nil {
		return err
	}
	// Teardown must run even when a pass fails or ctx is canceled, so the
	// server is never orphaned. Done is a no-op the second time.
	defer adapter.Done(context.WithoutCancel(ctx))

	fitStart := time.Now()
	if err := adapter.Fit(ctx, ds.Train); err != nil {
		return err
	}
	fitDuration := time.Since(fitStart)
	memoryKiB := adapter.MemoryUsage()

	csvPath := filepath.Join(adapter.ResultsDir(), "results.csv")
	jsonlPath := filepath.Join(adapter.ResultsDir(), "results.jsonl")

	for _, ef := range cfg.EfSearch {
		if err := adapter.SetQueryArguments(ctx, ef); err != nil {
			return err
		}

		snap, got, err := queryPass(ctx, adapter, ds.Test, cfg)
		if err != nil {
			return err
		}
		recall, err := results.Recall(got, ds.Neighbors, cfg.K)
		if err != nil {
			return err
		}

		row := results.RunResult{
			RunID:       runID,
			Timestamp:   time.Now(),
			Dataset:     cfg.Dataset.name(),
			Engine:      cfg.Engine,
			M:           cfg.M,
			EfSearch:    ef,
			K:           cfg.K,
			Queries:     snap.Count,
			Failures:    snap.Failures,
			Recall:      recall,
			QPS:         snap.QPS,
			Mean:        snap.Mean,
			P50:         snap.P50,
			P95:         snap.P95,
			P99:         snap.P99,
			FitDuration: fitDuration,
			MemoryKiB:   memoryKiB,
		}
		if err := results.AppendCSV(csvPath, row); err != nil {
			return err
		}
		if err := results.AppendJSONL(jsonlPath, row); err != nil {
			return err
		}

		logger.Info("pass completed",
			"ef_search", ef,
			"recall", fmt.Sprintf("%.4f", recall),
			"qps", fmt.Sprintf("%.1f", snap.QPS),
			"p95", snap.P95.Round(time.Microsecond),
			"failures", snap.Failures,
		)
	}

	// Tear down before publishing: flame graphs and cycle summaries are
	// rendered here, and the archive should include them.
	adapter.Done(ctx)

	if cfg.Publish.Backend == "" {
		logger.Info("results kept locally", "dir", adapter.ResultsDir())
		return nil
	}
	return publishRun(ctx, cfg, runID, adapter.ResultsDir(), logger)
}

// queryPass runs one timed pass over the test vectors at the current search
// width. Failed queries are counted and scored as empty result lists.
func queryPass(ctx context.Context, adapter *mariabench.Adapter, test [][]float32, cfg *RunConfig) (results.Snapshot, [][]int, error) {
	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}

	var stats results.QueryStats
	got := make([][]int, 0, len(test))
	start := time.Now()
	for _, q := range test {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return results.Snapshot{}, nil, err
			}
		}

		begin := time.Now()
		ids, err := adapter.Query(ctx, q, cfg.K)
		if err != nil {
			if ctx.Err() != nil {
				return results.Snapshot{}, nil, ctx.Err()
			}
			stats.ObserveFailure()
			got = append(got, nil)
			continue
		}
		stats.Observe(time.Since(begin))
		got = append(got, ids)
	}
	return stats.Snapshot(time.Since(start)), got, nil
}

// loadDataset assembles the dataset from files or generates it. Ground truth
// is loaded from the neighbors file when given and computed by brute force
// otherwise.
func loadDataset(cfg DatasetConfig, k int, logger *mariabench.Logger) (*dataset.Dataset, error) {
	var ds dataset.Dataset
	var err error

	if cfg.Train != "" {
		ds.Train, err = dataset.ReadFVecs(cfg.Train)
		if err != nil {
			return nil, err
		}
		ds.Test, err = dataset.ReadFVecs(cfg.Test)
		if err != nil {
			return nil, err
		}
		if cfg.Neighbors != "" {
			ds.Neighbors, err = dataset.ReadIVecs(cfg.Neighbors)
			if err != nil {
				return nil, err
			}
		}
	} else {
		ds.Train = dataset.Synthetic(cfg.Size, cfg.Dim, cfg.Seed)
		// A different seed keeps the queries disjoint from the train set.
		ds.Test = dataset.Synthetic(cfg.Queries, cfg.Dim, cfg.Seed+1)
	}

	if len(ds.Train) == 0 || len(ds.Test) == 0 {
		return nil, errors.New("dataset has no train or test vectors")
	}
	ds.Dim = len(ds.Train[0])
	if len(ds.Test[0]) != ds.Dim {
		return nil, fmt.Errorf("test dimension %d does not match train dimension %d", len(ds.Test[0]), ds.Dim)
	}

	if len(ds.Neighbors) == 0 {
		logger.Info("computing ground truth by brute force", "queries", len(ds.Test), "k", k)
		ds.Neighbors = groundTruth(ds.Train, ds.Test, k)
	}
	if len(ds.Neighbors) != len(ds.Test) {
		return nil, fmt.Errorf("%d ground-truth rows for %d test vectors", len(ds.Neighbors), len(ds.Test))
	}
	return &ds, nil
}

// groundTruth brute-forces the true top-k neighbors of every test vector.
func groundTruth(train, test [][]float32, k int) [][]int32 {
	out := make([][]int32, len(test))
	for i, q := range test {
		ids := dataset.TopK(train, q, k)
		row := make([]int32, len(ids))
		for j, id := range ids {
			row[j] = int32(id)
		}
		out[i] = row
	}
	return out
}

// publishRun archives everything under resultsDir and registers the run when
// a registry table is configured.
func publishRun(ctx context.Context, cfg *RunConfig, runID, resultsDir string, logger *mariabench.Logger) error {
	store, err := newStore(ctx, cfg.Publish)
	if err != nil {
		return err
	}

	files, err := resultFiles(resultsDir)
	if err != nil {
		return err
	}
	key, err := publish.Archive(ctx, store, runID, files)
	if err != nil {
		return err
	}
	logger.Info("artifacts published", "backend", cfg.Publish.Backend, "key", key, "files", len(files))

	if cfg.Publish.Backend != "s3" || cfg.Publish.RegistryTable == "" {
		return nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Publish.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Publish.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return err
	}

	registry := s3.NewRunRegistry(dynamodb.NewFromConfig(awsCfg), cfg.Publish.RegistryTable)
	if err := registry.Register(ctx, s3.RunRecord{
		RunID:       runID,
		Dataset:     cfg.Dataset.name(),
		Engine:      cfg.Engine,
		M:           cfg.M,
		ArchiveKey:  key,
		CompletedAt: time.Now(),
	}); err != nil {
		return err
	}
	logger.Info("run registered", "table", cfg.Publish.RegistryTable)
	return nil
}

// newStore builds the artifact store the config names.
func newStore(ctx context.Context, cfg PublishConfig) (publish.Store, error) {
	switch cfg.Backend {
	case "local":
		return publish.NewLocalStore(cfg.Dir), nil
	case "s3":
		return s3.New(ctx, cfg.Bucket, s3.WithPrefix(cfg.Prefix), s3.WithRegion(cfg.Region))
	case "minio":
		client, err := minio.Connect(cfg.Endpoint, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), cfg.UseSSL)
		if err != nil {
			return nil, err
		}
		return minio.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown publish backend %q", cfg.Backend)
	}
}

// resultFiles lists the regular files under dir, the run's publishable
// artifact set.
func resultFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
