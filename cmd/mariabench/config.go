package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mariabench"
)

// RunConfig describes one benchmark run: the dataset to load, the engine
// parameters to sweep, and where to publish the artifacts afterwards. Server
// location and profiling are configured through the environment, not here.
type RunConfig struct {
	// RunID names the run in result rows and archive keys. Generated when
	// empty.
	RunID string `yaml:"run_id"`

	// Metric is the distance metric to benchmark.
	Metric string `yaml:"metric"`

	// M is the maximum vector-index graph degree. Zero keeps the server
	// default.
	M int `yaml:"m"`

	// Engine is the storage engine backing the vector table.
	Engine string `yaml:"engine"`

	// EfSearch lists the search-width values to sweep, one query pass each.
	EfSearch []int `yaml:"ef_search"`

	// K is the number of neighbors each query asks for.
	K int `yaml:"k"`

	// QPS caps the query rate per pass. Zero runs unpaced.
	QPS float64 `yaml:"qps"`

	Dataset DatasetConfig `yaml:"dataset"`
	Publish PublishConfig `yaml:"publish"`
}

// DatasetConfig selects the benchmark dataset: either fvecs/ivecs files or a
// synthetic shape generated on the fly.
type DatasetConfig struct {
	// Name tags result rows. Derived from the files or the shape when empty.
	Name string `yaml:"name"`

	// Train, Test and Neighbors are vector-file paths (fvecs/ivecs,
	// optionally .zst or .gz compressed). When Train is empty the synthetic
	// shape below is generated instead. Missing ground truth is recomputed
	// by brute force.
	Train     string `yaml:"train"`
	Test      string `yaml:"test"`
	Neighbors string `yaml:"neighbors"`

	// Synthetic shape, used when Train is empty.
	Size    int   `yaml:"size"`
	Queries int   `yaml:"queries"`
	Dim     int   `yaml:"dim"`
	Seed    int64 `yaml:"seed"`
}

// name returns the label result rows carry for this dataset.
func (d DatasetConfig) name() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Train != "" {
		return filepath.Base(d.Train)
	}
	return fmt.Sprintf("synthetic-%dx%d", d.Size, d.Dim)
}

// PublishConfig selects where run artifacts are archived. An empty backend
// keeps them in the local results directory only.
type PublishConfig struct {
	// Backend is "local", "s3" or "minio".
	Backend string `yaml:"backend"`

	// Dir is the store root for the local backend.
	Dir string `yaml:"dir"`

	// Bucket and Prefix locate the archive in object storage.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`

	// Region overrides the SDK-resolved region for the s3 backend.
	Region string `yaml:"region"`

	// RegistryTable, when set, records the completed run in this DynamoDB
	// table. s3 backend only.
	RegistryTable string `yaml:"registry_table"`

	// Endpoint is the MinIO server address. Credentials come from
	// MINIO_ACCESS_KEY / MINIO_SECRET_KEY.
	Endpoint string `yaml:"endpoint"`
	UseSSL   bool   `yaml:"use_ssl"`
}

// defaultRunConfig returns the configuration the YAML file overlays.
func defaultRunConfig() *RunConfig {
	return &RunConfig{
		Metric:   "euclidean",
		M:        16,
		Engine:   mariabench.DefaultEngine,
		EfSearch: []int{10, 20, 40, 80, 160},
		K:        10,
		Dataset: DatasetConfig{
			Size:    10000,
			Queries: 100,
			Dim:     32,
			Seed:    42,
		},
	}
}

// loadRunConfig reads the YAML file at path over the defaults.
func loadRunConfig(path string) (*RunConfig, error) {
	cfg := defaultRunConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Engine == "" {
		cfg.Engine = mariabench.DefaultEngine
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations no run could execute.
func (c *RunConfig) Validate() error {
	if len(c.EfSearch) == 0 {
		return errors.New("ef_search must list at least one value")
	}
	for _, ef := range c.EfSearch {
		if ef <= 0 {
			return fmt.Errorf("ef_search value %d must be positive", ef)
		}
	}
	if c.K <= 0 {
		return errors.New("k must be positive")
	}
	if c.M < 0 {
		return errors.New("m must not be negative")
	}
	if c.QPS < 0 {
		return errors.New("qps must not be negative")
	}

	if c.Dataset.Train == "" {
		if c.Dataset.Size <= 0 || c.Dataset.Queries <= 0 || c.Dataset.Dim <= 0 {
			return errors.New("synthetic dataset needs positive size, queries and dim")
		}
	} else if c.Dataset.Test == "" {
		return errors.New("dataset.test is required when dataset.train is set")
	}

	switch c.Publish.Backend {
	case "":
	case "local":
		if c.Publish.Dir == "" {
			return errors.New("publish.dir is required for the local backend")
		}
	case "s3":
		if c.Publish.Bucket == "" {
			return errors.New("publish.bucket is required for the s3 backend")
		}
	case "minio":
		if c.Publish.Bucket == "" {
			return errors.New("publish.bucket is required for the minio backend")
		}
		if c.Publish.Endpoint == "" {
			return errors.New("publish.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown publish backend %q", c.Publish.Backend)
	}
	return nil
}
