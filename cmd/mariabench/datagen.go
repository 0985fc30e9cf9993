package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/mariabench/dataset"
)

func newDatagenCmd() *cobra.Command {
	var (
		out        string
		queriesOut string
		truthOut   string
		n          int
		queries    int
		dim        int
		k          int
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "datagen",
		Short: "Generate a synthetic fvecs dataset",
		Long: `Datagen writes deterministic uniform vectors in fvecs format. Paths ending
in .zst or .gz are compressed. With --queries-out a disjoint query set is
generated as well, and --truth-out adds its brute-force ground truth in ivecs
format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 || dim <= 0 {
				return errors.New("--n and --dim must be positive")
			}
			if truthOut != "" && queriesOut == "" {
				return errors.New("--truth-out requires --queries-out")
			}
			if queriesOut != "" && queries <= 0 {
				return errors.New("--queries must be positive")
			}
			if truthOut != "" && k <= 0 {
				return errors.New("--k must be positive")
			}

			vectors := dataset.Synthetic(n, dim, seed)
			if err := dataset.WriteFVecs(out, vectors); err != nil {
				return err
			}
			fmt.Printf("wrote %d train vectors (dim %d) to %s\n", n, dim, out)

			if queriesOut == "" {
				return nil
			}
			qs := dataset.Synthetic(queries, dim, seed+1)
			if err := dataset.WriteFVecs(queriesOut, qs); err != nil {
				return err
			}
			fmt.Printf("wrote %d query vectors to %s\n", queries, queriesOut)

			if truthOut == "" {
				return nil
			}
			if err := dataset.WriteIVecs(truthOut, groundTruth(vectors, qs, k)); err != nil {
				return err
			}
			fmt.Printf("wrote ground truth (k=%d) to %s\n", k, truthOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "vectors.fvecs", "output fvecs path (.zst/.gz compresses)")
	cmd.Flags().StringVar(&queriesOut, "queries-out", "", "also write a disjoint query set to this path")
	cmd.Flags().StringVar(&truthOut, "truth-out", "", "also write brute-force ground truth to this ivecs path")
	cmd.Flags().IntVar(&n, "n", 10000, "number of train vectors")
	cmd.Flags().IntVar(&queries, "queries", 100, "number of query vectors")
	cmd.Flags().IntVar(&dim, "dim", 32, "vector dimensionality")
	cmd.Flags().IntVar(&k, "k", 10, "ground-truth neighbors per query")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	return cmd
}
