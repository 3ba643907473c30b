package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/warp/lifetime-engine/factory"
	"github.com/warp/lifetime-engine/generic"
)

func newAccumulateCmd(_ *rootOptions) *cobra.Command {
	var (
		descriptor string
		keyed      bool
		qs         []float64
	)

	cmd := &cobra.Command{
		Use:   "accumulate",
		Short: "Feed numbers from stdin through one accumulator",
		Long: `Reads whitespace separated numbers from stdin into the accumulator named by
--descriptor and prints its statistics. With --keyed every line is
"<key> <value>" and statistics are printed per key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := factory.ParseDescriptor([]byte(descriptor))
			if err != nil {
				return err
			}
			return accumulate(cmd.InOrStdin(), cmd.OutOrStdout(), d, keyed, qs)
		},
	}

	cmd.Flags().StringVar(&descriptor, "descriptor", `{"kind":"summary"}`, "Accumulator descriptor (JSON)")
	cmd.Flags().BoolVar(&keyed, "keyed", false, "Lines are <key> <value> pairs")
	cmd.Flags().Float64SliceVar(&qs, "q", nil, "Quantiles to report for histograms (default 0.5)")
	return cmd
}

func accumulate(r io.Reader, w io.Writer, d generic.Descriptor, keyed bool, qs []float64) error {
	if len(qs) == 0 {
		qs = []float64{0.5}
	}

	if !keyed {
		leaf, err := d.New()
		if err != nil {
			return err
		}
		sc := bufio.NewScanner(r)
		sc.Split(bufio.ScanWords)
		for sc.Scan() {
			v, err := strconv.ParseFloat(sc.Text(), 64)
			if err != nil {
				return fmt.Errorf("not a number: %q", sc.Text())
			}
			leaf.Update(v)
		}
		if err := sc.Err(); err != nil {
			return err
		}
		return report(w, "", leaf, qs)
	}

	group, err := generic.NewKeyed[string](d)
	if err != nil {
		return err
	}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return fmt.Errorf("line %d: want <key> <value>, got %q", line, sc.Text())
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("line %d: not a number: %q", line, fields[1])
		}
		group.Update(fields[0], v)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	for _, key := range group.Keys() {
		leaf, _ := group.Get(key)
		if err := report(w, key+" ", leaf, qs); err != nil {
			return err
		}
	}
	return nil
}

func report(w io.Writer, prefix string, acc generic.Leaf, qs []float64) error {
	parts := []string{"count=" + humanize.Comma(acc.Count())}

	switch a := acc.(type) {
	case *generic.SummaryStats:
		parts = append(parts,
			"mean="+formatFloat(a.Mean()),
			"stddev="+formatFloat(a.StdDev()),
			"stderr="+formatFloat(a.StdErr()),
		)
	case *generic.Quantile:
		for _, q := range qs {
			v, err := a.Quantile(q)
			if err != nil {
				return err
			}
			parts = append(parts, "q"+formatFloat(q)+"="+formatFloat(v))
		}
	}

	_, err := fmt.Fprintln(w, prefix+strings.Join(parts, " "))
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
