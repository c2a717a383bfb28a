package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randytsao24/parkedup/internal/carpark"
	"github.com/randytsao24/parkedup/internal/config"
	"github.com/randytsao24/parkedup/internal/feeds"
	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/logger"
	"github.com/randytsao24/parkedup/internal/models"
)

type options struct {
	cataloguePath   string
	availabilityURL string
	timeout         time.Duration
	jsonOutput      bool
	verbose         bool
}

type searchOptions struct {
	lat, lng    float64
	maxDistance float64
	minLots     int
	minHeight   float64
	types       []string
	query       string
	limit       int
}

// newService is swapped in tests
var newService = func(opts *options) *carpark.Service {
	var logOutput io.Writer = io.Discard
	if opts.verbose {
		logOutput = os.Stderr
	}
	log := logger.NewWithWriter("development", logOutput)

	availability := feeds.NewAvailabilityClient(
		feeds.WithURL(opts.availabilityURL),
		feeds.WithTimeout(opts.timeout),
		feeds.WithRateLimit(0),
		feeds.WithLogger(log),
	)
	return carpark.NewService(feeds.NewCSVCatalogue(opts.cataloguePath), availability, time.Minute, log)
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &options{}

	root := &cobra.Command{
		Use:           "carparks",
		Short:         "Find HDB carparks with free lots",
		Long:          `Merge the HDB carpark catalogue with live availability and search it by location, lots, height and type.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cataloguePath, "catalogue", cfg.CataloguePath, "Carpark catalogue CSV path")
	root.PersistentFlags().StringVar(&opts.availabilityURL, "availability-url", cfg.AvailabilityURL, "Availability API URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", cfg.HTTPTimeout, "Upstream request timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(newSearchCmd(opts), newNearestCmd(opts), newTypesCmd(opts))
	return root
}

func newSearchCmd(opts *options) *cobra.Command {
	s := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter carparks and rank them by distance",
		Example: `  carparks search --lat 1.3 --lng 103.85 --max-distance 2 --min-lots 10
  carparks search --type surface --type multi-storey --query "ang mo kio"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := s.criteria(cmd)
			if err != nil {
				return err
			}

			svc := newService(opts)
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*opts.timeout)
			defer cancel()

			results, err := svc.Search(ctx, criteria)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.jsonOutput, results)
		},
	}

	cmd.Flags().Float64Var(&s.lat, "lat", 0, "Reference latitude")
	cmd.Flags().Float64Var(&s.lng, "lng", 0, "Reference longitude")
	cmd.Flags().Float64VarP(&s.maxDistance, "max-distance", "r", 0, "Maximum distance in km from the reference point")
	cmd.Flags().IntVar(&s.minLots, "min-lots", 0, "Minimum available lots")
	cmd.Flags().Float64Var(&s.minHeight, "min-height", 0, "Minimum gantry height in meters")
	cmd.Flags().StringSliceVarP(&s.types, "type", "t", nil, "Carpark type, repeatable")
	cmd.Flags().StringVarP(&s.query, "query", "q", "", "Address substring")
	cmd.Flags().IntVarP(&s.limit, "limit", "n", 20, "Maximum results, 0 for all")
	cmd.MarkFlagsRequiredTogether("lat", "lng")

	return cmd
}

// criteria builds filter criteria from the flags the user actually set
func (s *searchOptions) criteria(cmd *cobra.Command) (carpark.Criteria, error) {
	flags := cmd.Flags()
	c := carpark.Criteria{AddressQuery: s.query, Limit: s.limit}

	if flags.Changed("lat") {
		ref := geo.Point{Lat: s.lat, Lng: s.lng}
		if !ref.Valid() {
			return c, fmt.Errorf("reference point %s out of range", ref)
		}
		c.Reference = &ref
	}
	if flags.Changed("max-distance") {
		if c.Reference == nil {
			return c, fmt.Errorf("--max-distance needs --lat and --lng")
		}
		if s.maxDistance <= 0 {
			return c, fmt.Errorf("--max-distance must be positive")
		}
		c.MaxDistanceKm = &s.maxDistance
	}
	if flags.Changed("min-lots") {
		c.MinAvailableLots = &s.minLots
	}
	if flags.Changed("min-height") {
		c.MinGantryHeight = &s.minHeight
	}
	if s.limit < 0 {
		return c, fmt.Errorf("--limit must not be negative")
	}

	for _, raw := range s.types {
		t, ok := models.ParseCarparkType(raw)
		if !ok {
			return c, fmt.Errorf("unknown carpark type %q (see `carparks types`)", raw)
		}
		c.Types = append(c.Types, t)
	}

	return c, nil
}

func newNearestCmd(opts *options) *cobra.Command {
	var (
		lat, lng float64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "List the carparks closest to a point",
		Long:  `List the carparks closest to a point. Without --lat and --lng the centre of Singapore is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref := geo.SingaporeCenter
			if cmd.Flags().Changed("lat") {
				ref = geo.Point{Lat: lat, Lng: lng}
			}
			if !ref.Valid() {
				return fmt.Errorf("reference point %s out of range", ref)
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}

			svc := newService(opts)
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*opts.timeout)
			defer cancel()

			results, err := svc.Closest(ctx, ref, limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.jsonOutput, results)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Reference latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Reference longitude")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of carparks")
	cmd.MarkFlagsRequiredTogether("lat", "lng")

	return cmd
}

func newTypesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List carpark types accepted by --type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			types := models.AllCarparkTypes()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), types)
			}
			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func render(w io.Writer, asJSON bool, results []models.RankedCarpark) error {
	if asJSON {
		return writeJSON(w, results)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tLOTS\tDISTANCE\tGANTRY\tTYPE\tADDRESS")
	for _, r := range results {
		distance := "-"
		if r.DistanceKm != nil {
			distance = fmt.Sprintf("%.2f km", *r.DistanceKm)
		}
		gantry := "-"
		if r.GantryHeight > 0 {
			gantry = fmt.Sprintf("%.2f m", r.GantryHeight)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			r.Number, r.AvailableLots, distance, gantry,
			strings.TrimSuffix(string(r.Type), " CAR PARK"), r.Address)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
