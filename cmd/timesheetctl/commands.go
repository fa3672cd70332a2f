package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/wfm-timesheet/internal/dto"
	"github.com/noah-isme/wfm-timesheet/internal/models"
	"github.com/noah-isme/wfm-timesheet/internal/service"
)

var (
	employeeIDs []string
	dtFrom      string
	dtTo        string
	reraise     bool
	includeNorm bool
	seedFile    string
	applySeed   bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Recalculate FACT, MAIN and ADDITIONAL sheets",
	Example: `
  # Recalculate one employee for the first quarter
  timesheetctl calc --employee 6f1c... --from 2024-01-01 --to 2024-03-31
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(dtFrom, dtTo)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Timesheets.CalcTimesheet(cmd.Context(), employeeIDs, from, to, reraise)
		if err != nil {
			return err
		}
		if err := writeJSON(cmd.OutOrStdout(), stats); err != nil {
			return err
		}
		if len(stats.Errors) > 0 {
			return fmt.Errorf("%d employee-month(s) failed", len(stats.Errors))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print plan, fact, main and additional totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(dtFrom, dtTo)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats.GetTimesheetStats(cmd.Context(), models.StatsScope{
			EmployeeIDs: employeeIDs,
			DtFrom:      from,
			DtTo:        to,
			IncludeNorm: includeNorm,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), stats)
	},
}

var dayTypesCmd = &cobra.Command{
	Use:   "daytypes",
	Short: "Validate, print or store the day type catalog",
	Long: `Without --file the active catalog is printed as a YAML seed.
With --file the seed is validated; --apply additionally stores it in the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedFile == "" {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			out, err := a.Catalog.MarshalSeed()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}

		catalog, err := service.LoadDayTypeCatalogFile(seedFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seed ok: %s\n", catalog)
		if !applySeed {
			return nil
		}

		cfg.DayTypes.SeedFile = seedFile
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.SeedDayTypes(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %d day types\n", len(a.Catalog.All()))
		return nil
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Maintain production calendars",
}

var calendarImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import production calendar dates from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := readCalendarFile(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Calendar.Import(cmd.Context(), days); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d calendar dates\n", len(days))
		return nil
	},
}

var calendarInvalidateCmd = &cobra.Command{
	Use:   "invalidate [REGION]",
	Short: "Drop cached calendar months of a region, or of all regions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region := ""
		if len(args) == 1 {
			region = args[0]
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Calendar.Invalidate(cmd.Context(), region)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{calcCmd, statsCmd} {
		cmd.Flags().StringSliceVarP(&employeeIDs, "employee", "e", nil, "Employee ID (repeat or comma separated)")
		cmd.Flags().StringVar(&dtFrom, "from", "", "Start date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&dtTo, "to", "", "End date (YYYY-MM-DD)")
		_ = cmd.MarkFlagRequired("employee")
		_ = cmd.MarkFlagRequired("from")
		_ = cmd.MarkFlagRequired("to")
	}
	calcCmd.Flags().BoolVar(&reraise, "reraise", false, "Stop at the first failing employee-month")
	statsCmd.Flags().BoolVar(&includeNorm, "include-norm", false, "Attach monthly norms")

	dayTypesCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML seed with a top-level day_types list")
	dayTypesCmd.Flags().BoolVar(&applySeed, "apply", false, "Store the validated seed in the database")

	calendarCmd.AddCommand(calendarImportCmd, calendarInvalidateCmd)
}

func parseRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	from, err := time.Parse(dto.DateLayout, rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q, expected YYYY-MM-DD", rawFrom)
	}
	to, err := time.Parse(dto.DateLayout, rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q, expected YYYY-MM-DD", rawTo)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", rawTo, rawFrom)
	}
	return from, to, nil
}

func readCalendarFile(path string) ([]models.ProductionCalendarDay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	var req dto.ImportCalendarRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse calendar file: %w", err)
	}
	if err := validator.New().Struct(req); err != nil {
		return nil, fmt.Errorf("invalid calendar file: %w", err)
	}
	return req.Models()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
