// rota builds one week of shifts from a roster file and prints the result
// as a grid. It needs no database or server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/arnavshah/rota-matcher/internal/logging"
	"github.com/arnavshah/rota-matcher/pkg/export"
	"github.com/arnavshah/rota-matcher/pkg/models"
	"github.com/arnavshah/rota-matcher/pkg/roster"
	"github.com/arnavshah/rota-matcher/pkg/scheduler"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("rota", pflag.ContinueOnError)
	rosterPath := flags.String("roster", "", "roster CSV file (required)")
	reqPath := flags.String("requirements", "", "YAML requirements file (default counts when empty)")
	xlsxPath := flags.String("xlsx", "", "write the schedule workbook here")
	csvPath := flags.String("csv", "", "write the assignment list here")
	verbosity := flags.IntP("verbosity", "v", 0, "log verbosity")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *rosterPath == "" {
		return errors.New("--roster is required")
	}

	f, err := os.Open(*rosterPath)
	if err != nil {
		return err
	}
	res, err := roster.Import(f)
	f.Close()
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	var in *models.RequirementsInput
	if *reqPath != "" {
		if in, err = models.LoadRequirementsYAML(*reqPath); err != nil {
			return err
		}
	}

	logger := logging.New(*verbosity)
	sched, err := scheduler.NewScheduler(scheduler.NewLogObserver(logger)).Run(in, res.People)
	if err != nil {
		return err
	}
	for _, w := range sched.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	fmt.Println(export.RenderGrid(sched))
	if len(sched.Unfilled) > 0 && *verbosity > 0 {
		for _, u := range sched.Unfilled {
			fmt.Printf("%s %s %s #%d: %v\n", u.Slot.Day.Short(), u.Slot.Category, u.Slot.Profession, u.Slot.Position+1, u.Reasons)
		}
	}

	if *csvPath != "" {
		if err := writeFile(*csvPath, func(out *os.File) error { return export.WriteCSV(out, sched) }); err != nil {
			return err
		}
	}
	if *xlsxPath != "" {
		if err := writeFile(*xlsxPath, func(out *os.File) error { return export.WriteXLSX(out, sched) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}
