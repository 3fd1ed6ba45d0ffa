package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ecoles/roster/internal/conflict"
	"github.com/ecoles/roster/internal/store"
	"github.com/ecoles/roster/internal/ui"
	"github.com/ecoles/roster/internal/week"
)

// statusReport is the document printed by status --yaml.
type statusReport struct {
	Week      string           `yaml:"week"`
	Stats     store.Stats      `yaml:"stats"`
	Schools   []schoolStatus   `yaml:"schools"`
	Conflicts []conflict.Class `yaml:"conflicts"`
}

type schoolStatus struct {
	Name    string `yaml:"name"`
	File    string `yaml:"file"`
	Present bool   `yaml:"present"`
	Classes int    `yaml:"classes"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Summarize the roster, the school workbooks and staff conflicts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		stats, err := app.syncer.Stats(cmd.Context(), sess)
		if err != nil {
			return err
		}

		report := statusReport{Week: sess.Week.Name(), Stats: stats, Conflicts: []conflict.Class{}}
		for _, sc := range sess.Catalog.Schools {
			st := schoolStatus{Name: sc.Name, File: sc.File}
			ss, err := sess.School(sc.Name)
			switch {
			case err == nil:
				st.Present = true
				st.Classes = len(ss.Classes())
			case !store.IsNotFound(err):
				return err
			}
			report.Schools = append(report.Schools, st)
		}
		if reg, err := sess.Registry(); err == nil {
			report.Conflicts = conflict.Detect(reg).Classes
		} else if !store.IsNotFound(err) {
			return err
		}

		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(report)
		}
		printStatus(report)
		return nil
	},
}

func printStatus(r statusReport) {
	fmt.Println(ui.RenderHeader(r.Week))
	fmt.Printf("  Students:       %d\n", r.Stats.Total)
	fmt.Printf("  Assigned:       %d\n", r.Stats.Assigned)
	fmt.Printf("  Without class:  %d\n", r.Stats.WithoutClass)
	fmt.Printf("  Without level:  %d\n", r.Stats.WithoutLevel)
	for _, level := range store.SortedLevels(r.Stats.ByLevel) {
		fmt.Printf("    %-4s %d\n", level, r.Stats.ByLevel[level])
	}

	fmt.Println()
	rows := [][]string{{"SCHOOL", "FILE", "CLASSES"}}
	for _, s := range r.Schools {
		classes := ui.RenderMuted("missing")
		if s.Present {
			classes = strconv.Itoa(s.Classes)
		}
		rows = append(rows, []string{s.Name, s.File, classes})
	}
	fmt.Print(ui.Table(rows))

	if len(r.Conflicts) > 0 {
		fmt.Println()
		fmt.Printf("%s %d conflicting class(es), see roster staff conflicts\n", ui.RenderWarn("⚠"), len(r.Conflicts))
	}
}

var weeksCmd = &cobra.Command{
	Use:     "weeks",
	GroupID: "sync",
	Short:   "List the week folders",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if create, _ := cmd.Flags().GetBool("create"); create {
			next := 1
			if latest, err := week.Latest(app.cfg.Root); err == nil {
				next = latest.Number + 1
			}
			w, err := week.Create(app.cfg.Root, next)
			if err != nil {
				return err
			}
			fmt.Printf("%s Created %s\n", ui.RenderPass("✓"), w.Dir)
			return nil
		}

		weeks, err := week.List(app.cfg.Root)
		if err != nil {
			return err
		}
		if len(weeks) == 0 {
			fmt.Printf("No %s* folder in %s\n", week.DirPrefix, app.cfg.Root)
			return nil
		}
		rows := [][]string{{"WEEK", "ROSTER", "PERSONNEL"}}
		for _, w := range weeks {
			rows = append(rows, []string{w.Name(), present(w.RosterPath()), present(w.PersonnelPath())})
		}
		fmt.Print(ui.Table(rows))
		return nil
	},
}

func present(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ui.RenderMuted("-")
	}
	return ui.RenderPass("✓")
}

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "sync",
	Short:   "Show recent operations from the journal",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.journal == nil {
			return fmt.Errorf("journal is not available")
		}
		limit, _ := cmd.Flags().GetInt("limit")
		name := ""
		if all, _ := cmd.Flags().GetBool("all"); !all {
			w, err := week.Open(app.cfg.Root, app.cfg.Week)
			if err != nil {
				return err
			}
			name = w.Name()
		}

		entries, err := app.journal.RecentContext(cmd.Context(), name, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No operations recorded")
			return nil
		}
		rows := [][]string{{"TIME", "WEEK", "OP", "STATUS", "DETAIL"}}
		for _, e := range entries {
			status := ui.RenderPass(e.Status)
			if e.Error != "" {
				status = ui.RenderFail(e.Status)
			}
			detail := e.Detail
			if e.Error != "" {
				detail += " (" + e.Error + ")"
			}
			rows = append(rows, []string{e.Time.Local().Format("2006-01-02 15:04:05"), e.Week, e.Op, status, detail})
		}
		fmt.Print(ui.Table(rows))
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("yaml", false, "Print the status as YAML")
	weeksCmd.Flags().Bool("create", false, "Create the folder of the next week")
	historyCmd.Flags().Int("limit", 20, "Number of entries to show")
	historyCmd.Flags().Bool("all", false, "Show every week")

	rootCmd.AddCommand(statusCmd, weeksCmd, historyCmd)
}
