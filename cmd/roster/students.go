package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
	rostersync "github.com/ecoles/roster/internal/sync"
	"github.com/ecoles/roster/internal/ui"
	"github.com/ecoles/roster/internal/week"
)

var assignCmd = &cobra.Command{
	Use:     "assign <student> <school> <slot> <class>",
	GroupID: "students",
	Short:   "Place a student in a class",
	Long: `Write the school, slot and class of a student to the roster and add the
student to the class list of the school workbook.

The student is found by exact, normalized or partial name. A student
listed in another class is removed from that list.

Example:
  roster assign "Dupont Marie" A 8h30 C1 --teacher Durand`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		teacher, _ := cmd.Flags().GetString("teacher")
		a := rostersync.Assignment{Student: args[0], School: args[1], Slot: args[2], Class: args[3], Teacher: teacher}
		if err := app.syncer.Assign(cmd.Context(), sess, a); err != nil {
			return err
		}
		fmt.Printf("%s %s assigned to %s (%s %s)\n", ui.RenderPass("✓"), args[0], ui.RenderAccent(args[3]), args[1], args[2])
		return nil
	},
}

var unassignCmd = &cobra.Command{
	Use:     "unassign <student>",
	GroupID: "students",
	Short:   "Remove a student from their class",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		prev, err := app.syncer.Unassign(cmd.Context(), sess, args[0])
		if err != nil {
			return err
		}
		if !prev.Placed() {
			fmt.Printf("%s %s had no class\n", ui.RenderMuted("-"), args[0])
			return nil
		}
		fmt.Printf("%s %s removed from %s (%s %s)\n", ui.RenderPass("✓"), args[0], ui.RenderAccent(prev.Class), prev.School, prev.Slot)
		return nil
	},
}

var studentCmd = &cobra.Command{
	Use:     "student",
	GroupID: "students",
	Short:   "Add, delete or list roster rows",
}

var studentAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a student to the roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		age, _ := cmd.Flags().GetString("age")
		level, _ := cmd.Flags().GetString("level")
		added, err := app.syncer.AddStudent(cmd.Context(), sess, args[0], age, level)
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("%s %s is already on the roster\n", ui.RenderMuted("-"), args[0])
			return nil
		}
		fmt.Printf("%s Added %s\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

var studentDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a student from the roster and every class list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(cmd, fmt.Sprintf("Delete %s?", args[0]), "The roster row and class list entries are removed."); err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		if err := app.syncer.DeleteStudent(cmd.Context(), sess, args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roster rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		roster, err := sess.Roster()
		if err != nil {
			return err
		}
		unassigned, _ := cmd.Flags().GetBool("unassigned")
		noLevel, _ := cmd.Flags().GetBool("no-level")

		rows := [][]string{{"STUDENT", "AGE", "LEVEL", "SCHOOL", "SLOT", "CLASS"}}
		for _, st := range filterStudents(roster.Students(), unassigned, noLevel) {
			rows = append(rows, []string{st.Name, st.Age, st.Level, st.School, st.Slot, st.Class})
		}
		if len(rows) == 1 {
			fmt.Println("No students")
			return nil
		}
		fmt.Print(ui.Table(rows))
		return nil
	},
}

// filterStudents keeps the rows without a class when unassigned is set and
// the rows without a level when noLevel is set.
func filterStudents(students []store.Student, unassigned, noLevel bool) []store.Student {
	var out []store.Student
	for _, st := range students {
		if unassigned && st.Class != "" {
			continue
		}
		if noLevel && st.Level != "" {
			continue
		}
		out = append(out, st)
	}
	return out
}

var importWeekCmd = &cobra.Command{
	Use:     "import-week",
	GroupID: "students",
	Short:   "Copy placements from another week",
	Long: `Copy the level, school, slot and class of matching students from the
roster of another week. Fields that already have a value are kept.

Example:
  roster import-week --week 3 --from 2 --fields niveau,classe`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetInt("from")
		source, err := week.Open(app.cfg.Root, from)
		if err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		if source.Dir == sess.Week.Dir {
			return fmt.Errorf("source and target are both %s", source.Name())
		}

		names, _ := cmd.Flags().GetStringSlice("fields")
		var fields []schema.Field
		for _, n := range names {
			fields = append(fields, schema.Field(strings.ToLower(strings.TrimSpace(n))))
		}

		imported, err := app.syncer.ImportWeek(cmd.Context(), sess, source, fields)
		if err != nil {
			return err
		}
		fmt.Printf("%s Imported %d student(s) from %s\n", ui.RenderPass("✓"), len(imported), source.Name())
		for _, im := range imported {
			var parts []string
			for _, f := range rostersync.ImportFields {
				if v, ok := im.Fields[f]; ok {
					parts = append(parts, fmt.Sprintf("%s=%s", f, v))
				}
			}
			fmt.Printf("  %s  %s\n", im.Student, ui.RenderMuted(strings.Join(parts, " ")))
		}
		return nil
	},
}

func init() {
	assignCmd.Flags().String("teacher", "", "Teacher to write to the roster and the class row")

	studentAddCmd.Flags().String("age", "", "Age of the student")
	studentAddCmd.Flags().String("level", "", "Level of the student (A1 to C2)")
	studentListCmd.Flags().Bool("unassigned", false, "Only students without a class")
	studentListCmd.Flags().Bool("no-level", false, "Only students without a level")
	studentCmd.AddCommand(studentAddCmd, studentDeleteCmd, studentListCmd)

	importWeekCmd.Flags().Int("from", 0, "Source week number")
	importWeekCmd.Flags().StringSlice("fields", nil, "Fields to copy: niveau, ecole, horaire, classe (default all)")
	_ = importWeekCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(assignCmd, unassignCmd, studentCmd, importWeekCmd)
}
