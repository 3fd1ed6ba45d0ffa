package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecoles/roster/internal/catalog"
	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
	"github.com/ecoles/roster/internal/ui"
)

var classCmd = &cobra.Command{
	Use:     "class",
	GroupID: "classes",
	Short:   "Create, rename, delete and list classes",
}

var classCreateCmd = &cobra.Command{
	Use:   "create <school> <slot> <class>",
	Short: "Add a class row to a slot sheet",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		level, _ := cmd.Flags().GetString("level")
		created, err := app.syncer.CreateClass(cmd.Context(), sess, args[0], args[1], args[2], level)
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("%s %s already exists in %s %s\n", ui.RenderMuted("-"), args[2], args[0], args[1])
			return nil
		}
		fmt.Printf("%s Created %s in %s %s\n", ui.RenderPass("✓"), ui.RenderAccent(args[2]), args[0], args[1])
		return nil
	},
}

var classRenameCmd = &cobra.Command{
	Use:   "rename <school> <slot> <old> <new>",
	Short: "Rename a class in its sheet, the roster and the personnel registry",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		if err := app.syncer.RenameClass(cmd.Context(), sess, args[0], args[1], args[2], args[3]); err != nil {
			return err
		}
		fmt.Printf("%s Renamed %s to %s\n", ui.RenderPass("✓"), args[2], ui.RenderAccent(args[3]))
		return nil
	},
}

var classDeleteCmd = &cobra.Command{
	Use:   "delete <school> <slot> <class>",
	Short: "Delete a class and clear its students and staff",
	Long: `Delete a class in three steps:
  1. clear the school, slot and class of its students in the roster
  2. remove the class row from the school workbook
  3. remove the class from every staff list

A failure after step 1 leaves the earlier steps saved. Re-run the command
to finish.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(cmd, fmt.Sprintf("Delete class %s of %s %s?", args[2], args[0], args[1]), "Its students lose their placement."); err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		report, err := app.syncer.DeleteClass(cmd.Context(), sess, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		if !report.Found {
			fmt.Printf("%s %s was already gone from the workbook\n", ui.RenderWarn("⚠"), args[2])
		}
		fmt.Printf("%s Deleted %s: %d roster row(s) cleared, %d staff list(s) updated\n",
			ui.RenderPass("✓"), ui.RenderAccent(args[2]), report.Cleared, report.Personnel)
		if len(report.Students) > 0 {
			fmt.Printf("  Students: %s\n", strings.Join(report.Students, ", "))
		}
		return nil
	},
}

var classDeleteSlotCmd = &cobra.Command{
	Use:   "delete-slot <school> <slot>",
	Short: "Delete every class of a slot sheet",
	Long: `Delete every class of a slot sheet with the same three steps as
"class delete": roster first, then the school workbook, then the staff lists.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(cmd, fmt.Sprintf("Delete every class of %s %s?", args[0], args[1]), "Their students lose their placement."); err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		report, err := app.syncer.DeleteSlotClasses(cmd.Context(), sess, args[0], args[1])
		if err != nil {
			return err
		}
		if !report.Found {
			fmt.Printf("%s %s %s has no classes\n", ui.RenderMuted("-"), args[0], args[1])
			return nil
		}
		fmt.Printf("%s Deleted %s: %d roster row(s) cleared, %d staff list(s) updated\n",
			ui.RenderPass("✓"), ui.RenderAccent(strings.Join(report.Classes, ", ")), report.Cleared, report.Personnel)
		return nil
	},
}

var classLevelCmd = &cobra.Command{
	Use:   "level <school> <slot> <class> <level>",
	Short: "Set the level of a class",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		changed, err := app.syncer.SetClassLevel(cmd.Context(), sess, args[0], args[1], args[2], args[3])
		if err != nil {
			return err
		}
		if !changed {
			fmt.Printf("%s %s is already %s\n", ui.RenderMuted("-"), args[2], args[3])
			return nil
		}
		fmt.Printf("%s Set level of %s to %s\n", ui.RenderPass("✓"), args[2], ui.RenderAccent(args[3]))
		return nil
	},
}

var classClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty every student list and class level of every school",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(cmd, "Clear every class list?", "Student lists and levels of every school workbook are emptied."); err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		n, err := app.syncer.ClearClassStores(cmd.Context(), sess)
		if err != nil {
			return err
		}
		fmt.Printf("%s Cleared %d class(es)\n", ui.RenderPass("✓"), n)
		return nil
	},
}

var classListCmd = &cobra.Command{
	Use:   "list [school]",
	Short: "List the classes of one or every school",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}

		schools := sess.Catalog.Schools
		if len(args) == 1 {
			sc, err := sess.Catalog.Lookup(args[0])
			if err != nil {
				return err
			}
			schools = []catalog.School{sc}
		}

		rows := [][]string{{"SCHOOL", "SLOT", "ROLE", "CLASS", "LEVEL", "STAFF", "STUDENTS"}}
		for _, sc := range schools {
			ss, err := sess.School(sc.Name)
			if store.IsNotFound(err) && len(args) == 0 {
				continue
			}
			if err != nil {
				return err
			}
			for _, c := range ss.Classes() {
				staff := c.Teacher
				if c.Role == schema.RoleAnimateur {
					staff = c.Animator
				}
				rows = append(rows, []string{c.School, c.Slot, c.Role, c.Name, c.Level, staff, strconv.Itoa(len(c.Students))})
			}
		}
		if len(rows) == 1 {
			fmt.Println("No classes")
			return nil
		}
		fmt.Print(ui.Table(rows))
		return nil
	},
}

func init() {
	classCreateCmd.Flags().String("level", "", "Level of the class")
	classCmd.AddCommand(classCreateCmd, classRenameCmd, classDeleteCmd, classDeleteSlotCmd, classLevelCmd, classClearCmd, classListCmd)
	rootCmd.AddCommand(classCmd)
}
