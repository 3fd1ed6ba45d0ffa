package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecoles/roster/internal/conflict"
	"github.com/ecoles/roster/internal/store"
	"github.com/ecoles/roster/internal/ui"
	"github.com/ecoles/roster/internal/week"
)

var staffCmd = &cobra.Command{
	Use:     "staff",
	GroupID: "staff",
	Short:   "Manage teachers and animators",
	Long: `Manage the personnel registry of the week.

The <role> argument is professeur (prof) or animateur (anim).`,
}

var staffAddCmd = &cobra.Command{
	Use:   "add <role> <name>",
	Short: "Register a staff member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := store.ParseRole(args[0])
		if err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		added, err := app.syncer.AddStaff(cmd.Context(), sess, role, args[1])
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("%s %s is already registered\n", ui.RenderMuted("-"), args[1])
			return nil
		}
		fmt.Printf("%s Added %s to %s\n", ui.RenderPass("✓"), args[1], role)
		return nil
	},
}

var staffRemoveCmd = &cobra.Command{
	Use:   "remove <role> <name>",
	Short: "Remove a staff member from the registry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := store.ParseRole(args[0])
		if err != nil {
			return err
		}
		if err := confirm(cmd, fmt.Sprintf("Remove %s?", args[1]), "The registry entry and its class list are deleted."); err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		if err := app.syncer.RemoveStaff(cmd.Context(), sess, role, args[1]); err != nil {
			return err
		}
		fmt.Printf("%s Removed %s\n", ui.RenderPass("✓"), args[1])
		return nil
	},
}

var staffAssignCmd = &cobra.Command{
	Use:   "assign <role> <name> <school> <slot> <class>",
	Short: "Give a class to a staff member",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := store.ParseRole(args[0])
		if err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		if err := app.syncer.AssignStaff(cmd.Context(), sess, role, args[1], args[2], args[3], args[4]); err != nil {
			return err
		}
		fmt.Printf("%s %s now has %s (%s %s)\n", ui.RenderPass("✓"), args[1], ui.RenderAccent(args[4]), args[2], args[3])
		warnConflicts(sess.Week)
		return nil
	},
}

var staffUnassignCmd = &cobra.Command{
	Use:   "unassign <role> <name> <school> <slot> <class>",
	Short: "Take a class away from a staff member",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := store.ParseRole(args[0])
		if err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		if err := app.syncer.UnassignStaff(cmd.Context(), sess, role, args[1], args[2], args[3], args[4]); err != nil {
			return err
		}
		fmt.Printf("%s %s no longer has %s\n", ui.RenderPass("✓"), args[1], args[4])
		return nil
	},
}

var staffImportCmd = &cobra.Command{
	Use:   "import <role>",
	Short: "Copy the staff of a role from another week",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := store.ParseRole(args[0])
		if err != nil {
			return err
		}
		from, _ := cmd.Flags().GetInt("from")
		source, err := week.Open(app.cfg.Root, from)
		if err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		n, err := app.syncer.ImportPersonnel(cmd.Context(), sess, source, role)
		if err != nil {
			return err
		}
		fmt.Printf("%s Imported %d %s from %s\n", ui.RenderPass("✓"), n, role, source.Name())
		return nil
	},
}

var staffClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty every staff class list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm(cmd, "Clear every staff class list?", "Staff members stay registered without classes."); err != nil {
			return err
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		n, err := app.syncer.ClearStaffClasses(cmd.Context(), sess)
		if err != nil {
			return err
		}
		fmt.Printf("%s Cleared the classes of %d staff member(s)\n", ui.RenderPass("✓"), n)
		return nil
	},
}

var staffListCmd = &cobra.Command{
	Use:   "list [role]",
	Short: "List staff members and their classes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roles := store.Roles
		if len(args) == 1 {
			role, err := store.ParseRole(args[0])
			if err != nil {
				return err
			}
			roles = []store.Role{role}
		}
		sess, err := app.session()
		if err != nil {
			return err
		}
		reg, err := sess.Registry()
		if err != nil {
			return err
		}
		report := conflict.Detect(reg)

		rows := [][]string{{"ROLE", "NAME", "CLASSES"}}
		for _, role := range roles {
			for _, st := range reg.Staff(role) {
				classes := make([]string, len(st.Classes))
				for i, c := range st.Classes {
					classes[i] = c
					if report.Has(c) {
						classes[i] = ui.RenderWarn(c)
					}
				}
				rows = append(rows, []string{string(role), st.Name, strings.Join(classes, ", ")})
			}
		}
		fmt.Print(ui.Table(rows))
		return nil
	},
}

var staffConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Show classes claimed by several staff members of one role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.session()
		if err != nil {
			return err
		}
		reg, err := sess.Registry()
		if err != nil {
			return err
		}
		report := conflict.Detect(reg)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report.Classes)
		}
		if report.Empty() {
			fmt.Printf("%s No conflicts\n", ui.RenderPass("✓"))
			return nil
		}
		rows := [][]string{{"ROLE", "CLASS", "STAFF"}}
		for _, c := range report.Classes {
			rows = append(rows, []string{string(c.Role), ui.RenderWarn(c.Name), strings.Join(c.Owners, ", ")})
		}
		fmt.Print(ui.Table(rows))
		return nil
	},
}

// warnConflicts reports conflicting classes after a staff change.
func warnConflicts(w *week.Week) {
	reg, err := store.LoadRegistry(w.PersonnelPath())
	if err != nil {
		return
	}
	report := conflict.Detect(reg)
	for _, c := range report.Classes {
		fmt.Printf("%s %s is claimed by %s\n", ui.RenderWarn("⚠"), c.Name, strings.Join(c.Owners, ", "))
	}
}

func init() {
	staffImportCmd.Flags().Int("from", 0, "Source week number")
	_ = staffImportCmd.MarkFlagRequired("from")
	staffConflictsCmd.Flags().Bool("json", false, "Print conflicts as JSON")

	staffCmd.AddCommand(staffAddCmd, staffRemoveCmd, staffAssignCmd, staffUnassignCmd,
		staffImportCmd, staffClearCmd, staffListCmd, staffConflictsCmd)
	rootCmd.AddCommand(staffCmd)
}
