package main

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted")

// confirm asks before a destructive command. It passes without asking
// when --yes is set or stdin is not a terminal.
func confirm(cmd *cobra.Command, title, description string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	ok := false
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}
	return nil
}
