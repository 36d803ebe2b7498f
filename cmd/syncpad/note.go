package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/syncpad/internal/model"
	"github.com/steveyegge/syncpad/internal/store"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <title> [content]",
	Short: "Add a new note",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		note := &model.Note{Title: strings.TrimSpace(args[0])}
		if len(args) > 1 {
			note.Content = args[1]
		}

		id, err := db.Notes().Create(context.Background(), note)
		if err != nil {
			return err
		}
		fmt.Printf("Added note %d: %s\n", id, note.Title)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		notes, err := db.Notes().GetAll(context.Background())
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No notes. Add one with 'syncpad note add'.")
			return nil
		}

		for _, n := range notes {
			pending := ""
			if !n.Synced {
				pending = "  *pending"
			}
			fmt.Printf("%4d  %s%s\n", n.LocalID, n.Title, pending)
		}
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a note's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid note id %q", args[0])
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		note, err := db.Notes().GetByID(context.Background(), id)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", note.Title)
		if note.Content != "" {
			fmt.Printf("\n%s\n", note.Content)
		}
		return nil
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update a note's title or content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid note id %q", args[0])
		}

		var patch store.NotePatch
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			patch.Title = &title
		}
		if cmd.Flags().Changed("content") {
			content, _ := cmd.Flags().GetString("content")
			patch.Content = &content
		}
		if patch.Title == nil && patch.Content == nil {
			return fmt.Errorf("nothing to change (use --title or --content)")
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Notes().Update(context.Background(), id, patch); err != nil {
			return err
		}
		fmt.Printf("Updated note %d\n", id)
		return nil
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid note id %q", args[0])
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Notes().Delete(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted note %d\n", id)
		return nil
	},
}

func init() {
	noteEditCmd.Flags().String("title", "", "new title")
	noteEditCmd.Flags().String("content", "", "new content")

	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteShowCmd)
	noteCmd.AddCommand(noteEditCmd)
	noteCmd.AddCommand(noteRmCmd)
	rootCmd.AddCommand(noteCmd)
}
