package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/syncpad/internal/model"
	"github.com/steveyegge/syncpad/internal/store"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new task",
	Long: `Add a new task to the local database.

The task starts local-only; the next sync cycle uploads it.

Examples:
  syncpad task add "Buy milk"
  syncpad task add "Water plants" --date 2024-06-01 --recur daily
  syncpad task add "Standup" --date 2024-06-03 --time 09:30 --tags work,meetings`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		date, _ := cmd.Flags().GetString("date")
		dueTime, _ := cmd.Flags().GetString("time")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		recur, _ := cmd.Flags().GetString("recur")
		every, _ := cmd.Flags().GetInt("every")

		task := &model.Task{
			Title:      strings.TrimSpace(args[0]),
			DueDate:    date,
			DueTime:    dueTime,
			Tags:       tags,
			Recurrence: model.Recurrence(recur),
			RepeatDays: every,
		}
		if task.Recurrence == "" {
			task.Recurrence = model.RecurNone
		}

		id, err := db.Tasks().Create(context.Background(), task)
		if err != nil {
			return err
		}
		fmt.Printf("Added task %d: %s\n", id, task.Title)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		all, _ := cmd.Flags().GetBool("all")

		tasks, err := db.Tasks().GetAll(context.Background())
		if err != nil {
			return err
		}

		shown := 0
		for _, t := range tasks {
			if t.Done && !all {
				continue
			}
			fmt.Println(formatTask(t))
			shown++
		}
		if shown == 0 {
			fmt.Println("No tasks. Add one with 'syncpad task add'.")
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Complete a task",
	Long: `Mark a task complete. Recurring tasks are rescheduled to their
next occurrence instead of closing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		tasks := db.Tasks()

		task, err := tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}

		rescheduled := task.Complete(time.Now())

		patch := store.TaskPatch{
			Done:       &task.Done,
			DueDate:    &task.DueDate,
			UsageCount: &task.UsageCount,
		}
		if err := tasks.Update(ctx, id, patch); err != nil {
			return err
		}

		if rescheduled {
			fmt.Printf("Rescheduled task %d to %s: %s\n", id, task.DueDate, task.Title)
		} else {
			fmt.Printf("Completed task %d: %s\n", id, task.Title)
		}
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Tasks().Delete(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted task %d\n", id)
		return nil
	},
}

// formatTask renders one task for the list view.
func formatTask(t *model.Task) string {
	var b strings.Builder

	mark := "[ ]"
	if t.Done {
		mark = "[x]"
	}
	fmt.Fprintf(&b, "%s %4d  %s", mark, t.LocalID, t.Title)

	if t.DueDate != "" {
		fmt.Fprintf(&b, "  (%s", t.DueDate)
		if t.DueTime != "" {
			fmt.Fprintf(&b, " %s", t.DueTime)
		}
		b.WriteString(")")
	}
	if t.Recurring() {
		fmt.Fprintf(&b, "  ↻%s", t.Recurrence)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "  #%s", strings.Join(t.Tags, " #"))
	}
	if !t.Synced {
		b.WriteString("  *pending")
	}
	return b.String()
}

func init() {
	taskAddCmd.Flags().String("date", "", "due date (YYYY-MM-DD)")
	taskAddCmd.Flags().String("time", "", "due time (HH:MM)")
	taskAddCmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	taskAddCmd.Flags().String("recur", "", "recurrence: daily, weekly, or custom")
	taskAddCmd.Flags().Int("every", 0, "repeat interval in days (with --recur custom)")

	taskListCmd.Flags().Bool("all", false, "include completed tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}
