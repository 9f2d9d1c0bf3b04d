package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yukikurage/bounty-flow-api/internal/auth"
	"github.com/yukikurage/bounty-flow-api/internal/constants"
	"github.com/yukikurage/bounty-flow-api/internal/dto"
	"github.com/yukikurage/bounty-flow-api/internal/models"
	"github.com/yukikurage/bounty-flow-api/internal/repository"
	"github.com/yukikurage/bounty-flow-api/internal/services"
	"github.com/yukikurage/bounty-flow-api/internal/utils"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Query bounty tasks",
}

// task show
var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the title and status of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskShowJSON bool

// task list
var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

var (
	taskListCreator    uint64
	taskListFreelancer uint64
	taskListStatus     string
	taskListLimit      int
	taskListJSON       bool
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskShowCmd, taskListCmd)

	taskShowCmd.Flags().BoolVar(&taskShowJSON, "json", false, "Output as JSON")

	taskListCmd.Flags().Uint64Var(&taskListCreator, "creator", 0, "Filter by creator ID")
	taskListCmd.Flags().Uint64Var(&taskListFreelancer, "freelancer", 0, "Filter by freelancer ID")
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status (pending, completed, paid)")
	taskListCmd.Flags().IntVar(&taskListLimit, "limit", constants.MaxPageSize, "Maximum number of tasks to show")
	taskListCmd.Flags().BoolVar(&taskListJSON, "json", false, "Output as JSON")
}

func openBountyService() (*services.BountyService, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	return services.NewBountyService(repository.NewStore(db), auth.NewContextGuard(), nil), nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task ID %q", args[0])
	}

	svc, err := openBountyService()
	if err != nil {
		return err
	}

	summary, err := svc.GetTask(taskID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if taskShowJSON {
		return writeJSON(out, dto.ToTaskSummaryResponse(summary))
	}
	if summary == nil {
		fmt.Fprintf(out, "task %d not found\n", taskID)
		return nil
	}
	fmt.Fprintf(out, "%s\t%s\n", summary.Title, summary.Status)
	return nil
}

func runTaskList(cmd *cobra.Command, _ []string) error {
	input := services.ListTasksInput{
		Pagination: utils.PaginationParams{Page: 1, Limit: taskListLimit},
	}
	if cmd.Flags().Changed("creator") {
		input.CreatorID = &taskListCreator
	}
	if cmd.Flags().Changed("freelancer") {
		input.FreelancerID = &taskListFreelancer
	}
	if taskListStatus != "" {
		status := models.TaskStatus(taskListStatus)
		if !status.Valid() {
			return fmt.Errorf("invalid status %q", taskListStatus)
		}
		input.Status = &status
	}

	svc, err := openBountyService()
	if err != nil {
		return err
	}

	tasks, total, err := svc.ListTasks(input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if taskListJSON {
		return writeJSON(out, dto.ToTaskListResponse(tasks, input.Pagination.Page, input.Pagination.Limit, total))
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tAMOUNT\tCREATOR\tTITLE")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", task.ID, services.StatusLabel(task.Status), task.Amount, task.CreatorID, task.Title)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
