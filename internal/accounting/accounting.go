// Package accounting derives daily progress from a goal's task list.
package accounting

import "bridge/internal/model"

const (
	MinImpact     = 1
	MaxImpact     = 10
	DefaultImpact = 5
)

// ComputeProgress returns 100 * completed impact / total impact, or 0 when the
// list is empty or carries no impact at all.
func ComputeProgress(tasks []model.DailyTask) float64 {
	total := 0
	completed := 0
	for _, task := range tasks {
		total += task.ImpactScore
		if task.Completed {
			completed += task.ImpactScore
		}
	}
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// ApplyTasks is the only place a goal's task list is replaced; progress is
// recomputed in the same step.
func ApplyTasks(goal *model.Goal, tasks []model.DailyTask) {
	if tasks == nil {
		tasks = []model.DailyTask{}
	}
	goal.Tasks = tasks
	goal.Progress = ComputeProgress(tasks)
}

func IncompleteCount(tasks []model.DailyTask) int {
	count := 0
	for _, task := range tasks {
		if !task.Completed {
			count++
		}
	}
	return count
}

func ClampImpact(score int) int {
	if score < MinImpact {
		return MinImpact
	}
	if score > MaxImpact {
		return MaxImpact
	}
	return score
}
