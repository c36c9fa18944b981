package ui

import (
	"moodify/internal/tasks"
)

// progressUpdateMsg carries a pipeline status update into the Update loop.
type progressUpdateMsg tasks.ProgressUpdate

// recommendCompleteMsg ends a run, successful or not.
type recommendCompleteMsg struct {
	result *tasks.RecommendResult
	err    error
}
