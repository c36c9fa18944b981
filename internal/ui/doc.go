// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow for mood-based recommendations:
//  1. [PromptView] : Enter a free-text mood description
//  2. [LoadingView] : Watch pipeline progress while the query is synthesized and run
//  3. [ResultsView] : Browse recommended tracks with the model's summary
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the RecommendEngine, providing non-blocking status reporting during a run.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
