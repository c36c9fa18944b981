package tasks

// ProgressUpdate represents a progress event during a recommendation run.
//
// Used to send real-time updates to the CLI or TUI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	ResolveSession Phase = iota
	SynthesizeQuery
	SearchCatalog
	Done
)

func (p Phase) String() string {
	switch p {
	case ResolveSession:
		return "resolve_session"
	case SynthesizeQuery:
		return "synthesize_query"
	case SearchCatalog:
		return "search_catalog"
	case Done:
		return "done"
	default:
		return ""
	}
}

func resolveSessionUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: ResolveSession, Message: "Checking your Spotify session..."}
}

func synthesizeQueryUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: SynthesizeQuery, Message: "Turning your mood into a search query..."}
}

func searchCatalogUpdate(terms string) ProgressUpdate {
	return ProgressUpdate{Phase: SearchCatalog, Message: "Searching Spotify for " + terms + "..."}
}

func doneUpdate(count int) ProgressUpdate {
	if count == 0 {
		return ProgressUpdate{Phase: Done, Message: "No tracks matched your mood"}
	}
	return ProgressUpdate{Phase: Done, Message: "Found your recommendations"}
}

// emit sends an update without blocking when no listener is attached.
func emit(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
