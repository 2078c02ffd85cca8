package watcher

// ChangeAnalysis describes what changed and which steps need to be re-run
type ChangeAnalysis struct {
	NeedRegistryReload bool
	NeedReexport       bool
	ChangedFiles       []string
}

// AnalyzeChanges determines which steps need to be re-run based on what changed
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeAdapter:
		// New definitions change defaults and imports of every module
		analysis.NeedRegistryReload = true
		analysis.NeedReexport = true

	case ChangeTypeProject:
		analysis.NeedReexport = true
	}

	return analysis
}
