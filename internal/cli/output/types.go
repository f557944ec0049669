package output

// LinkOutput is the JSON result of the link command.
type LinkOutput struct {
	Root      string     `json:"root"`
	Output    string     `json:"output,omitempty"`
	SourceMap string     `json:"sourcemap,omitempty"`
	Bytes     int        `json:"bytes"`
	Cached    bool       `json:"cached"`
	RunID     string     `json:"run_id,omitempty"`
	Decls     []DeclInfo `json:"decls"`
	Text      string     `json:"text,omitempty"`
}

// DeclInfo describes one emitted declaration.
type DeclInfo struct {
	Module     string `json:"module"`
	Name       string `json:"name"`
	OutputName string `json:"output_name"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// CheckOutput is the JSON result of the check command.
type CheckOutput struct {
	Modules     int          `json:"modules"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Module  string `json:"module,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ModuleInfo describes one registered module.
type ModuleInfo struct {
	Path    string `json:"path"`
	File    string `json:"file"`
	Bundle  string `json:"bundle,omitempty"`
	Imports int    `json:"imports"`
	Decls   int    `json:"decls"`
	Exports int    `json:"exports"`
	// Uses and UsedBy are the modules this one depends on and the modules
	// depending on it.
	Uses   []string `json:"uses"`
	UsedBy []string `json:"used_by"`
}

// RunInfo describes one recorded link run.
type RunInfo struct {
	ID        string `json:"id"`
	Root      string `json:"root"`
	Status    string `json:"status"`
	Cached    bool   `json:"cached"`
	Bytes     int    `json:"bytes"`
	StartedAt string `json:"started_at"`
	Duration  string `json:"duration,omitempty"`
	Error     string `json:"error,omitempty"`
}
