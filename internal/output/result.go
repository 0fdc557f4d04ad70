// Package output defines the JSON documents printed by the CLI and sent to
// webhooks.
package output

// Result is one Process Executor run, as printed by `tandem exec`.
type Result struct {
	Command       string `json:"command"`
	Status        string `json:"status"`
	Input         string `json:"input"`
	Output        string `json:"output"`
	Stderr        string `json:"stderr"`
	ExitCode      int    `json:"exit_code"`
	ExecutionTime int64  `json:"execution_time"`
	Timeout       *int64 `json:"timeout,omitempty"` // in milliseconds
	TimedOut      bool   `json:"timed_out"`
}

// Comparison is the result of `tandem compare`.
type Comparison struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Equal bool   `json:"equal"`
	Diffs []Diff `json:"diffs,omitempty"`
}

type Diff struct {
	Line int    `json:"line"`
	A    string `json:"a"`
	B    string `json:"b"`
}
