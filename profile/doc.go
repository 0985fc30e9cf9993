// Package profile attaches the Linux perf tool to a running process for
// named benchmark phases and post-processes the captured artifacts into
// flame graphs or CPU-cycle summaries.
//
// At most one profiler subprocess is ever attached to the target PID;
// starting a new phase implicitly closes the previous one. Profiling is
// strictly best-effort: every failure in this package degrades to a logged
// warning so the benchmark run itself never aborts over lost profile data.
package profile
