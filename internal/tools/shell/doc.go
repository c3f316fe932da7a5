// Package shell provides the shell command execution tool.
//
// Commands run via sh -c with the working directory pinned to the sandbox
// root. A nonzero exit is reported as a target failure with the command's
// output preserved in the observation.
package shell
