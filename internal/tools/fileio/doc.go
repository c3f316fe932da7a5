// Package fileio provides the sandbox-rooted filesystem tools.
//
// All paths are resolved through the Sandbox guard; a path that escapes the
// configured root fails with tools.ErrPathEscape before any filesystem call.
// There is deliberately no deletion tool, and write_file refuses to replace
// an existing file with empty content.
//
// Tools:
//   - read_file: Read file contents
//   - write_file: Write content to a file
//   - append_file: Append content to a file
//   - list_files: List directory contents
package fileio
