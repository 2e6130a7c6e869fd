// Package logger is the structured event log for the shell.
//
// Job lifecycle records use the event name as the message and a fixed set of
// attribute keys so a JSON log can be summarized later with a Report.
package logger
