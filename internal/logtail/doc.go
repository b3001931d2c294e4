// Package logtail reads the end of the coach log file so the UI can show
// recent client activity without leaving the terminal.
//
// Lines are kept in a ring buffer, so memory stays bounded by the number of
// lines requested rather than the file size.
package logtail
