//go:build windows

package session

// NativeLineEnding terminates each line written by a text transfer.
const NativeLineEnding = "\r\n"
