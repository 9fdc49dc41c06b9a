// Package cmd provides common command line helpers for the acmekit
// binaries.
package cmd

import (
	"log"
)

// FailOnError logs the message and exits when err is non-nil.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}

	log.Fatalf("[!] %s - %s", msg, err)
}
