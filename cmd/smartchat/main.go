// Command smartchat is a conversational assistant that remembers the people
// it talks to.
//
// Usage:
//
//	smartchat                    interactive chat (default)
//	smartchat greet <identifier> print the greeting for a user
//	smartchat profile <identifier>
//	smartchat forget <identifier>
//	smartchat serve              run the web front
//	smartchat config show
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
