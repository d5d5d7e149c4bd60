package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Chatter is what the interactive loop needs from the agent.
type Chatter interface {
	Greeting(identifier string) string
	Chat(ctx context.Context, identifier, message string) string
	ProfileSummary(identifier string) string
}

// Control words recognized by the loop, compared case-insensitively.
const (
	cmdQuit    = "quit"
	cmdExit    = "exit"
	cmdSwitch  = "changer"
	cmdProfile = "profile"
)

// runLoop drives a Chatter from line-oriented input.
//
// It asks for an identifier, greets the user, then forwards each message to
// Chat. A blank line, "quit", "exit" or "changer" goes back to the
// identifier prompt; "profile" prints the profile. "quit" at the identifier
// prompt, end of input, or a cancelled ctx ends the loop. Cancellation is
// noticed while waiting for input, and a line read after it is dropped.
func runLoop(ctx context.Context, in io.Reader, out io.Writer, chatter Chatter) error {
	lines := readLines(ctx, in)

	readLine := func(prompt string) (string, bool) {
		printPrompt(out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return "", false
		case l, ok := <-lines.ch:
			if !ok || ctx.Err() != nil {
				fmt.Fprintln(out)
				return "", false
			}
			return strings.TrimSpace(l), true
		}
	}

	for {
		identifier, ok := readLine("\nIdentifiant utilisateur (ou 'quit'): ")
		if !ok {
			return lines.err(ctx)
		}
		if strings.EqualFold(identifier, cmdQuit) {
			return nil
		}
		if identifier == "" {
			continue
		}

		printAssistant(out, chatter.Greeting(identifier))

		for {
			message, ok := readLine(fmt.Sprintf("\n%s: ", identifier))
			if !ok {
				return lines.err(ctx)
			}
			lower := strings.ToLower(message)
			if message == "" || lower == cmdQuit || lower == cmdExit || lower == cmdSwitch {
				break
			}
			if lower == cmdProfile {
				fmt.Fprintln(out, chatter.ProfileSummary(identifier))
				continue
			}
			printAssistant(out, chatter.Chat(ctx, identifier, message))
		}

		fmt.Fprintf(out, "\nÀ bientôt %s!\n", identifier)
	}
}

// lineStream delivers input lines from a background reader. The reader
// stays blocked on in after cancellation until in yields or is closed.
type lineStream struct {
	ch      chan string
	scanErr error
}

func readLines(ctx context.Context, in io.Reader) *lineStream {
	ls := &lineStream{ch: make(chan string)}
	go func() {
		defer close(ls.ch)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case ls.ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		ls.scanErr = scanner.Err()
	}()
	return ls
}

// err is the loop result once input stopped: nil after cancellation,
// otherwise the scanner error. Only valid after ch was closed or ctx ended.
func (ls *lineStream) err(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	return ls.scanErr
}
