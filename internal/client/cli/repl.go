package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Counties(ctx context.Context) error
	Checklist(ctx context.Context, args []string) error
	Packages(ctx context.Context) error
	CreatePackage(ctx context.Context) error
	SetStatus(ctx context.Context, args []string) error
	Documents(ctx context.Context, args []string) error
	RemoveDocument(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Stats(ctx context.Context) error
	DeadLetters(ctx context.Context) error
	Revive(ctx context.Context, args []string) error
	Acknowledge(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	guestHelp = "Available commands: register, login, counties, checklist <county>, exit"
	userHelp  = "Available commands: counties, checklist <county>, packages, create, " +
		"status <pkg> <status>, docs <pkg>, rmdoc <pkg> <doc>, sync, stats, dead, " +
		"revive <entry>, ack, logout, exit"
)

// runREPL reads one command per line and dispatches it to a. The loop ends on
// EOF, on "exit" or "quit", or when ctx is done.
//
// The prompt shows statusFn(), e.g. "ps> jane@example.com offline > ".
// Commands that change data require a signed-in user; reference data
// (counties, checklists) is browsable without one.
//
// Handler errors are reported by the handlers themselves, so one failing
// command never stops the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ps> %s > ", statusFn()))

		line, err := in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if needsLogin(cmd) && !a.isLoggedIn() {
			printlnFn("Please login first.")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "counties":
			_ = a.Counties(ctx)

		case "checklist":
			_ = a.Checklist(ctx, args)

		case "packages", "ls":
			_ = a.Packages(ctx)

		case "create":
			_ = a.CreatePackage(ctx)

		case "status":
			_ = a.SetStatus(ctx, args)

		case "docs":
			_ = a.Documents(ctx, args)

		case "rmdoc":
			_ = a.RemoveDocument(ctx, args)

		case "sync":
			_ = a.Sync(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "dead":
			_ = a.DeadLetters(ctx)

		case "revive":
			_ = a.Revive(ctx, args)

		case "ack":
			_ = a.Acknowledge(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err == io.EOF {
			return
		}
	}
}

func needsLogin(cmd string) bool {
	switch cmd {
	case "packages", "ls", "create", "status", "docs", "rmdoc", "sync", "stats", "dead", "revive", "ack", "logout":
		return true
	}
	return false
}
