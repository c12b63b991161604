package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Signup(context.Context) error { return f.record("signup") }
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Whoami(context.Context) error  { return f.record("whoami") }
func (f *fakeExec) Refresh(context.Context) error { return f.record("refresh") }
func (f *fakeExec) Profile(context.Context) error { return f.record("profile") }
func (f *fakeExec) Forgot(context.Context) error  { return f.record("forgot") }
func (f *fakeExec) Reset(context.Context) error   { return f.record("reset") }
func (f *fakeExec) Status(context.Context) error  { return f.record("status") }
func (f *fakeExec) Stats(context.Context) error   { return f.record("stats") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			parts = append(parts, strings.TrimSpace(toString(v)))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := captureOutput(t)
	f := &fakeExec{}

	input := strings.Join([]string{
		"help",
		"login",
		"help",
		"whoami",
		"me",
		"refresh",
		"profile",
		"status",
		"stats",
		"logout",
		"register",
		"forgot",
		"reset",
		"",
		"bogus",
		"exit",
		"login",
	}, "\n") + "\n"

	runREPL(context.Background(), f, func() string { return "" }, rdr(input))

	require.Equal(t, []string{
		"login", "whoami", "whoami", "refresh", "profile", "status", "stats",
		"logout", "signup", "forgot", "reset",
	}, f.calls)

	joined := strings.Join(*out, "\n")
	require.Contains(t, joined, "Available commands: login, signup")
	require.Contains(t, joined, "Available commands: whoami, refresh")
	require.Contains(t, joined, "Unknown command: bogus")
	require.Contains(t, joined, "Bye!")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	captureOutput(t)
	f := &fakeExec{}

	runREPL(context.Background(), f, func() string { return "" }, rdr("status"))

	require.Equal(t, []string{"status"}, f.calls)
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	captureOutput(t)
	f := &fakeExec{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runREPL(ctx, f, func() string { return "" }, rdr("status\n"))

	require.Empty(t, f.calls)
}
