// Команда confctl - консольный клиент API конференции.
//
//	confctl [-server URL] [-session PATH] <command> [args]
//
// Команды: signup, login, logout, whoami, verify, resend, forgot, reset,
// protected, submit, submission, submissions.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"conference_backend/internal/client"

	"golang.org/x/term"
)

// readPassword подменяется в тестах
var readPassword = term.ReadPassword

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cli struct {
	api   *client.Client
	cache *client.SessionCache
	in    *bufio.Reader
	out   io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("confctl", flag.ContinueOnError)
	fs.SetOutput(stdout)
	server := fs.String("server", envOr("CONF_SERVER", "http://localhost:5000"), "API base URL")
	sessionPath := fs.String("session", client.DefaultSessionPath(), "session file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("command is required")
	}

	cache, err := client.NewSessionCache(*sessionPath)
	if err != nil {
		return err
	}
	cache.Subscribe(func(ev client.SessionEvent) {
		switch ev.Kind {
		case client.SessionStarted:
			fmt.Fprintf(stdout, "Logged in as %s\n", ev.Session.User.Email)
		case client.SessionCleared:
			fmt.Fprintln(stdout, "Logged out")
		}
	})

	c := &cli{api: client.New(*server, cache), cache: cache, in: bufio.NewReader(stdin), out: stdout}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "signup":
		return c.signup(ctx, rest)
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.api.Logout()
	case "whoami":
		return c.whoami()
	case "verify":
		return c.verify(ctx, rest)
	case "resend":
		return c.emailOnly(ctx, rest, c.api.ResendVerification)
	case "forgot":
		return c.emailOnly(ctx, rest, c.api.ForgotPassword)
	case "reset":
		return c.reset(ctx, rest)
	case "protected":
		return c.protected(ctx)
	case "submit":
		return c.submit(ctx, rest)
	case "submission":
		return c.submission(ctx)
	case "submissions":
		return c.submissions(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) signup(ctx context.Context, args []string) error {
	email, err := c.arg(args, 0, "Email")
	if err != nil {
		return err
	}
	password, err := c.password()
	if err != nil {
		return err
	}
	resp, err := c.api.Signup(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, resp.Message)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	email, err := c.arg(args, 0, "Email")
	if err != nil {
		return err
	}
	password, err := c.password()
	if err != nil {
		return err
	}
	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if resp.NeedsVerification {
		fmt.Fprintln(c.out, resp.Message)
	}
	return nil
}

func (c *cli) whoami() error {
	s, ok := c.cache.Get()
	if !ok || !c.cache.IsAuthenticated(time.Now()) {
		fmt.Fprintln(c.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(c.out, "%s (%s)\n", s.User.Email, s.User.Username)
	if s.LastSubmissionID != "" {
		fmt.Fprintf(c.out, "Last submission: %s\n", s.LastSubmissionID)
	}
	return nil
}

func (c *cli) verify(ctx context.Context, args []string) error {
	token, err := c.arg(args, 0, "Verification token")
	if err != nil {
		return err
	}
	resp, err := c.api.VerifyEmail(ctx, token)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, resp.Message)
	return nil
}

func (c *cli) emailOnly(ctx context.Context, args []string, call func(context.Context, string) (*client.MessageResponse, error)) error {
	email, err := c.arg(args, 0, "Email")
	if err != nil {
		return err
	}
	resp, err := call(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, resp.Message)
	return nil
}

func (c *cli) reset(ctx context.Context, args []string) error {
	email, err := c.arg(args, 0, "Email")
	if err != nil {
		return err
	}
	otp, err := c.arg(args, 1, "OTP")
	if err != nil {
		return err
	}
	password, err := c.password()
	if err != nil {
		return err
	}
	resp, err := c.api.ResetPassword(ctx, email, otp, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, resp.Message)
	return nil
}

func (c *cli) protected(ctx context.Context) error {
	resp, err := c.api.Protected(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s (%s)\n", resp.Message, resp.User.Email, resp.User.UserID)
	return nil
}

// submit принимает поля как key=value, файл тезисов - abstract=<путь>
func (c *cli) submit(ctx context.Context, args []string) error {
	fields := make(map[string]string)
	var abstract string
	for _, kv := range args {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", kv)
		}
		if key == "abstract" {
			abstract = value
			continue
		}
		fields[key] = value
	}

	resp, err := c.api.SubmitPaper(ctx, fields, abstract)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s\n", resp.Message, resp.SubmissionID)
	return nil
}

func (c *cli) submission(ctx context.Context) error {
	resp, err := c.api.MySubmission(ctx)
	if err != nil {
		return err
	}
	if !resp.HasSubmission || resp.Submission == nil {
		fmt.Fprintln(c.out, "No submissions yet")
		return nil
	}
	s := resp.Submission
	fmt.Fprintf(c.out, "%s %q [%s]\n", s.SubmissionID, s.PaperTitle, s.Status)
	return nil
}

func (c *cli) submissions(ctx context.Context) error {
	resp, err := c.api.MySubmissions(ctx)
	if err != nil {
		return err
	}
	if resp.Count == 0 {
		fmt.Fprintln(c.out, "No submissions yet")
		return nil
	}
	for _, s := range resp.Submissions {
		fmt.Fprintf(c.out, "%s %q [%s]\n", s.SubmissionID, s.PaperTitle, s.Status)
	}
	return nil
}

// arg берет позиционный аргумент или спрашивает его
func (c *cli) arg(args []string, i int, prompt string) (string, error) {
	if i < len(args) && args[i] != "" {
		return args[i], nil
	}
	fmt.Fprint(c.out, prompt+": ")
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) password() (string, error) {
	fmt.Fprint(c.out, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
