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

	"golang.org/x/term"

	"projex/internal/auth"
	"projex/internal/backend"
	"projex/internal/cli"
	"projex/internal/config"
	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/services"
)

const usage = `Usage: projex-admin <command> [flags]

Commands:
  adduser  -name <name> -email <email> [-role admin|viewer] [-password <password>]
  seed     create the configured default admin if missing
`

func main() {
	cli.LoadEnvFile()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := applog.New(applog.Config{Level: applog.ParseLevel("warn"), Format: "text", Output: stderr, Component: applog.ComponentApp})

	switch args[0] {
	case "adduser":
		return addUser(args[1:], cfg, logger, stdin, stdout, stderr)
	case "seed":
		return seed(cfg, logger, stdout)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return flag.ErrHelp
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func addUser(args []string, cfg *config.Config, logger *applog.Logger, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Login email")
	role := fs.String("role", string(core.RoleViewer), "admin or viewer")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *name == "" {
		fs.PrintDefaults()
		return errors.New("missing required flags: name, email")
	}

	r := core.Role(strings.ToLower(*role))
	if !r.Valid() {
		return fmt.Errorf("invalid role %q", *role)
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	return withUsers(cfg, logger, func(ctx context.Context, users *services.UserService) error {
		u, created, err := users.EnsureUser(ctx, core.RegisterInput{Name: *name, Email: *email, Password: password}, r)
		if err != nil {
			msg, details := core.Message(err)
			if len(details) > 0 {
				msg += ": " + strings.Join(details, "; ")
			}
			return errors.New(msg)
		}
		if !created {
			return fmt.Errorf("user %s already exists", u.Email)
		}
		fmt.Fprintf(stdout, "User %s created with ID %d and role %s\n", u.Email, u.ID, u.Role)
		return nil
	})
}

func seed(cfg *config.Config, logger *applog.Logger, stdout io.Writer) error {
	return withUsers(cfg, logger, func(ctx context.Context, users *services.UserService) error {
		in := core.RegisterInput{Name: cfg.DefaultAdminName, Email: cfg.DefaultAdminEmail, Password: cfg.DefaultAdminPassword}
		u, created, err := users.EnsureUser(ctx, in, core.RoleAdmin)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(stdout, "Default admin %s created with ID %d\n", u.Email, u.ID)
		} else {
			fmt.Fprintf(stdout, "Default admin %s already exists\n", u.Email)
		}
		return nil
	})
}

// withUsers opens the store without the event publisher and runs fn.
func withUsers(cfg *config.Config, logger *applog.Logger, fn func(context.Context, *services.UserService) error) error {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	bc.AMQPURL = ""

	ctx := applog.NewContext(context.Background(), logger)
	res, err := backend.NewFactory(logger).Open(ctx, bc)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	return fn(ctx, services.NewUserService(res.Store, auth.BcryptHasher{}, nil, nil))
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
