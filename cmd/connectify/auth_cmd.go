package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/blackmichael/connectify/internal/authform"
	"github.com/blackmichael/connectify/internal/domain"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Example: `  connectify login --email ada@example.com
  echo "$PW" | connectify login --email ada@example.com`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				pw, err := c.readPassword()
				if err != nil {
					return err
				}
				password = pw
			}

			form := c.app.NewForm()
			form.Set(authform.FieldEmail, email)
			form.Set(authform.FieldPassword, password)

			out, err := form.Submit(cmd.Context())
			if err != nil {
				return formError(form, err)
			}

			fmt.Fprintf(c.out, "Logged in as %s\n", out.Identity.FullName())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var (
		values  = map[authform.Field]*string{}
		picture string
	)
	for _, f := range []authform.Field{
		authform.FieldFirstName, authform.FieldLastName, authform.FieldEmail,
		authform.FieldPassword, authform.FieldLocation, authform.FieldOccupation,
	} {
		values[f] = new(string)
	}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Example: `  connectify register --first-name Ada --last-name Lovelace --email ada@example.com \
    --location London --occupation Mathematician --picture ada.png`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if *values[authform.FieldPassword] == "" {
				pw, err := c.readPassword()
				if err != nil {
					return err
				}
				*values[authform.FieldPassword] = pw
			}

			form := c.app.NewForm()
			form.Toggle()
			for f, v := range values {
				form.Set(f, *v)
			}
			if picture != "" {
				data, err := os.ReadFile(picture)
				if err != nil {
					return fmt.Errorf("read picture: %w", err)
				}
				form.SetPicture(&domain.Attachment{Filename: filepath.Base(picture), Data: data})
			}

			out, err := form.Submit(cmd.Context())
			if err != nil {
				return formError(form, err)
			}

			fmt.Fprintf(c.out, "Registered %s (%s). You can now log in.\n", out.Identity.FullName(), out.Identity.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(values[authform.FieldFirstName], "first-name", "", "First name")
	cmd.Flags().StringVar(values[authform.FieldLastName], "last-name", "", "Last name")
	cmd.Flags().StringVar(values[authform.FieldEmail], "email", "", "Account email")
	cmd.Flags().StringVar(values[authform.FieldPassword], "password", "", "Account password (prompted when omitted)")
	cmd.Flags().StringVar(values[authform.FieldLocation], "location", "", "Location")
	cmd.Flags().StringVar(values[authform.FieldOccupation], "occupation", "", "Occupation")
	cmd.Flags().StringVar(&picture, "picture", "", "Profile picture file")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := c.app.Me()
			if err != nil {
				return err
			}
			if c.output == "json" {
				return printJSON(c.out, me)
			}
			printIdentity(c.out, me)
			if claims, err := c.app.Session.Claims(); err == nil && !claims.ExpiresAt.IsZero() {
				fmt.Fprintf(c.out, "Session expires %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			savedAt, ok, err := c.app.SessionSavedAt(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(c.out, "Session saved %s\n", savedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

// formError prefers the form's notice, which is already phrased for the user.
func formError(form *authform.Form, err error) error {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return err
	}
	if notice := form.Notice(); notice != "" {
		return errors.New(notice)
	}
	return err
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func (c *cli) readPassword() (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.errOut, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.errOut)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimRight(line, "\r\n"), nil
}
