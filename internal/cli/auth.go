package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gatemaster/internal/domain"
	"gatemaster/internal/infra/api"
	"gatemaster/internal/shell"
)

func newLoginCmd(opts *options) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in and store the session",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Login),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			creds := domain.Credentials{Username: strings.TrimSpace(username)}
			var err error
			if creds.Username == "" {
				if creds.Username, err = d.readLine("Username: "); err != nil {
					return err
				}
				creds.Username = strings.TrimSpace(creds.Username)
			}
			if creds.Password, err = d.readSecret("Password: "); err != nil {
				return err
			}
			if err := d.validate.Struct(creds); err != nil {
				return err
			}

			if err := d.session.Login(cmd.Context(), creds); err != nil {
				if errors.Is(err, domain.ErrInvalidCredentials) {
					d.render.Error(errors.New("invalid credentials or account not verified"))
				}
				return err
			}
			id, _ := d.session.Identity()
			d.render.Success("Logged in as %s.", displayName(creds.Username, id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	return cmd
}

func displayName(fallback string, id domain.Identity) string {
	switch {
	case id.Username != "":
		return id.Username
	case fallback != "":
		return fallback
	default:
		return fmt.Sprintf("user #%d", id.UserID)
	}
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			if err := d.session.Logout(cmd.Context()); err != nil {
				return err
			}
			d.render.Success("Logged out.")
			return nil
		},
	}
}

func newRegisterCmd(opts *options) *cobra.Command {
	var reg domain.Registration
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account; a verification link is emailed",
		Args:        cobra.NoArgs,
		Annotations: route(shell.Register),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			var err error
			if reg.Username == "" {
				if reg.Username, err = d.readLine("Username: "); err != nil {
					return err
				}
			}
			if reg.Email == "" {
				if reg.Email, err = d.readLine("Email: "); err != nil {
					return err
				}
			}
			if reg.Password, err = d.readSecret("Password: "); err != nil {
				return err
			}
			if reg.Password2, err = d.readSecret("Confirm password: "); err != nil {
				return err
			}
			reg.Username = strings.TrimSpace(reg.Username)
			reg.Email = strings.TrimSpace(reg.Email)
			if err := d.validate.Struct(reg); err != nil {
				return err
			}

			detail, err := d.gateway.Register(cmd.Context(), reg)
			if err != nil {
				if api.IsRejection(err) {
					d.render.Error(fmt.Errorf("registration failed: %s", rejectionDetail(err)))
				}
				return err
			}
			if detail == "" {
				detail = "Registration successful. Please check your email to verify your account."
			}
			d.render.Success("%s", detail)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "account username")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address for verification")
	return cmd
}

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:         "verify <uid> <token>",
		Short:       "Activate an account from the emailed verification link",
		Args:        cobra.ExactArgs(2),
		Annotations: route(shell.Verify, "uid", "token"),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.deps
			detail, err := d.gateway.VerifyEmail(cmd.Context(), args[0], args[1])
			if err != nil {
				if api.IsRejection(err) {
					d.render.Error(fmt.Errorf("verification failed: %s", rejectionDetail(err)))
				}
				return err
			}
			if detail == "" {
				detail = "Email verified successfully! You can now log in."
			}
			d.render.Success("%s", detail)
			return nil
		},
	}
}

func rejectionDetail(err error) string {
	var se *api.StatusError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return err.Error()
}
