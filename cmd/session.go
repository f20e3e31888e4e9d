package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/xferctl/internal/providers"
	"github.com/desertthunder/xferctl/internal/repositories"
	"github.com/desertthunder/xferctl/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SessionStatus is the `session status --json` output.
type SessionStatus struct {
	SignedIn    bool                      `json:"signedIn"`
	Expired     bool                      `json:"expired"`
	Expiry      *time.Time                `json:"expiry,omitempty"`
	Connections []repositories.Connection `json:"connections"`
}

// SessionLogin stores the transfer API token.
func (r *Runner) SessionLogin(ctx context.Context, cmd *cli.Command) error {
	access := strings.TrimSpace(cmd.String("token"))
	if access == "" {
		return fmt.Errorf("%w: --token", shared.ErrMissingArgument)
	}

	repo, err := r.Sessions()
	if err != nil {
		return err
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if ttl := cmd.Duration("expires-in"); ttl > 0 {
		tok.Expiry = time.Now().Add(ttl)
	}
	if err := repo.SaveToken(tok); err != nil {
		return err
	}

	r.logger.Info("session token saved", "expires", !tok.Expiry.IsZero())
	return r.writePlain("✓ Signed in\n")
}

// SessionLogout removes the token and every connection.
func (r *Runner) SessionLogout(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.Sessions()
	if err != nil {
		return err
	}
	if err := repo.Clear(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// SessionConnect marks a provider account as linked.
func (r *Runner) SessionConnect(ctx context.Context, cmd *cli.Command) error {
	p, err := providerArg(cmd)
	if err != nil {
		return err
	}

	repo, err := r.Sessions()
	if err != nil {
		return err
	}
	if err := repo.Connect(p, cmd.String("account")); err != nil {
		return err
	}

	r.logger.Info("provider connected", "provider", p)
	return r.writePlain("✓ Connected %s\n", p.Name())
}

// SessionDisconnect unlinks a provider account.
func (r *Runner) SessionDisconnect(ctx context.Context, cmd *cli.Command) error {
	p, err := providerArg(cmd)
	if err != nil {
		return err
	}

	repo, err := r.Sessions()
	if err != nil {
		return err
	}
	if err := repo.Disconnect(p); err != nil {
		return err
	}

	r.logger.Info("provider disconnected", "provider", p)
	return r.writePlain("✓ Disconnected %s\n", p.Name())
}

// SessionShow prints the token state and linked providers.
func (r *Runner) SessionShow(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.Sessions()
	if err != nil {
		return err
	}

	var status SessionStatus
	tok, err := repo.Token()
	switch {
	case errors.Is(err, shared.ErrMissingToken):
	case err != nil:
		return err
	default:
		status.SignedIn = true
		status.Expired = !tok.Valid()
		if !tok.Expiry.IsZero() {
			status.Expiry = &tok.Expiry
		}
	}

	if status.Connections, err = repo.Connections(); err != nil {
		return err
	}
	if status.Connections == nil {
		status.Connections = []repositories.Connection{}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Session")
	switch {
	case !status.SignedIn:
		r.writePlain("Token: none (run 'xferctl session login')\n")
	case status.Expired:
		r.writePlain("Token: expired at %s\n", status.Expiry.Format(time.RFC3339))
	case status.Expiry != nil:
		r.writePlain("Token: valid until %s\n", status.Expiry.Format(time.RFC3339))
	default:
		r.writePlain("Token: valid\n")
	}

	if len(status.Connections) == 0 {
		return r.writePlainln("No providers connected")
	}
	r.writePlainln("Connected providers:")
	for _, c := range status.Connections {
		if c.Account != "" {
			r.writePlain("  - %s (%s)\n", c.Provider.Name(), c.Account)
		} else {
			r.writePlain("  - %s\n", c.Provider.Name())
		}
	}
	return nil
}

func providerArg(cmd *cli.Command) (providers.Provider, error) {
	name := cmd.StringArg("provider")
	if name == "" {
		return providers.Unsupported, fmt.Errorf("%w: provider", shared.ErrMissingArgument)
	}
	p := providers.Normalize(name)
	if !p.Valid() {
		return p, fmt.Errorf("%w: %q", shared.ErrInvalidProvider, name)
	}
	return p, nil
}

func sessionCommand(r *Runner) *cli.Command {
	providerArgs := func() []cli.Argument {
		return []cli.Argument{&cli.StringArg{Name: "provider", UsageText: "spotify | youtube"}}
	}

	return &cli.Command{
		Name:  "session",
		Usage: "Manage the transfer API session and provider connections",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Store the transfer API auth token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Usage:    "Auth token issued by the transfer API",
						Required: true,
						Sources:  cli.EnvVars("XFERCTL_TOKEN"),
					},
					&cli.DurationFlag{
						Name:  "expires-in",
						Usage: "Token lifetime; omitted means it never expires",
					},
				},
				Action: r.SessionLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the token and all provider connections",
				Action: r.SessionLogout,
			},
			{
				Name:      "connect",
				Usage:     "Mark a provider account as connected",
				Arguments: providerArgs(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "account",
						Usage: "Display name of the linked account",
					},
				},
				Action: r.SessionConnect,
			},
			{
				Name:      "disconnect",
				Usage:     "Unlink a provider account",
				Arguments: providerArgs(),
				Action:    r.SessionDisconnect,
			},
			{
				Name:  "status",
				Usage: "Show the token state and connected providers",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SessionShow,
			},
		},
	}
}
