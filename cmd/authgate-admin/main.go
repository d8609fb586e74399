// Command authgate-admin provisions admin accounts. Admins cannot sign up through the
// API; this is the only way to create one.
//
//	authgate-admin -email root@example.com -username root
//
// The password is read from AUTHGATE_ADMIN_PASSWORD, or from -password when set.
// Store settings are the same environment variables authgate-server reads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/bootstrap"
	"github.com/MrEthical07/authgate/mail"
)

func main() {
	var (
		email    = flag.String("email", "", "admin email address")
		username = flag.String("username", "", "admin username (letters and digits)")
		password = flag.String("password", "", "admin password; prefer AUTHGATE_ADMIN_PASSWORD")
		timeout  = flag.Duration("timeout", 30*time.Second, "overall deadline")
	)
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("AUTHGATE_ADMIN_PASSWORD")
	}
	if *email == "" || *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "email, username and password are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, authgate.CreateAdminInput{Email: *email, Username: *username, Password: *password}); err != nil {
		status, msg := authgate.Describe(err)
		if status < 500 {
			fmt.Fprintln(os.Stderr, msg)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, in authgate.CreateAdminInput) error {
	cfg, infra, err := bootstrap.Load()
	if err != nil {
		return err
	}
	log := bootstrap.NewLogger(infra, "authgate-admin")

	st, err := bootstrap.OpenStore(ctx, infra, cfg.Collections, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close(context.WithoutCancel(ctx)) }()

	// Admin creation touches neither Redis nor CAPTCHA nor mail.
	cfg.RateLimit.Enabled = false
	cfg.Revocation.Enabled = false
	cfg.Security.RequireCaptcha = false
	cfg.Security.ProductionMode = false
	engine, err := bootstrap.Engine(cfg, st, nil, nil, mail.NewLogSender(log), log)
	if err != nil {
		return err
	}
	defer engine.Close()

	user, err := engine.CreateAdmin(ctx, in)
	if errors.Is(err, authgate.ErrAccountExists) {
		return fmt.Errorf("%s: %w", in.Email, err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("created admin %s (%s)\n", user.Email, user.ID)
	return nil
}
