// Command token issues a bearer token for an existing user, signed with the API's JWT settings.
// Role and department are read from the users table.
//
//	token -email manager1@test.com
//	token -uid 1 -ttl 2h
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"docrepo/internal/auth"
	"docrepo/internal/config"
	"docrepo/internal/database"
	"docrepo/internal/model"
	"docrepo/internal/repository"
	"docrepo/internal/repository/postgres"
)

func main() {
	uid := flag.Int64("uid", 0, "user id")
	email := flag.String("email", "", "user email")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_TTL_MIN)")
	flag.Parse()

	if err := run(context.Background(), *uid, *email, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, uid int64, email string, ttl time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if ttl <= 0 {
		ttl = time.Duration(cfg.JWT.TTLMin) * time.Minute
	}

	db, err := database.NewPostgres(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return err
	}
	defer db.Close()

	j := &auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: ttl}
	tok, err := issue(ctx, postgres.NewUserPostgres(db), j, uid, email)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

// issue signs a token for the user addressed by exactly one of uid or email.
func issue(ctx context.Context, users repository.UserRepository, j *auth.JWTer, uid int64, email string) (string, error) {
	var (
		u   *model.User
		err error
	)
	switch {
	case uid != 0 && email != "":
		return "", errors.New("pass either -uid or -email, not both")
	case uid > 0:
		u, err = users.FindByID(ctx, uid)
	case email != "":
		u, err = users.FindByEmail(ctx, email)
	default:
		return "", errors.New("-uid (positive) or -email is required")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return "", errors.New("no such user; tokens are only issued for seeded or existing users")
	}
	if err != nil {
		return "", err
	}
	if !u.Role.Valid() {
		return "", fmt.Errorf("user %d has unknown role %q", u.ID, u.Role)
	}
	return j.Issue(u.Caller())
}
