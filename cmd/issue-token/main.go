// Command issue-token mints an access token signed with JWT_SECRET, for
// operators and local development.  Login lives outside this service.
//
//	issue-token -sub u1 -role MENTOR -ttl 2h
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/utils"
)

func main() {
	sub := flag.String("sub", "", "user id placed in the sub claim")
	role := flag.String("role", model.RoleUser, "USER, MENTOR or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*sub, *role, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "issue-token:", err)
		os.Exit(1)
	}
}

func run(sub, role string, ttl time.Duration) error {
	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if sub == "" {
		return fmt.Errorf("-sub is required")
	}
	role = strings.ToUpper(role)
	switch role {
	case model.RoleUser, model.RoleMentor, model.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	tok, err := utils.NewAccessToken(secret, sub, role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	fmt.Fprintln(os.Stderr, "expires", tok.Exp.Format(time.RFC3339))
	return nil
}
