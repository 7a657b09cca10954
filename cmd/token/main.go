// cmd/token mints a session token for a user id with the server's configured key pair. It is
// for local testing and operators; production identity comes from the login provider.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/auth"
	"github.com/jason-s-yu/stakes/internal/config"
	"github.com/sirupsen/logrus"
)

func main() {
	user := flag.String("user", "", "user id to mint a token for (random if empty)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if cfg.PrivateKeyPath == "" || cfg.PublicKeyPath == "" {
		logrus.Fatal("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH are required")
	}
	if err := auth.InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenTTL); err != nil {
		logrus.Fatalf("auth: %v", err)
	}

	id := uuid.New()
	if *user != "" {
		if id, err = uuid.Parse(*user); err != nil {
			logrus.Fatalf("invalid -user: %v", err)
		}
	}
	token, err := auth.CreateJWT(id)
	if err != nil {
		logrus.Fatalf("sign: %v", err)
	}
	fmt.Fprintf(os.Stderr, "user %s\n", id)
	fmt.Println(token)
}
