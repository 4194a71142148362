package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"sporty-backend/config"
	"sporty-backend/entity"
	"sporty-backend/jwt"
)

func main() {
	email := flag.String("email", "", "Email the token is issued for")
	key := flag.String("key", "", "Key used to sign the token, defaults to ACCESS_TOKEN_SECRET")
	ttl := flag.Duration("ttl", jwt.DefaultTTL, "How long the token is valid")
	role := flag.String("role", "", "Informational role claim")
	flag.Parse()

	if *email == "" {
		fmt.Println("--email is required")
		os.Exit(1)
	}

	secret := *key
	if secret == "" {
		cfg, err := config.Load("")
		if err != nil {
			fmt.Println("--key not given and config invalid:", err)
			os.Exit(1)
		}
		secret = cfg.Token.Secret
	}

	claims := jwt.Claims{Email: *email}
	if *role != "" {
		r, err := entity.ParseRole(*role)
		if err != nil {
			fmt.Println("--role invalid:", err)
			os.Exit(1)
		}
		claims.Role = r
	}

	ss, err := jwt.NewService([]byte(secret), *ttl).Issue(claims)
	if err != nil {
		fmt.Println("unable to issue token:", err)
		os.Exit(1)
	}

	fmt.Printf("Token successfully generated (expires %s): %s\n", time.Now().Add(*ttl).Format(time.RFC3339), ss)
}
