// tokengen mints development JWTs for exercising the API locally:
//
//	go run ./cmd/tokengen -user mech-1 -role mechanic
//
// The secret must match the server's JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"carcare-dispatch/internal/models"
	"carcare-dispatch/pkg/utils"
)

func main() {
	userID := flag.String("user", "", "user id to embed in the token")
	role := flag.String("role", models.RoleOwner, "role claim: owner, mechanic or dealer")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" || *secret == "" {
		flag.Usage()
		os.Exit(2)
	}

	token, err := utils.SignAccessToken(*userID, *role, *secret, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
