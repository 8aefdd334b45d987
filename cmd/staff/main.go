// Command staff creates a gate staff account.
//
//	go run ./cmd/staff -email gate@venue.example -password '...'
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/iliyamo/venue-box-office/internal/config"
	"github.com/iliyamo/venue-box-office/internal/database"
	"github.com/iliyamo/venue-box-office/internal/model"
	"github.com/iliyamo/venue-box-office/internal/repository"
)

func main() {
	email := flag.String("email", "", "staff email, also the identity checked by the booking service")
	password := flag.String("password", "", "initial password")
	flag.Parse()
	if *email == "" || len(*password) < 8 {
		log.Fatal("-email and a -password of at least 8 characters are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database())
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	id, err := repository.NewUserRepo(db).Create(ctx, *email, *password, model.RoleStaff, cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		log.Fatalf("%s already has an account", *email)
	}
	if err != nil {
		log.Fatalf("create staff: %v", err)
	}
	log.Printf("created staff user %d (%s)", id, *email)
}
