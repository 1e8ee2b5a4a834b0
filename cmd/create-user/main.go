package main

import (
	"flag"
	"log"

	"go-order-commit/internal/model"
	"go-order-commit/internal/repository"
	"go-order-commit/pkg/database"

	"github.com/joho/godotenv"
)

// Small CLI to provision an API user without going through the HTTP layer.
func main() {
	email := flag.String("email", "", "user email (required)")
	password := flag.String("password", "", "user password (required)")
	name := flag.String("name", "", "user full name")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("Usage: create-user -email <email> -password <password> [-name <full name>]")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	db := database.ConnectDB()
	db.AutoMigrate(&model.User{})

	userRepo := repository.NewUserRepo(db)

	if _, err := userRepo.FindByEmail(*email); err == nil {
		log.Fatalf("User %s already exists", *email)
	}

	user := &model.User{
		Email:    *email,
		FullName: *name,
		IsActive: true,
	}
	user.CreatedBy = "cli"
	user.UpdatedBy = "cli"

	if err := user.SetPassword(*password); err != nil {
		log.Fatal("Failed to hash password: ", err)
	}
	if err := userRepo.Create(user); err != nil {
		log.Fatal("Failed to create user: ", err)
	}

	log.Printf("User %s created (id=%s)", user.Email, user.ID)
}
