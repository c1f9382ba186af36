package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"clientbook/internal/config"
	"clientbook/internal/db"
	"clientbook/internal/model"
	"clientbook/internal/repository"
)

const (
	demoUsername = "demo"
	demoEmail    = "demo@clientbook.local"
	demoPassword = "demo123"
)

// seedClientData is the embedded fixture for demo clients.
const seedClientData = `[
  {"nome": "Ana Souza", "telefone": "11987650001", "endereco": "Rua das Flores 120, São Paulo", "latitude": "-23.55052000", "longitude": "-46.63330800"},
  {"nome": "Bruno Lima", "telefone": "21987650002", "endereco": "Av. Atlântica 900, Rio de Janeiro", "latitude": "-22.97094900", "longitude": "-43.18222800"},
  {"nome": "Carla Mendes", "endereco": "Rua XV de Novembro 45, Curitiba"},
  {"nome": "Diego Alves", "telefone": "31987650004", "endereco": "Av. Afonso Pena 3000, Belo Horizonte", "latitude": "-19.92449600", "longitude": "-43.93522400"}
]`

// SeedClient mirrors the fixture entries.
type SeedClient struct {
	Nome      string  `json:"nome"`
	Telefone  *string `json:"telefone"`
	Endereco  string  `json:"endereco"`
	Latitude  *string `json:"latitude"`
	Longitude *string `json:"longitude"`
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Client{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	clientRepo := repository.NewClientRepository(gormDB)

	owner, err := ensureDemoUser(ctx, userRepo)
	if err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}
	log.Printf("Demo user ready: %s (id=%d)", owner.Username, owner.ID)

	var fixtures []SeedClient
	if err := json.Unmarshal([]byte(seedClientData), &fixtures); err != nil {
		log.Fatalf("Failed to parse client fixture: %v", err)
	}

	created, skipped, err := seedClients(ctx, clientRepo, owner.ID, fixtures)
	if err != nil {
		log.Fatalf("Failed to seed clients: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - New clients created: %d", created)
	log.Printf("  - Already present, skipped: %d", skipped)
}

// ensureDemoUser creates the demo account if no user with that username
// exists yet.
func ensureDemoUser(ctx context.Context, repo repository.UserRepository) (*model.User, error) {
	existing, err := repo.FindByUsername(ctx, demoUsername)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     demoUsername,
		Email:        demoEmail,
		PasswordHash: string(hashed),
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// seedClients inserts fixture clients for the owner, skipping names that are
// already present so the script stays idempotent.
func seedClients(ctx context.Context, repo repository.ClientRepository, ownerID uint, fixtures []SeedClient) (created, skipped int, err error) {
	existing, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, 0, err
	}
	present := make(map[string]bool, len(existing))
	for _, c := range existing {
		present[c.Nome] = true
	}

	for _, f := range fixtures {
		if present[f.Nome] {
			skipped++
			continue
		}

		client := &model.Client{
			UserID:   ownerID,
			Nome:     f.Nome,
			Telefone: f.Telefone,
			Endereco: f.Endereco,
		}
		if f.Latitude != nil {
			lat, err := decimal.NewFromString(*f.Latitude)
			if err != nil {
				log.Printf("Skipping client %q with invalid latitude: %s", f.Nome, *f.Latitude)
				skipped++
				continue
			}
			client.Latitude = decimal.NullDecimal{Decimal: lat, Valid: true}
		}
		if f.Longitude != nil {
			lon, err := decimal.NewFromString(*f.Longitude)
			if err != nil {
				log.Printf("Skipping client %q with invalid longitude: %s", f.Nome, *f.Longitude)
				skipped++
				continue
			}
			client.Longitude = decimal.NullDecimal{Decimal: lon, Valid: true}
		}

		if err := repo.Create(ctx, client); err != nil {
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}
