package main

import (
	"context"
	"errors"
	"log"

	"spacebooking/internal/config"
	"spacebooking/internal/database"
	"spacebooking/internal/domain"
	jwtsvc "spacebooking/internal/pkg/jwt"
	"spacebooking/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	email    string
	name     string
	role     domain.UserRole
	password string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	ctx := context.Background()
	tenants := repository.NewTenantRepository(db)
	users := repository.NewUserRepository(db)
	spaces := repository.NewSpaceRepository(db)
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	tenant, err := tenants.EnsureBySlug(ctx, "acme", "Acme Coworking")
	if err != nil {
		log.Fatal("tenant seed failed:", err)
	}

	created := map[domain.UserRole]*domain.User{}
	for _, su := range []seedUser{
		{"admin@acme.test", "Admin", domain.RoleAdmin, "admin123"},
		{"manager@acme.test", "Facilities Manager", domain.RoleManager, "manager123"},
		{"member@acme.test", "Team Member", domain.RoleMember, "member123"},
	} {
		u, err := ensureUser(ctx, users, tenant.ID, su)
		if err != nil {
			log.Fatalf("user seed failed email=%s: %v", su.email, err)
		}
		created[su.role] = u

		token, err := j.GenerateToken(u.ID, tenant.ID, string(u.Role))
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("seeded user id=%d email=%s role=%s token=%s", u.ID, u.Email, u.Role, token)
	}

	opens, closes := "08:00", "20:00"
	approverID := created[domain.RoleManager].ID
	for _, sp := range []domain.Space{
		{TenantID: tenant.ID, Name: "Main Hall", Capacity: 80, MinStartTime: &opens, MinEndTime: &closes, RequiresApproval: true, ApproverID: &approverID},
		{TenantID: tenant.ID, Name: "Meeting Room A", Capacity: 8, MinStartTime: &opens, MinEndTime: &closes},
		{TenantID: tenant.ID, Name: "Phone Booth", Capacity: 1},
	} {
		s, err := ensureSpace(ctx, spaces, sp)
		if err != nil {
			log.Fatalf("space seed failed name=%s: %v", sp.Name, err)
		}
		log.Printf("seeded space id=%d name=%q requires_approval=%t", s.ID, s.Name, s.RequiresApproval)
	}

	log.Println("Seed completed")
}

func ensureUser(ctx context.Context, users *repository.UserRepository, tenantID int64, su seedUser) (*domain.User, error) {
	u, err := users.GetByEmail(ctx, tenantID, su.email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u = &domain.User{
		TenantID:     tenantID,
		Email:        su.email,
		Name:         su.name,
		Role:         su.role,
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func ensureSpace(ctx context.Context, spaces *repository.SpaceRepository, sp domain.Space) (*domain.Space, error) {
	existing, err := spaces.GetByName(ctx, sp.TenantID, sp.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err := spaces.Create(ctx, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}
