package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/logger"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/store"
	"github.com/dineflow/api/internal/store/backend"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Super admin email address")
	password := flag.String("password", "", "Super admin password")
	name := flag.String("name", "", "Super admin full name")
	withOutlet := flag.Bool("sample-outlet", true, "Create a sample outlet when none exist")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, "console", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Fall back to defaults
	if *email == "" {
		*email = "admin@dineflow.local"
	}
	if *password == "" {
		if cfg.IsProduction() {
			log.Fatal("SEED_PASSWORD must be set in production")
		}
		*password = "password123"
		log.Warn("using default password 'password123'; change it immediately")
	}
	if *name == "" {
		*name = "Dineflow Admin"
	}

	if cfg.Store.Driver == config.DriverMemory {
		log.Fatal("seeding the in-memory store has no effect; set STORE_DRIVER")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := backend.Open(ctx, cfg.Store, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer db.Close()

	userID, err := seedSuperAdmin(ctx, db, log, *email, *password, *name)
	if err != nil {
		log.Fatal("seed super admin", zap.Error(err))
	}

	if *withOutlet {
		created, err := seedSampleOutlet(ctx, db, log)
		if err != nil {
			log.Fatal("seed outlet", zap.Error(err))
		}
		// Settings are written only alongside the first outlet so a rerun
		// never overwrites edits made in the admin panel.
		if created {
			if err := db.SaveGlobalSettings(ctx, model.DefaultGlobalSettings()); err != nil {
				log.Fatal("seed settings", zap.Error(err))
			}
			log.Info("saved default settings")
		}
	}

	log.Info("seed completed", zap.String("super_admin_id", userID))
}

// seedSuperAdmin creates the super admin if the email is not registered.
func seedSuperAdmin(ctx context.Context, db store.Store, log *zap.Logger, email, password, fullName string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := db.GetUserByEmail(ctx, email)
	if err == nil {
		log.Info("user already exists, skipping", zap.String("email", email), zap.String("id", existing.ID))
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("check user: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	u := model.UserProfile{
		ID:           uuid.NewString(),
		Name:         fullName,
		Email:        email,
		Role:         enum.RoleSuperAdmin,
		OutletID:     enum.OutletScopeAll,
		PasswordHash: hashed,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.SaveUser(ctx, u); err != nil {
		return "", fmt.Errorf("save user: %w", err)
	}

	log.Info("created super admin", zap.String("email", email), zap.String("id", u.ID))
	return u.ID, nil
}

// seedSampleOutlet creates one outlet with a small menu when the store has
// no outlets yet. It reports whether anything was written.
func seedSampleOutlet(ctx context.Context, db store.Store, log *zap.Logger) (bool, error) {
	outlets, err := db.GetOutlets(ctx)
	if err != nil {
		return false, fmt.Errorf("list outlets: %w", err)
	}
	if len(outlets) > 0 {
		log.Info("outlets already exist, skipping", zap.Int("count", len(outlets)))
		return false, nil
	}

	now := time.Now().UTC()
	o := model.Outlet{
		ID:               uuid.NewString(),
		Name:             "Dineflow Koramangala",
		Address:          "80 Feet Road, Koramangala 4th Block, Bengaluru 560034",
		Phone:            "9876543210",
		Location:         &model.Coordinates{Lat: 12.9352, Lng: 77.6245},
		DeliveryRadiusKm: 8,
		IsActive:         true,
		CreatedAt:        now,
	}
	if err := db.SaveOutlet(ctx, o); err != nil {
		return false, fmt.Errorf("save outlet: %w", err)
	}

	half := 189.0
	items := []model.MenuItem{
		{Name: "Paneer Butter Masala", Category: "Main Course", Price: model.Price{Full: 319, Half: &half},
			FoodType: enum.FoodTypeVeg, SpiceLevel: enum.SpiceMild},
		{Name: "Chicken Biryani", Category: "Biryani", Price: model.Price{Full: 349},
			FoodType: enum.FoodTypeNonVeg, SpiceLevel: enum.SpiceMedium, DiscountPercent: 10},
		{Name: "Gulab Jamun", Category: "Dessert", Price: model.Price{Full: 99},
			FoodType: enum.FoodTypeVeg, SpiceLevel: enum.SpiceNone},
	}
	for _, item := range items {
		item.ID = uuid.NewString()
		item.OutletID = o.ID
		item.Available = true
		item.CreatedAt = now
		if err := db.SaveMenuItem(ctx, item); err != nil {
			return false, fmt.Errorf("save menu item %q: %w", item.Name, err)
		}
	}

	log.Info("created sample outlet", zap.String("id", o.ID), zap.Int("menu_items", len(items)))
	return true, nil
}
